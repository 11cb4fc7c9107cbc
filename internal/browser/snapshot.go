package browser

import (
	"errors"
	"fmt"

	"punchAgent/internal/config"
	"punchAgent/internal/extractor"
)

var ErrNotLaunched = errors.New("браузер не запущен")

func fromExtractor(snapshot *extractor.PageSnapshot) *PageSnapshot {
	buttons := make([]Button, len(snapshot.Buttons))
	for i, btn := range snapshot.Buttons {
		buttons[i] = Button{
			Index:     btn.Index,
			Text:      btn.Text,
			ClassName: btn.ClassName,
			Visible:   btn.Visible,
		}
	}

	return &PageSnapshot{
		URL:      snapshot.URL,
		Title:    snapshot.Title,
		BodyText: snapshot.BodyText,
		Buttons:  buttons,
	}
}

func decodePosition(raw interface{}) (*Geolocation, error) {
	pos, err := extractor.Decode[extractor.Position](raw)
	if err != nil {
		return nil, err
	}
	if pos.Error != "" {
		return nil, fmt.Errorf("страница не получила координаты: %s", pos.Error)
	}
	return &Geolocation{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Accuracy:  pos.Accuracy,
	}, nil
}

// ConfigFrom собирает параметры драйвера из конфигурации приложения.
func ConfigFrom(cfg *config.Cfg) Config {
	s := cfg.Session
	return Config{
		Headless:  cfg.Browser.Headless,
		ExecPath:  cfg.Browser.ExecPath,
		UserAgent: s.UserAgent,
		ViewportW: s.ViewportW,
		ViewportH: s.ViewportH,
		Geolocation: Geolocation{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Accuracy:  s.Accuracy,
		},
		Origin:          s.Origin(),
		Timeout:         s.Timeout,
		NavigateTimeout: 2 * s.Timeout,
	}
}

// NewFactory возвращает фабрику браузеров для выбранного драйвера.
func NewFactory(cfg *config.Cfg) Factory {
	bc := ConfigFrom(cfg)
	if cfg.Browser.Driver == config.DriverChromedp {
		return func() Browser { return NewChrome(bc) }
	}
	return func() Browser { return New(bc) }
}
