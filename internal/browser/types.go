package browser

import (
	"context"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Browser - управляемая сессия браузера с подмененной геолокацией.
type Browser interface {
	Launch(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Snapshot(ctx context.Context) (*PageSnapshot, error)
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	ClickAndWaitForNavigation(ctx context.Context, selector string, timeout time.Duration) error
	ClickButton(ctx context.Context, index int) error
	BodyText(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
	Geolocation(ctx context.Context) (*Geolocation, error)
	OnDialog(handler DialogHandler) (unsubscribe func())
	Close() error
}

// Factory создает новый браузер на каждую попытку.
type Factory func() Browser

// PageSnapshot - состояние страницы в один момент времени.
type PageSnapshot struct {
	URL      string
	Title    string
	BodyText string
	Buttons  []Button
}

// Labels возвращает тексты всех кнопок в порядке документа.
func (s *PageSnapshot) Labels() []string {
	if s == nil {
		return nil
	}
	labels := make([]string, len(s.Buttons))
	for i, b := range s.Buttons {
		labels[i] = b.Text
	}
	return labels
}

type Button struct {
	Index     int
	Text      string
	ClassName string
	Visible   bool
}

type Geolocation struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Config - параметры запуска, общие для обоих драйверов.
type Config struct {
	Headless        bool
	ExecPath        string
	UserAgent       string
	ViewportW       int
	ViewportH       int
	Geolocation     Geolocation
	Origin          string // origin, которому выдается разрешение на геолокацию
	Timeout         time.Duration
	NavigateTimeout time.Duration
}

type PlaywrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	cfg     Config
	dialogs *dialogHub
	mu      sync.RWMutex
}
