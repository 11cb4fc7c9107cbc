package extractor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// BodyTextLimit - сколько символов текста страницы сохраняется в снимке.
const BodyTextLimit = 300

type Button struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	ClassName string `json:"className"`
	Visible   bool   `json:"visible"`
}

type PageSnapshot struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	BodyText string   `json:"bodyText"`
	Buttons  []Button `json:"buttons"`
}

// SnapshotScript читает все кнопки страницы в порядке документа.
// Индекс кнопки совпадает с позицией в document.querySelectorAll('button').
const SnapshotScript = `() => ({
	title: document.title,
	url: window.location.href,
	bodyText: document.body ? document.body.textContent.trim().substring(0, 300) : '',
	buttons: Array.from(document.querySelectorAll('button')).map((btn, i) => ({
		index: i,
		text: btn.textContent.trim(),
		className: typeof btn.className === 'string' ? btn.className : '',
		visible: btn.offsetParent !== null
	}))
})`

// ClickButtonScript кликает кнопку по индексу и возвращает false, если кнопки уже нет.
const ClickButtonScript = `(i) => {
	const btn = document.querySelectorAll('button')[i];
	if (!btn) return false;
	btn.click();
	return true;
}`

// BodyTextScript возвращает полный текст страницы.
const BodyTextScript = `() => document.body ? document.body.textContent : ''`

// GeolocationScript запрашивает координаты так же, как это делает сама страница.
const GeolocationScript = `() => new Promise((resolve) => {
	if (!navigator.geolocation) {
		resolve({ error: 'geolocation API unavailable' });
		return;
	}
	navigator.geolocation.getCurrentPosition(
		(pos) => resolve({
			latitude: pos.coords.latitude,
			longitude: pos.coords.longitude,
			accuracy: pos.coords.accuracy
		}),
		(err) => resolve({ error: err.message || String(err.code) }),
		{ timeout: 10000 }
	);
})`

// GeolocationShim подменяет getCurrentPosition до загрузки скриптов страницы,
// на случай если сайт не доверяет эмуляции браузера.
func GeolocationShim(latitude, longitude, accuracy float64) string {
	return fmt.Sprintf(`(() => {
	if (!navigator.geolocation) return;
	const coords = { latitude: %v, longitude: %v, accuracy: %v };
	navigator.geolocation.getCurrentPosition = function(success) {
		success({ coords: coords, timestamp: Date.now() });
	};
})();`, latitude, longitude, accuracy)
}

type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Error     string  `json:"error"`
}

func ExtractPageSnapshot(ctx context.Context, page playwright.Page) (*PageSnapshot, error) {
	result, err := page.Evaluate(SnapshotScript)
	if err != nil {
		return nil, fmt.Errorf("ошибка извлечения кнопок: %w", err)
	}

	snapshot, err := Decode[PageSnapshot](result)
	if err != nil {
		return nil, err
	}
	if snapshot.URL == "" {
		snapshot.URL = page.URL()
	}
	return snapshot, nil
}

// Decode приводит результат page.Evaluate (map[string]interface{}) к структуре.
func Decode[T any](raw interface{}) (*T, error) {
	if raw == nil {
		return nil, fmt.Errorf("пустой результат скрипта")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("неверный формат результата: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("неверный формат результата: %w", err)
	}
	return &out, nil
}
