package browser

import (
	"sync"
)

// Dialog - нативный диалог страницы (alert, confirm, prompt, beforeunload).
type Dialog struct {
	Type    string
	Message string
}

// DialogHandler решает судьбу диалога: true - принять, false - отклонить.
type DialogHandler func(d Dialog) bool

// dialogHub хранит активные подписки на диалоги.
// Драйвер регистрирует один обработчик на странице и спрашивает hub,
// что делать с диалогом. Без подписчиков диалог отклоняется, как это
// делает браузер по умолчанию.
type dialogHub struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]DialogHandler
}

func newDialogHub() *dialogHub {
	return &dialogHub{handlers: make(map[int]DialogHandler)}
}

func (h *dialogHub) subscribe(handler DialogHandler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}

// decide возвращает true, если хотя бы один подписчик принял диалог.
func (h *dialogHub) decide(d Dialog) bool {
	h.mu.Lock()
	handlers := make([]DialogHandler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		handlers = append(handlers, handler)
	}
	h.mu.Unlock()

	accept := false
	for _, handler := range handlers {
		if handler(d) {
			accept = true
		}
	}
	return accept
}

func (h *dialogHub) active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers)
}
