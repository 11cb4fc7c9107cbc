// Package agent ведет браузер от страницы входа до нажатой кнопки отметки
// и повторяет весь сценарий при сбоях.
package agent

import (
	"context"
	"time"

	"punchAgent/internal/browser"
	"punchAgent/internal/config"
	"punchAgent/internal/database"
	"punchAgent/internal/diagnostics"
	"punchAgent/internal/llm"
	"punchAgent/internal/page"
	"punchAgent/internal/punch"
	"punchAgent/internal/sanitizer"
)

const (
	TriggerCLI      = "cli"
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
)

// Config содержит параметры сессии и необязательные зависимости.
type Config struct {
	Session     config.Session
	Credentials config.Credentials
	Picker      llm.ButtonPicker         // запасной поиск кнопки через LLM, может быть nil
	Recorder    Recorder                 // история запусков, по умолчанию NopRecorder
	Shooter     *diagnostics.Shooter     // скриншоты, по умолчанию выключены
	Sanitizer   *sanitizer.DataSanitizer // маскирование секретов в ошибках
}

// Recorder сохраняет ход запуска. Ошибки записи не прерывают отметку.
type Recorder interface {
	StartRun(ctx context.Context, run *database.PunchRun) error
	RecordAttempt(ctx context.Context, attempt *database.PunchAttempt) error
	FinishRun(ctx context.Context, run *database.PunchRun) error
}

type NopRecorder struct{}

func (NopRecorder) StartRun(context.Context, *database.PunchRun) error { return nil }
func (NopRecorder) RecordAttempt(context.Context, *database.PunchAttempt) error { return nil }
func (NopRecorder) FinishRun(context.Context, *database.PunchRun) error { return nil }

// Readiness - снимок страницы, на которой можно нажимать кнопку.
type Readiness struct {
	Snapshot *browser.PageSnapshot
	State    page.State
}

// Outcome - результат нажатия кнопки в одной сессии браузера.
type Outcome struct {
	Button     string
	Strategy   page.Strategy
	Confirmed  bool
	Screenshot string
}

// Result - итог запуска.
type Result struct {
	RunID      string        `json:"run_id"`
	Action     punch.Action  `json:"action"`
	Attempts   int           `json:"attempts"`
	Button     string        `json:"button"`
	Strategy   string        `json:"strategy"`
	Confirmed  bool          `json:"confirmed"`
	Screenshot string        `json:"screenshot,omitempty"`
	Duration   time.Duration `json:"duration"`
}
