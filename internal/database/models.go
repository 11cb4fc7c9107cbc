// Package database хранит историю запусков отметки в PostgreSQL через GORM.
package database

import "time"

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// PunchRun - один запуск сценария отметки со всеми попытками.
type PunchRun struct {
	ID         uint           `gorm:"primaryKey" json:"-"`
	RunID      string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"run_id"`
	Action     string         `gorm:"type:varchar(8);not null" json:"action"`
	Trigger    string         `gorm:"type:varchar(16);not null;default:'cli'" json:"trigger"` // cli, api, schedule
	Status     string         `gorm:"type:varchar(32);not null;default:'running'" json:"status"`
	Attempts   int            `gorm:"not null;default:0" json:"attempts"`
	Strategy   string         `gorm:"type:varchar(16)" json:"strategy,omitempty"` // каким правилом найдена кнопка
	Confirmed  bool           `gorm:"not null;default:false" json:"confirmed"`
	Summary    string         `gorm:"type:text" json:"summary,omitempty"`
	StartedAt  time.Time      `gorm:"autoCreateTime" json:"started_at"`
	EndedAt    *time.Time     `json:"ended_at,omitempty"`
	AttemptLog []PunchAttempt `gorm:"foreignKey:RunID;references:RunID" json:"attempt_log,omitempty"`
}

// PunchAttempt - одна попытка внутри запуска.
type PunchAttempt struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	RunID          string    `gorm:"type:varchar(36);index;not null" json:"-"`
	AttemptNo      int       `gorm:"not null" json:"attempt"`
	Phase          string    `gorm:"type:varchar(32)" json:"phase,omitempty"` // последнее состояние страницы
	Error          string    `gorm:"type:text" json:"error,omitempty"`
	ScreenshotPath string    `gorm:"type:text" json:"screenshot,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// LlmLog - запрос к LLM при поиске кнопки.
type LlmLog struct {
	ID           uint      `gorm:"primaryKey"`
	RunID        string    `gorm:"type:varchar(36);index"`
	Role         string    `gorm:"type:varchar(16);not null"`
	PromptText   string    `gorm:"type:text;not null"`
	ResponseText string    `gorm:"type:text"`
	Model        string    `gorm:"type:varchar(64)"`
	TokensUsed   int
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// Finished сообщает, завершен ли запуск.
func (r *PunchRun) Finished() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}
