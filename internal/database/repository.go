package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("запуск не найден")

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) StartRun(ctx context.Context, run *PunchRun) error {
	if run.Status == "" {
		run.Status = StatusRunning
	}
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *RunRepository) RecordAttempt(ctx context.Context, attempt *PunchAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// FinishRun сохраняет итог запуска и время окончания.
func (r *RunRepository) FinishRun(ctx context.Context, run *PunchRun) error {
	now := time.Now()
	run.EndedAt = &now
	return r.db.WithContext(ctx).Model(&PunchRun{}).
		Where("run_id = ?", run.RunID).
		Updates(map[string]any{
			"status":    run.Status,
			"attempts":  run.Attempts,
			"strategy":  run.Strategy,
			"confirmed": run.Confirmed,
			"summary":   run.Summary,
			"ended_at":  run.EndedAt,
		}).Error
}

// GetRun возвращает запуск вместе с попытками.
func (r *RunRepository) GetRun(ctx context.Context, runID string) (*PunchRun, error) {
	var run PunchRun
	err := r.db.WithContext(ctx).
		Preload("AttemptLog", func(db *gorm.DB) *gorm.DB { return db.Order("attempt_no ASC") }).
		Where("run_id = ?", runID).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepository) ListRuns(ctx context.Context, limit, offset int) ([]PunchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []PunchRun
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Offset(offset).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *RunRepository) LogLLMRequest(ctx context.Context, runID, role, promptText, responseText, model string, tokensUsed int) error {
	return r.db.WithContext(ctx).Create(&LlmLog{
		RunID:        runID,
		Role:         role,
		PromptText:   promptText,
		ResponseText: responseText,
		Model:        model,
		TokensUsed:   tokensUsed,
	}).Error
}
