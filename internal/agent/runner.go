package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"punchAgent/internal/browser"
	"punchAgent/internal/database"
	"punchAgent/internal/diagnostics"
	"punchAgent/internal/page"
	"punchAgent/internal/punch"
	"punchAgent/internal/sanitizer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner повторяет весь сценарий в новом браузере, пока он не пройдет
// или не кончатся попытки. Одновременно выполняется только один запуск.
type Runner struct {
	factory browser.Factory
	adapter page.Adapter
	log     *zap.Logger
	cfg     Config

	newRunID func() string
	sleep    func(ctx context.Context, d time.Duration) error

	mu sync.Mutex
}

// NewRunner заполняет недостающие зависимости значениями по умолчанию:
// MaxRetries 2, RetryDelay 10 секунд, история и скриншоты отключены.
func NewRunner(factory browser.Factory, adapter page.Adapter, log *zap.Logger, cfg Config) *Runner {
	if cfg.Session.MaxRetries <= 0 {
		cfg.Session.MaxRetries = 2
	}
	if cfg.Session.RetryDelay <= 0 {
		cfg.Session.RetryDelay = 10 * time.Second
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	if cfg.Shooter == nil {
		cfg.Shooter = diagnostics.Disabled()
	}
	if cfg.Sanitizer == nil {
		cfg.Sanitizer = sanitizer.New(cfg.Credentials.Username, cfg.Credentials.Password)
	}

	return &Runner{
		factory:  factory,
		adapter:  adapter,
		log:      log,
		cfg:      cfg,
		newRunID: uuid.NewString,
		sleep:    sleepCtx,
	}
}

func (r *Runner) Run(ctx context.Context, action punch.Action) (*Result, error) {
	return r.RunTriggered(ctx, action, TriggerCLI)
}

// RunTriggered выполняет отметку с попытками. trigger попадает в историю запусков.
// Если запуск уже идет, сразу возвращает ErrBusy.
func (r *Runner) RunTriggered(ctx context.Context, action punch.Action, trigger string) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrBusy
	}
	defer r.mu.Unlock()

	runID := r.newRunID()
	log := r.log.With(zap.String("run_id", runID), zap.String("action", action.String()))
	started := time.Now()
	maxRetries := r.cfg.Session.MaxRetries

	run := &database.PunchRun{
		RunID:   runID,
		Action:  action.String(),
		Trigger: trigger,
		Status:  database.StatusRunning,
	}
	if err := r.cfg.Recorder.StartRun(ctx, run); err != nil {
		log.Warn("Не удалось записать начало запуска", zap.Error(err))
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		attemptLog := log.With(zap.Int("attempt", attempt))
		attemptLog.Info("🚀 Запуск отметки", zap.Int("max_attempts", maxRetries), zap.String("trigger", trigger))

		outcome, shot, err := r.attempt(ctx, runID, attempt, action, attemptLog)
		run.Attempts = attempt

		if err == nil {
			run.Status = database.StatusSucceeded
			run.Strategy = outcome.Strategy.String()
			run.Confirmed = outcome.Confirmed
			run.Summary = fmt.Sprintf("нажата кнопка %q", outcome.Button)
			r.finish(ctx, run, log)

			log.Info("✅ Отметка выполнена", zap.Int("attempts", attempt), zap.Bool("confirmed", outcome.Confirmed))
			return &Result{
				RunID:      runID,
				Action:     action,
				Attempts:   attempt,
				Button:     outcome.Button,
				Strategy:   outcome.Strategy.String(),
				Confirmed:  outcome.Confirmed,
				Screenshot: outcome.Screenshot,
				Duration:   time.Since(started),
			}, nil
		}

		lastErr = err
		message := r.cfg.Sanitizer.Error(err)
		attemptLog.Error("❌ Попытка не удалась", zap.String("error", message))
		if recErr := r.cfg.Recorder.RecordAttempt(ctx, &database.PunchAttempt{
			RunID:          runID,
			AttemptNo:      attempt,
			Phase:          phaseOf(err),
			Error:          message,
			ScreenshotPath: shot,
		}); recErr != nil {
			attemptLog.Warn("Не удалось записать попытку", zap.Error(recErr))
		}

		if ctx.Err() != nil {
			break
		}
		if attempt < maxRetries {
			attemptLog.Info("⏳ Пауза перед повтором", zap.Duration("delay", r.cfg.Session.RetryDelay))
			if err := r.sleep(ctx, r.cfg.Session.RetryDelay); err != nil {
				break
			}
		}
	}

	run.Status = database.StatusFailed
	run.Summary = r.cfg.Sanitizer.Error(lastErr)
	r.finish(ctx, run, log)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("запуск прерван после %d попыток: %w (последняя ошибка: %v)", run.Attempts, ctxErr, lastErr)
	}
	return nil, fmt.Errorf("%w (%d): %w", ErrAttemptsExhausted, maxRetries, lastErr)
}

// attempt - одна попытка в свежем браузере. Браузер закрывается в любом случае.
func (r *Runner) attempt(ctx context.Context, runID string, n int, action punch.Action, log *zap.Logger) (outcome *Outcome, shot string, err error) {
	br := r.factory()
	defer func() {
		if cerr := br.Close(); cerr != nil {
			log.Warn("Ошибка закрытия браузера", zap.Error(cerr))
		}
	}()

	if err := br.Launch(ctx); err != nil {
		return nil, "", newActionError(ErrLaunch, "launch", "", err)
	}

	ag := New(br, r.adapter, log, r.cfg, runID)
	if err := ag.Start(ctx); err != nil {
		return nil, r.errorShot(ctx, br, n), err
	}

	outcome, err = ag.Punch(ctx, action)
	if err != nil {
		return nil, r.errorShot(ctx, br, n), err
	}
	return outcome, "", nil
}

// errorShot снимает страницу после сбоя, даже если ctx уже отменен.
func (r *Runner) errorShot(ctx context.Context, br browser.Browser, n int) string {
	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return r.cfg.Shooter.Capture(shotCtx, br, fmt.Sprintf("error-attempt-%d", n))
}

func (r *Runner) finish(ctx context.Context, run *database.PunchRun, log *zap.Logger) {
	if err := r.cfg.Recorder.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("Не удалось записать итог запуска", zap.Error(err))
	}
}

// CheckReport - результат проверки без нажатия кнопки.
type CheckReport struct {
	URL         string               `json:"url"`
	Phase       page.Phase           `json:"phase"`
	Buttons     []string             `json:"buttons"`
	Geolocation *browser.Geolocation `json:"geolocation,omitempty"`
}

// Check входит на сайт и доводит страницу до готовности, но ничего не нажимает.
// Выполняется одна попытка.
func (r *Runner) Check(ctx context.Context) (*CheckReport, error) {
	if !r.mu.TryLock() {
		return nil, ErrBusy
	}
	defer r.mu.Unlock()

	runID := r.newRunID()
	log := r.log.With(zap.String("run_id", runID), zap.String("mode", "check"))

	br := r.factory()
	defer br.Close()

	if err := br.Launch(ctx); err != nil {
		return nil, newActionError(ErrLaunch, "launch", "", err)
	}

	ag := New(br, r.adapter, log, r.cfg, runID)
	if err := ag.Start(ctx); err != nil {
		return nil, err
	}

	ready, err := ag.EnsureReady(ctx)
	if err != nil {
		r.errorShot(ctx, br, 1)
		return nil, err
	}

	report := &CheckReport{
		URL:     ready.Snapshot.URL,
		Phase:   ready.State.Phase(),
		Buttons: ready.Snapshot.Labels(),
	}

	geo, err := br.Geolocation(ctx)
	if err != nil {
		log.Warn("Не удалось прочитать геолокацию страницы", zap.Error(err))
	} else {
		report.Geolocation = geo
	}
	return report, nil
}

func phaseOf(err error) string {
	switch {
	case errors.Is(err, ErrLaunch):
		return "launch"
	case errors.Is(err, ErrAuthentication):
		return "authenticate"
	case errors.Is(err, ErrUnreachableState):
		return "ensure_ready"
	case errors.Is(err, ErrButtonNotFound):
		return "locate"
	default:
		return "punch"
	}
}
