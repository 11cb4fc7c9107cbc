// Package scheduler запускает отметки по cron-расписанию.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"punchAgent/internal/agent"
	"punchAgent/internal/config"
	"punchAgent/internal/punch"
	"punchAgent/internal/sanitizer"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Puncher interface {
	RunTriggered(ctx context.Context, action punch.Action, trigger string) (*agent.Result, error)
}

type entry struct {
	action punch.Action
	expr   string
	id     cron.EntryID
}

type Scheduler struct {
	cron      *cron.Cron
	puncher   Puncher
	sanitizer *sanitizer.DataSanitizer
	log       *zap.Logger
	entries   []entry

	mu      sync.Mutex
	started bool
}

// New проверяет выражения расписания. Пустое выражение отключает действие.
// Время в выражениях - UTC.
func New(cfg config.Schedule, puncher Puncher, san *sanitizer.DataSanitizer, log *zap.Logger) (*Scheduler, error) {
	if san == nil {
		san = sanitizer.New()
	}
	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		puncher:   puncher,
		sanitizer: san,
		log:       log,
	}

	for _, e := range []entry{{action: punch.In, expr: cfg.In}, {action: punch.Out, expr: cfg.Out}} {
		if e.expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(e.expr); err != nil {
			return nil, fmt.Errorf("расписание %s %q: %w", e.action, e.expr, err)
		}
		s.entries = append(s.entries, e)
	}
	if len(s.entries) == 0 {
		return nil, errors.New("расписание пустое: задайте SCHEDULE_IN или SCHEDULE_OUT")
	}
	return s, nil
}

// Run регистрирует задания и работает до отмены ctx.
// После отмены ждет завершения уже начатой отметки.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("планировщик уже запущен")
	}
	s.started = true
	for i := range s.entries {
		action := s.entries[i].action
		id, err := s.cron.AddFunc(s.entries[i].expr, func() { s.trigger(ctx, action) })
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("расписание %s: %w", action, err)
		}
		s.entries[i].id = id
	}
	s.mu.Unlock()

	s.cron.Start()
	for _, e := range s.entries {
		s.log.Info("⏰ Отметка запланирована",
			zap.String("action", e.action.String()),
			zap.String("cron", e.expr),
			zap.Time("next", s.cron.Entry(e.id).Next),
		)
	}

	<-ctx.Done()
	s.log.Info("⏰ Остановка планировщика")
	<-s.cron.Stop().Done()
	s.log.Info("✅ Планировщик остановлен")
	return nil
}

// Next возвращает время ближайших срабатываний после from.
func (s *Scheduler) Next(from time.Time) map[punch.Action]time.Time {
	next := make(map[punch.Action]time.Time, len(s.entries))
	for _, e := range s.entries {
		sched, err := cron.ParseStandard(e.expr)
		if err != nil {
			continue
		}
		next[e.action] = sched.Next(from.In(time.UTC))
	}
	return next
}

func (s *Scheduler) trigger(ctx context.Context, action punch.Action) {
	if ctx.Err() != nil {
		return
	}
	s.log.Info("⏰ Срабатывание расписания", zap.String("action", action.String()))

	res, err := s.puncher.RunTriggered(ctx, action, agent.TriggerSchedule)
	switch {
	case errors.Is(err, agent.ErrBusy):
		s.log.Warn("Отметка уже выполняется, срабатывание пропущено", zap.String("action", action.String()))
	case err != nil:
		s.log.Error("❌ Плановая отметка не удалась", zap.String("action", action.String()), zap.String("error", s.sanitizer.Error(err)))
	default:
		s.log.Info("✅ Плановая отметка выполнена",
			zap.String("run_id", res.RunID),
			zap.String("action", action.String()),
			zap.Bool("confirmed", res.Confirmed),
		)
	}
}
