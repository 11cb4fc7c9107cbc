package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"punchAgent/internal/agent"
	"punchAgent/internal/config"
	"punchAgent/internal/punch"
	"punchAgent/internal/sanitizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePuncher struct {
	mu    sync.Mutex
	err   error
	calls []punch.Action
}

func (f *fakePuncher) RunTriggered(ctx context.Context, action punch.Action, trigger string) (*agent.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, action)
	if f.err != nil {
		return nil, f.err
	}
	return &agent.Result{RunID: "run-1", Action: action}, nil
}

func TestNew_Validation(t *testing.T) {
	log := zaptest.NewLogger(t)

	_, err := New(config.Schedule{In: "not a cron"}, &fakePuncher{}, nil, log)
	assert.Error(t, err)

	_, err = New(config.Schedule{}, &fakePuncher{}, nil, log)
	assert.Error(t, err)

	s, err := New(config.Schedule{In: "0 5 * * 1-5"}, &fakePuncher{}, nil, log)
	require.NoError(t, err)
	assert.Len(t, s.entries, 1)
}

func TestNext(t *testing.T) {
	s, err := New(config.Schedule{In: "0 5 * * 1-5", Out: "30 15 * * 1-5"}, &fakePuncher{}, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	// пятница, после утренней отметки
	from := time.Date(2024, 5, 10, 6, 0, 0, 0, time.UTC)
	next := s.Next(from)

	assert.Equal(t, time.Date(2024, 5, 13, 5, 0, 0, 0, time.UTC), next[punch.In], "в выходные расписание молчит")
	assert.Equal(t, time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC), next[punch.Out])
}

func TestTrigger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := &fakePuncher{}
	s, err := New(config.Schedule{In: "0 5 * * *"}, p, nil, zap.New(core))
	require.NoError(t, err)

	s.trigger(context.Background(), punch.In)
	assert.Equal(t, []punch.Action{punch.In}, p.calls)
	assert.Equal(t, 1, logs.FilterMessage("✅ Плановая отметка выполнена").Len())

	p.err = agent.ErrBusy
	s.trigger(context.Background(), punch.Out)
	assert.Equal(t, 1, logs.FilterMessage("Отметка уже выполняется, срабатывание пропущено").Len())

	p.err = errors.New("boom")
	s.trigger(context.Background(), punch.Out)
	assert.Equal(t, 1, logs.FilterMessage("❌ Плановая отметка не удалась").Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.trigger(ctx, punch.In)
	assert.Len(t, p.calls, 3, "после отмены отметка не запускается")
}

func TestTrigger_MasksSecretsInFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := &fakePuncher{err: errors.New("login rejected for s3cret-pass")}
	s, err := New(config.Schedule{Out: "30 15 * * *"}, p, sanitizer.New("s3cret-pass"), zap.New(core))
	require.NoError(t, err)

	s.trigger(context.Background(), punch.Out)

	failed := logs.FilterMessage("❌ Плановая отметка не удалась").All()
	require.Len(t, failed, 1)
	msg, ok := failed[0].ContextMap()["error"].(string)
	require.True(t, ok)
	assert.Contains(t, msg, "login rejected")
	assert.NotContains(t, msg, "s3cret-pass")
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, err := New(config.Schedule{In: "0 5 * * *"}, &fakePuncher{}, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("планировщик не остановился")
	}

	assert.Error(t, s.Run(context.Background()), "повторный запуск запрещен")
}
