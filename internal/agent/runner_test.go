package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"punchAgent/internal/browser"
	"punchAgent/internal/config"
	"punchAgent/internal/database"
	"punchAgent/internal/diagnostics"
	"punchAgent/internal/page"
	"punchAgent/internal/punch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scriptedFactory отдает браузеры, у которых первые failures запусков падают.
type scriptedFactory struct {
	mu       sync.Mutex
	failures int
	made     []*fakeBrowser
}

func (f *scriptedFactory) new() browser.Browser {
	f.mu.Lock()
	defer f.mu.Unlock()

	br := newFakeBrowser(snap(landingURL, "Punch In"))
	br.body = "success"
	if len(f.made) < f.failures {
		br.launchErr = fmt.Errorf("launch #%d: browser exited", len(f.made)+1)
	}
	f.made = append(f.made, br)
	return br
}

func newTestRunner(t *testing.T, factory browser.Factory, cfg Config) (*Runner, *[]time.Duration) {
	t.Helper()
	r := NewRunner(factory, page.NewSecurTime(landingURL), zaptest.NewLogger(t), cfg)
	r.newRunID = func() string { return "run-fixed" }

	var sleeps []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return r, &sleeps
}

func TestRunner_SucceedsOnLastAttempt(t *testing.T) {
	factory := &scriptedFactory{failures: 2}
	rec := &memRecorder{}
	cfg := testConfig()
	cfg.Session.MaxRetries = 3
	cfg.Session.RetryDelay = 10 * time.Second
	cfg.Recorder = rec

	r, sleeps := newTestRunner(t, factory.new, cfg)

	res, err := r.Run(context.Background(), punch.In)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "run-fixed", res.RunID)
	assert.Equal(t, punch.In, res.Action)
	assert.Equal(t, "exact", res.Strategy)
	assert.True(t, res.Confirmed)

	assert.Len(t, factory.made, 3)
	for _, br := range factory.made {
		assert.True(t, br.closed, "каждый браузер закрыт")
	}
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, *sleeps)

	require.Len(t, rec.attempts, 2)
	assert.Equal(t, "launch", rec.attempts[0].Phase)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, database.StatusSucceeded, rec.finished[0].Status)
	assert.Equal(t, 3, rec.finished[0].Attempts)
	assert.Equal(t, TriggerCLI, rec.started[0].Trigger)
}

func TestRunner_FailsAfterExactlyMaxRetries(t *testing.T) {
	factory := &scriptedFactory{failures: 100}
	rec := &memRecorder{}
	cfg := testConfig()
	cfg.Recorder = rec

	r, sleeps := newTestRunner(t, factory.new, cfg)

	_, err := r.Run(context.Background(), punch.Out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.ErrorIs(t, err, ErrLaunch)
	assert.Contains(t, err.Error(), "launch #2")

	assert.Len(t, factory.made, 2)
	assert.Len(t, *sleeps, 1, "после последней попытки паузы нет")
	assert.Len(t, rec.attempts, 2)
	assert.Equal(t, database.StatusFailed, rec.finished[0].Status)
}

func TestRunner_ErrorScreenshotAndSanitizedHistory(t *testing.T) {
	dir := t.TempDir()
	rec := &memRecorder{}
	cfg := testConfig()
	cfg.Session.MaxRetries = 1
	cfg.Recorder = rec
	cfg.Shooter = diagnostics.New(config.Diagnostics{Enabled: true, Dir: dir}, zaptest.NewLogger(t))

	br := newFakeBrowser(snap(loginURL, "Sign In"))
	br.fillErr = errors.New("cannot type s3cret-pass into field")

	r, _ := newTestRunner(t, func() browser.Browser { return br }, cfg)

	_, err := r.Run(context.Background(), punch.In)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)

	require.Len(t, rec.attempts, 1)
	attempt := rec.attempts[0]
	assert.Equal(t, "authenticate", attempt.Phase)
	assert.NotContains(t, attempt.Error, "s3cret-pass")
	assert.Contains(t, attempt.Error, "[FILTERED]")
	assert.Contains(t, attempt.ScreenshotPath, "error-attempt-1")
	assert.Equal(t, []string{loginURL}, br.navigations)
	assert.True(t, br.closed)
}

func TestRunner_Busy(t *testing.T) {
	r, _ := newTestRunner(t, (&scriptedFactory{}).new, testConfig())

	r.mu.Lock()
	_, err := r.Run(context.Background(), punch.In)
	r.mu.Unlock()
	assert.ErrorIs(t, err, ErrBusy)

	_, err = r.Check(context.Background())
	assert.NoError(t, err)
}

func TestRunner_CancelStopsRetries(t *testing.T) {
	factory := &scriptedFactory{failures: 100}
	cfg := testConfig()
	cfg.Session.MaxRetries = 5
	r, _ := newTestRunner(t, factory.new, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	r.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := r.Run(ctx, punch.In)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrAttemptsExhausted)
	assert.Len(t, factory.made, 1)
}

func TestRunner_Check(t *testing.T) {
	br := newFakeBrowser(snap(loginURL, "Sign In"), snap(landingURL, "Punch In", "Punch Out"))
	r, _ := newTestRunner(t, func() browser.Browser { return br }, testConfig())

	report, err := r.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, page.PhaseReady, report.Phase)
	assert.Equal(t, []string{"Punch In", "Punch Out"}, report.Buttons)
	require.NotNil(t, report.Geolocation)
	assert.InDelta(t, 17.4661607, report.Geolocation.Latitude, 1e-9)
	assert.Empty(t, br.clicked)
	assert.True(t, br.closed)
}

func TestPhaseOf(t *testing.T) {
	assert.Equal(t, "locate", phaseOf(fmt.Errorf("wrap: %w", &page.ButtonNotFoundError{Label: "Punch In"})))
	assert.Equal(t, "ensure_ready", phaseOf(newActionError(ErrUnreachableState, "ensure_ready", "", nil)))
	assert.Equal(t, "punch", phaseOf(errors.New("click failed")))
}
