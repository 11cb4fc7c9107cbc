package page

import (
	"errors"
	"testing"

	"punchAgent/internal/browser"
	"punchAgent/internal/punch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const landing = "https://infoservices.securtime.adp.com/welcome"

func snapshot(url string, labels ...string) *browser.PageSnapshot {
	buttons := make([]browser.Button, len(labels))
	for i, label := range labels {
		buttons[i] = browser.Button{Index: i, Text: label, Visible: true}
	}
	return &browser.PageSnapshot{URL: url, Buttons: buttons}
}

func TestClassify(t *testing.T) {
	adapter := NewSecurTime(landing)

	tests := []struct {
		name  string
		snap  *browser.PageSnapshot
		state State
		phase Phase
	}{
		{
			name:  "sign in wins over punch buttons",
			snap:  snapshot(landing, "Punch In", "Sign In", "Punch Out"),
			state: State{NeedsLogin: true, HasPunchIn: true, HasPunchOut: true},
			phase: PhaseNeedsLogin,
		},
		{
			name:  "ready with punch in",
			snap:  snapshot(landing, "Menu", "Punch In"),
			state: State{HasPunchIn: true, OnLanding: true},
			phase: PhaseReady,
		},
		{
			name:  "ready off landing",
			snap:  snapshot("https://infoservices.securtime.adp.com/timesheet", "Punch Out"),
			state: State{HasPunchOut: true},
			phase: PhaseReady,
		},
		{
			name:  "landing without buttons",
			snap:  snapshot(landing+"?tab=1", "Menu"),
			state: State{OnLanding: true},
			phase: PhaseLandingNoButtons,
		},
		{
			name:  "somewhere else",
			snap:  snapshot("https://infoservices.securtime.adp.com/profile"),
			state: State{},
			phase: PhaseOffLanding,
		},
		{
			name:  "nil snapshot",
			snap:  nil,
			state: State{},
			phase: PhaseOffLanding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := adapter.Classify(tt.snap)
			assert.Equal(t, tt.state, state)
			assert.Equal(t, tt.phase, state.Phase())
		})
	}
}

func TestClassify_IsPure(t *testing.T) {
	adapter := NewSecurTime(landing)
	snap := snapshot(landing, "Punch In")

	first := adapter.Classify(snap)
	second := adapter.Classify(snap)
	assert.Equal(t, first, second)
	assert.Equal(t, "Punch In", snap.Buttons[0].Text)
}

func TestState_Has(t *testing.T) {
	s := State{HasPunchOut: true}
	assert.True(t, s.Has(punch.Out))
	assert.False(t, s.Has(punch.In))
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name     string
		labels   []string
		action   punch.Action
		index    int
		strategy Strategy
	}{
		{"exact", []string{"Cancel", "Punch In"}, punch.In, 1, StrategyExact},
		{"exact with spaces", []string{"  Punch Out  "}, punch.Out, 0, StrategyExact},
		{"exact beats earlier loose match", []string{"Punch In Now", "Punch In"}, punch.In, 1, StrategyExact},
		{"punch and word", []string{"Cancel", "Punch In Now"}, punch.In, 1, StrategyPunchWord},
		{"word only", []string{"Cancel", "clock OUT"}, punch.Out, 1, StrategyWord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewSecurTime(landing).Locate(snapshot(landing, tt.labels...), tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.index, m.Button.Index)
			assert.Equal(t, tt.strategy, m.Strategy)
		})
	}
}

func TestLocate_NotFound(t *testing.T) {
	_, err := NewSecurTime(landing).Locate(snapshot(landing, "Cancel", "Submit"), punch.In)
	require.Error(t, err)

	var notFound *ButtonNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Punch In", notFound.Label)
	assert.Equal(t, []string{"Cancel", "Submit"}, notFound.Observed)
	assert.ErrorIs(t, err, ErrButtonNotFound)
	assert.Contains(t, err.Error(), `"Cancel", "Submit"`)
}

func TestLocate_NilSnapshot(t *testing.T) {
	_, err := NewSecurTime(landing).Locate(nil, punch.Out)
	assert.ErrorIs(t, err, ErrButtonNotFound)
}

func TestStrategy_String(t *testing.T) {
	assert.Equal(t, "punch+word", StrategyPunchWord.String())
	assert.Equal(t, "llm", StrategyLLM.String())
	assert.Equal(t, "unknown", Strategy(0).String())
}

func TestSecurTime_Defaults(t *testing.T) {
	adapter := NewSecurTime("https://example.test/home")
	assert.Equal(t, "https://example.test/home", adapter.LandingURL())
	assert.True(t, adapter.Classify(snapshot("https://example.test/home")).OnLanding)

	adapter = NewSecurTime("")
	assert.True(t, adapter.Classify(snapshot("https://x.test/welcome")).OnLanding)

	form := adapter.LoginForm()
	assert.Equal(t, `input[type="email"]`, form.Email)
	assert.Equal(t, `input[type="password"]`, form.Password)
	assert.Contains(t, form.Submit, "button.mybtn")
}

func TestConfirmed(t *testing.T) {
	adapter := NewSecurTime(landing)
	assert.True(t, adapter.Confirmed("Punch recorded SUCCESSFULLY"))
	assert.False(t, adapter.Confirmed("Punch recorded"))
}
