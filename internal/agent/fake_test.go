package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"punchAgent/internal/browser"
	"punchAgent/internal/database"
	"punchAgent/internal/llm"
)

// fakeBrowser отдает снимки по очереди; последний повторяется.
type fakeBrowser struct {
	mu sync.Mutex

	snapshots []*browser.PageSnapshot
	body      string

	launchErr   error
	navigateErr error
	fillErr     error
	submitErr   error
	clickErr    error

	navigations []string
	fills       map[string]string
	submits     []string
	clicked     []int
	shots       []string
	closed      bool

	dialogs         int
	dialogsAtClick  int
	dialogDecisions []bool
	handlers        map[int]browser.DialogHandler
	nextHandler     int

	snapshotCalls int
}

func newFakeBrowser(snapshots ...*browser.PageSnapshot) *fakeBrowser {
	return &fakeBrowser{
		snapshots: snapshots,
		fills:     make(map[string]string),
		handlers:  make(map[int]browser.DialogHandler),
	}
}

func snap(url string, labels ...string) *browser.PageSnapshot {
	buttons := make([]browser.Button, len(labels))
	for i, label := range labels {
		buttons[i] = browser.Button{Index: i, Text: label, Visible: true}
	}
	return &browser.PageSnapshot{URL: url, Buttons: buttons}
}

func (f *fakeBrowser) Launch(ctx context.Context) error { return f.launchErr }

func (f *fakeBrowser) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigations = append(f.navigations, url)
	return f.navigateErr
}

func (f *fakeBrowser) Snapshot(ctx context.Context) (*browser.PageSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.snapshots) == 0 {
		return nil, errors.New("пустая страница")
	}
	i := f.snapshotCalls
	if i >= len(f.snapshots) {
		i = len(f.snapshots) - 1
	}
	f.snapshotCalls++
	return f.snapshots[i], nil
}

func (f *fakeBrowser) Fill(ctx context.Context, selector, value string) error {
	if f.fillErr != nil {
		return f.fillErr
	}
	f.fills[selector] = value
	return nil
}

func (f *fakeBrowser) Click(ctx context.Context, selector string) error { return nil }

func (f *fakeBrowser) ClickAndWaitForNavigation(ctx context.Context, selector string, timeout time.Duration) error {
	f.submits = append(f.submits, selector)
	return f.submitErr
}

func (f *fakeBrowser) ClickButton(ctx context.Context, index int) error {
	f.mu.Lock()
	f.dialogsAtClick = len(f.handlers)
	handlers := make([]browser.DialogHandler, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	// Страница спрашивает подтверждение во время нажатия.
	for _, h := range handlers {
		f.dialogDecisions = append(f.dialogDecisions, h(browser.Dialog{Type: "confirm", Message: "Are you sure?"}))
	}

	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicked = append(f.clicked, index)
	return nil
}

func (f *fakeBrowser) BodyText(ctx context.Context) (string, error) { return f.body, nil }

func (f *fakeBrowser) Screenshot(ctx context.Context, path string) error {
	f.shots = append(f.shots, path)
	return nil
}

func (f *fakeBrowser) Geolocation(ctx context.Context) (*browser.Geolocation, error) {
	return &browser.Geolocation{Latitude: 17.4661607, Longitude: 78.2846192, Accuracy: 50}, nil
}

func (f *fakeBrowser) OnDialog(handler browser.DialogHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextHandler
	f.nextHandler++
	f.handlers[id] = handler
	f.dialogs++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

func (f *fakeBrowser) activeDialogs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *fakeBrowser) Close() error {
	f.closed = true
	return nil
}

type fakePicker struct {
	index  int
	err    error
	labels []string
}

func (p *fakePicker) PickButton(ctx context.Context, runID, label string, labels []string) (*llm.ButtonChoice, error) {
	p.labels = labels
	if p.err != nil {
		return nil, p.err
	}
	return &llm.ButtonChoice{Index: p.index, Reasoning: "test"}, nil
}

type memRecorder struct {
	mu       sync.Mutex
	started  []*database.PunchRun
	attempts []database.PunchAttempt
	finished []database.PunchRun
}

func (r *memRecorder) StartRun(ctx context.Context, run *database.PunchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, run)
	return nil
}

func (r *memRecorder) RecordAttempt(ctx context.Context, attempt *database.PunchAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *attempt)
	return nil
}

func (r *memRecorder) FinishRun(ctx context.Context, run *database.PunchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, *run)
	return nil
}
