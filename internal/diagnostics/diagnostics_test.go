package diagnostics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"punchAgent/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fileShot struct {
	err   error
	paths []string
}

func (f *fileShot) Screenshot(ctx context.Context, path string) error {
	if f.err != nil {
		return f.err
	}
	f.paths = append(f.paths, path)
	return os.WriteFile(path, []byte("png"), 0o644)
}

func TestCapture(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	s := New(config.Diagnostics{Enabled: true, Dir: dir}, zaptest.NewLogger(t))
	s.now = func() time.Time { return time.Date(2024, 3, 1, 9, 15, 30, 0, time.UTC) }

	br := &fileShot{}
	path := s.Capture(context.Background(), br, "page-state-attempt-1")

	assert.Equal(t, filepath.Join(dir, "page-state-attempt-1-20240301-091530.000.png"), path)
	assert.FileExists(t, path)
	assert.Equal(t, []string{path}, br.paths)
}

func TestCapture_Disabled(t *testing.T) {
	br := &fileShot{}

	s := New(config.Diagnostics{Enabled: false, Dir: t.TempDir()}, zaptest.NewLogger(t))
	assert.Empty(t, s.Capture(context.Background(), br, "login"))
	assert.Empty(t, Disabled().Capture(context.Background(), br, "login"))

	var nilShooter *Shooter
	assert.Empty(t, nilShooter.Capture(context.Background(), br, "login"))
	assert.Empty(t, br.paths)
}

func TestCapture_ErrorSwallowed(t *testing.T) {
	s := New(config.Diagnostics{Enabled: true, Dir: t.TempDir()}, zaptest.NewLogger(t))
	path := s.Capture(context.Background(), &fileShot{err: errors.New("target closed")}, "error-attempt-2")
	assert.Empty(t, path)
}

func TestFileName(t *testing.T) {
	s := Disabled()
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 6e6, time.UTC) }
	require.Equal(t, "success-in-20240102-030405.006.png", s.fileName(" success in "))
	require.Equal(t, "screenshot-20240102-030405.006.png", s.fileName(""))
}
