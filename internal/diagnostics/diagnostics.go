// Package diagnostics сохраняет скриншоты ключевых моментов сценария.
// Ошибки съемки только логируются: скриншот не должен ломать отметку.
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"punchAgent/internal/config"

	"go.uber.org/zap"
)

type Screenshotter interface {
	Screenshot(ctx context.Context, path string) error
}

type Shooter struct {
	enabled bool
	dir     string
	log     *zap.Logger
	now     func() time.Time
}

func New(cfg config.Diagnostics, log *zap.Logger) *Shooter {
	dir := cfg.Dir
	if dir == "" {
		dir = "screenshots"
	}
	return &Shooter{
		enabled: cfg.Enabled,
		dir:     dir,
		log:     log,
		now:     time.Now,
	}
}

// Disabled возвращает Shooter, который ничего не снимает.
func Disabled() *Shooter {
	return &Shooter{log: zap.NewNop(), now: time.Now}
}

// Capture снимает полную страницу в файл "<name>-<время>.png" и возвращает путь.
// Пустая строка - скриншот не сделан.
func (s *Shooter) Capture(ctx context.Context, br Screenshotter, name string) string {
	if s == nil || !s.enabled || br == nil {
		return ""
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Warn("Не удалось создать каталог скриншотов", zap.String("dir", s.dir), zap.Error(err))
		return ""
	}

	path := filepath.Join(s.dir, s.fileName(name))
	if err := br.Screenshot(ctx, path); err != nil {
		s.log.Warn("Скриншот не сделан", zap.String("name", name), zap.Error(err))
		return ""
	}

	s.log.Debug("📸 Скриншот сохранен", zap.String("path", path))
	return path
}

func (s *Shooter) fileName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "-")
	if name == "" {
		name = "screenshot"
	}
	return fmt.Sprintf("%s-%s.png", name, s.now().Format("20060102-150405.000"))
}
