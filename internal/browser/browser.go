package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"punchAgent/internal/extractor"

	"github.com/playwright-community/playwright-go"
)

func New(cfg Config) *PlaywrightBrowser {
	// Установка дефолтных значений
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.NavigateTimeout == 0 {
		cfg.NavigateTimeout = 60 * time.Second // Navigate обычно дольше
	}
	if cfg.ViewportW == 0 || cfg.ViewportH == 0 {
		cfg.ViewportW, cfg.ViewportH = 1366, 768
	}

	return &PlaywrightBrowser{
		cfg:     cfg,
		dialogs: newDialogHub(),
	}
}

// getPage безопасно возвращает текущую страницу с read lock
func (b *PlaywrightBrowser) getPage() (playwright.Page, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.page == nil {
		return nil, ErrNotLaunched
	}
	return b.page, nil
}

// LaunchArgs - флаги Chromium для запуска в контейнере без GPU.
func LaunchArgs() []string {
	return []string{
		"--no-sandbox",
		"--disable-setuid-sandbox",
		"--disable-dev-shm-usage",
		"--disable-accelerated-2d-canvas",
		"--no-first-run",
		"--no-zygote",
		"--disable-gpu",
	}
}

func (b *PlaywrightBrowser) contextOptions() playwright.BrowserNewContextOptions {
	return playwright.BrowserNewContextOptions{
		Viewport:  &playwright.Size{Width: b.cfg.ViewportW, Height: b.cfg.ViewportH},
		UserAgent: playwright.String(b.cfg.UserAgent),
		Geolocation: &playwright.Geolocation{
			Latitude:  b.cfg.Geolocation.Latitude,
			Longitude: b.cfg.Geolocation.Longitude,
			Accuracy:  playwright.Float(b.cfg.Geolocation.Accuracy),
		},
		Permissions: []string{"geolocation"},
	}
}

func (b *PlaywrightBrowser) Launch(ctx context.Context) error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("не удалось запустить playwright: %w", err)
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(b.cfg.Headless),
		Args:     LaunchArgs(),
	}
	if b.cfg.ExecPath != "" {
		opts.ExecutablePath = playwright.String(b.cfg.ExecPath)
	}

	br, err := pw.Chromium.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("не удалось запустить Chromium: %w", err)
	}

	browserContext, err := br.NewContext(b.contextOptions())
	if err != nil {
		_ = br.Close()
		_ = pw.Stop()
		return fmt.Errorf("не удалось создать контекст браузера: %w", err)
	}

	b.mu.Lock()
	b.pw = pw
	b.browser = br
	b.context = browserContext
	b.mu.Unlock()

	if b.cfg.Origin != "" {
		if err := browserContext.GrantPermissions([]string{"geolocation"}, playwright.BrowserContextGrantPermissionsOptions{
			Origin: playwright.String(b.cfg.Origin),
		}); err != nil {
			return fmt.Errorf("не удалось выдать разрешение на геолокацию: %w", err)
		}
	}

	geo := b.cfg.Geolocation
	shim := extractor.GeolocationShim(geo.Latitude, geo.Longitude, geo.Accuracy)
	if err := browserContext.AddInitScript(playwright.Script{Content: playwright.String(shim)}); err != nil {
		return fmt.Errorf("не удалось установить скрипт геолокации: %w", err)
	}

	page, err := browserContext.NewPage()
	if err != nil {
		return fmt.Errorf("не удалось открыть страницу: %w", err)
	}
	page.SetDefaultTimeout(float64(b.cfg.Timeout.Milliseconds()))
	page.OnDialog(b.handleDialog)

	b.mu.Lock()
	b.page = page
	b.mu.Unlock()
	return nil
}

func (b *PlaywrightBrowser) handleDialog(dialog playwright.Dialog) {
	d := Dialog{Type: dialog.Type(), Message: dialog.Message()}
	if b.dialogs.decide(d) {
		_ = dialog.Accept()
		return
	}
	_ = dialog.Dismiss()
}

func (b *PlaywrightBrowser) OnDialog(handler DialogHandler) func() {
	return b.dialogs.subscribe(handler)
}

func (b *PlaywrightBrowser) Navigate(ctx context.Context, url string) error {
	page, err := b.getPage()
	if err != nil {
		return err
	}

	// Создаем context с timeout для navigate операции
	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigateTimeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateNetworkidle,
			Timeout:   playwright.Float(float64(b.cfg.NavigateTimeout.Milliseconds())),
		})
		errChan <- err
	}()

	select {
	case <-navCtx.Done():
		return fmt.Errorf("navigate timeout after %v", b.cfg.NavigateTimeout)
	case err := <-errChan:
		return err
	}
}

func (b *PlaywrightBrowser) Snapshot(ctx context.Context) (*PageSnapshot, error) {
	page, err := b.getPage()
	if err != nil {
		return nil, err
	}

	snapshot, err := extractor.ExtractPageSnapshot(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("ошибка извлечения snapshot: %w", err)
	}
	return fromExtractor(snapshot), nil
}

// Fill ждет поле, очищает его и вводит значение.
func (b *PlaywrightBrowser) Fill(ctx context.Context, selector, value string) error {
	page, err := b.getPage()
	if err != nil {
		return err
	}

	if err := b.waitVisible(page, selector); err != nil {
		return fmt.Errorf("поле не найдено: %s: %w", selector, err)
	}
	if err := page.Fill(selector, ""); err != nil {
		return err
	}
	return page.Fill(selector, value)
}

func (b *PlaywrightBrowser) Click(ctx context.Context, selector string) error {
	page, err := b.getPage()
	if err != nil {
		return err
	}

	if err := b.waitVisible(page, selector); err != nil {
		return fmt.Errorf("элемент не найден: %s: %w", selector, err)
	}
	return page.Click(selector)
}

func (b *PlaywrightBrowser) ClickAndWaitForNavigation(ctx context.Context, selector string, timeout time.Duration) error {
	page, err := b.getPage()
	if err != nil {
		return err
	}
	if timeout == 0 {
		timeout = b.cfg.Timeout
	}

	if err := b.waitVisible(page, selector); err != nil {
		return fmt.Errorf("элемент не найден: %s: %w", selector, err)
	}

	_, err = page.ExpectNavigation(func() error {
		return page.Click(selector)
	}, playwright.PageExpectNavigationOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("навигация не завершилась за %v: %w", timeout, err)
	}
	return nil
}

func (b *PlaywrightBrowser) ClickButton(ctx context.Context, index int) error {
	page, err := b.getPage()
	if err != nil {
		return err
	}

	clicked, err := page.Evaluate(extractor.ClickButtonScript, index)
	if err != nil {
		return fmt.Errorf("ошибка клика по кнопке #%d: %w", index, err)
	}
	if ok, _ := clicked.(bool); !ok {
		return fmt.Errorf("кнопка #%d исчезла со страницы", index)
	}
	return nil
}

func (b *PlaywrightBrowser) BodyText(ctx context.Context) (string, error) {
	page, err := b.getPage()
	if err != nil {
		return "", err
	}

	text, err := page.Evaluate(extractor.BodyTextScript)
	if err != nil {
		return "", err
	}
	s, _ := text.(string)
	return s, nil
}

func (b *PlaywrightBrowser) Screenshot(ctx context.Context, path string) error {
	page, err := b.getPage()
	if err != nil {
		return err
	}

	_, err = page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (b *PlaywrightBrowser) Geolocation(ctx context.Context) (*Geolocation, error) {
	page, err := b.getPage()
	if err != nil {
		return nil, err
	}

	raw, err := page.Evaluate(extractor.GeolocationScript)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения геолокации: %w", err)
	}
	return decodePosition(raw)
}

// Close закрывает контекст, браузер и драйвер playwright. Ошибка одного шага
// не мешает остальным, иначе процессы Chromium остаются висеть между попытками.
func (b *PlaywrightBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	b.page = nil
	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("закрытие контекста: %w", err))
		}
		b.context = nil
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("закрытие браузера: %w", err))
		}
		b.browser = nil
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("остановка playwright: %w", err))
		}
		b.pw = nil
	}
	return errors.Join(errs...)
}
