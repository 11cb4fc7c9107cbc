package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"punchAgent/internal/extractor"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromeBrowser - драйвер на chromedp, альтернативный playwright.
// Не требует установленных браузеров playwright, достаточно Chrome/Chromium в системе.
type ChromeBrowser struct {
	cfg     Config
	dialogs *dialogHub

	mu     sync.RWMutex
	tabCtx context.Context
	cancel context.CancelFunc
}

func NewChrome(cfg Config) *ChromeBrowser {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.NavigateTimeout == 0 {
		cfg.NavigateTimeout = 60 * time.Second
	}
	if cfg.ViewportW == 0 || cfg.ViewportH == 0 {
		cfg.ViewportW, cfg.ViewportH = 1366, 768
	}
	return &ChromeBrowser{
		cfg:     cfg,
		dialogs: newDialogHub(),
	}
}

func (b *ChromeBrowser) allocatorOptions(execPath string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-accelerated-2d-canvas", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-zygote", true),
		chromedp.UserAgent(b.cfg.UserAgent),
		chromedp.WindowSize(b.cfg.ViewportW, b.cfg.ViewportH),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	return opts
}

func (b *ChromeBrowser) Launch(ctx context.Context) error {
	execPath := b.cfg.ExecPath
	if execPath == "" {
		execPath = FindChromiumExecutable()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), b.allocatorOptions(execPath)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	chromedp.ListenTarget(tabCtx, b.onEvent(tabCtx))

	// Первый Run запускает процесс браузера; таймаут на нем закрыл бы весь браузер.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return fmt.Errorf("не удалось запустить Chrome: %w", err)
	}

	geo := b.cfg.Geolocation
	setup := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(int64(b.cfg.ViewportW), int64(b.cfg.ViewportH), 1.0, false),
		emulation.SetUserAgentOverride(b.cfg.UserAgent),
		emulation.SetGeolocationOverride().
			WithLatitude(geo.Latitude).
			WithLongitude(geo.Longitude).
			WithAccuracy(geo.Accuracy),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(
				extractor.GeolocationShim(geo.Latitude, geo.Longitude, geo.Accuracy),
			).Do(ctx)
			return err
		}),
	}
	if b.cfg.Origin != "" {
		setup = append(setup, cdpbrowser.GrantPermissions([]cdpbrowser.PermissionType{
			cdpbrowser.PermissionTypeGeolocation,
		}).WithOrigin(b.cfg.Origin))
	}

	runCtx, runCancel := bindTimeout(ctx, tabCtx, b.cfg.Timeout)
	defer runCancel()

	if err := chromedp.Run(runCtx, setup...); err != nil {
		cancel()
		return fmt.Errorf("не удалось настроить вкладку: %w", err)
	}

	b.mu.Lock()
	b.tabCtx = tabCtx
	b.cancel = cancel
	b.mu.Unlock()
	return nil
}

// onEvent отвечает на нативные диалоги. Команду нужно отправлять из отдельной
// горутины: обработчик событий chromedp не должен блокироваться.
func (b *ChromeBrowser) onEvent(tabCtx context.Context) func(ev interface{}) {
	return func(ev interface{}) {
		e, ok := ev.(*page.EventJavascriptDialogOpening)
		if !ok {
			return
		}
		accept := b.dialogs.decide(Dialog{Type: string(e.Type), Message: e.Message})
		go func() {
			_ = chromedp.Run(tabCtx, page.HandleJavaScriptDialog(accept))
		}()
	}
}

func (b *ChromeBrowser) OnDialog(handler DialogHandler) func() {
	return b.dialogs.subscribe(handler)
}

func (b *ChromeBrowser) tab() (context.Context, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.tabCtx == nil {
		return nil, ErrNotLaunched
	}
	return b.tabCtx, nil
}

// run выполняет действия во вкладке с таймаутом и с учетом отмены ctx вызывающего.
func (b *ChromeBrowser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tabCtx, err := b.tab()
	if err != nil {
		return err
	}

	opCtx, cancel := bindTimeout(ctx, tabCtx, timeout)
	defer cancel()

	return chromedp.Run(opCtx, actions...)
}

func (b *ChromeBrowser) Navigate(ctx context.Context, url string) error {
	err := b.run(ctx, b.cfg.NavigateTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("navigate timeout after %v", b.cfg.NavigateTimeout)
	}
	return err
}

func (b *ChromeBrowser) Snapshot(ctx context.Context) (*PageSnapshot, error) {
	var location, html string
	if err := b.run(ctx, b.cfg.Timeout,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("ошибка извлечения snapshot: %w", err)
	}

	snapshot, err := extractor.ParseSnapshot(location, html)
	if err != nil {
		return nil, err
	}
	return fromExtractor(snapshot), nil
}

func (b *ChromeBrowser) Fill(ctx context.Context, selector, value string) error {
	err := b.run(ctx, b.cfg.Timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("поле не найдено: %s: %w", selector, err)
	}
	return nil
}

func (b *ChromeBrowser) Click(ctx context.Context, selector string) error {
	err := b.run(ctx, b.cfg.Timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("элемент не найден: %s: %w", selector, err)
	}
	return nil
}

func (b *ChromeBrowser) ClickAndWaitForNavigation(ctx context.Context, selector string, timeout time.Duration) error {
	tabCtx, err := b.tab()
	if err != nil {
		return err
	}
	if timeout == 0 {
		timeout = b.cfg.Timeout
	}

	// Слушатель ставится до клика, иначе быстрый переход можно пропустить.
	navigated := make(chan struct{}, 1)
	listenCtx, cancelListen := context.WithCancel(tabCtx)
	defer cancelListen()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		switch ev.(type) {
		case *page.EventLoadEventFired, *page.EventNavigatedWithinDocument:
			select {
			case navigated <- struct{}{}:
			default:
			}
		}
	})

	if err := b.Click(ctx, selector); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-navigated:
		return nil
	case <-timer.C:
		return fmt.Errorf("навигация не завершилась за %v", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *ChromeBrowser) ClickButton(ctx context.Context, index int) error {
	var clicked bool
	script := fmt.Sprintf("(%s)(%d)", extractor.ClickButtonScript, index)
	if err := b.run(ctx, b.cfg.Timeout, chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("ошибка клика по кнопке #%d: %w", index, err)
	}
	if !clicked {
		return fmt.Errorf("кнопка #%d исчезла со страницы", index)
	}
	return nil
}

func (b *ChromeBrowser) BodyText(ctx context.Context) (string, error) {
	var html string
	if err := b.run(ctx, b.cfg.Timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return extractor.BodyText(html)
}

func (b *ChromeBrowser) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := b.run(ctx, b.cfg.Timeout, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return os.WriteFile(path, buf, 0644)
}

func (b *ChromeBrowser) Geolocation(ctx context.Context) (*Geolocation, error) {
	var pos extractor.Position
	script := "(" + extractor.GeolocationScript + ")()"
	err := b.run(ctx, b.cfg.Timeout, chromedp.Evaluate(script, &pos, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения геолокации: %w", err)
	}
	if pos.Error != "" {
		return nil, fmt.Errorf("страница не получила координаты: %s", pos.Error)
	}
	return &Geolocation{Latitude: pos.Latitude, Longitude: pos.Longitude, Accuracy: pos.Accuracy}, nil
}

func (b *ChromeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.tabCtx = nil
	return nil
}
