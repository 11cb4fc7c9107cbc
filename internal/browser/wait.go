package browser

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"
)

// waitVisible ждет, пока элемент станет видимым, не дольше cfg.Timeout.
func (b *PlaywrightBrowser) waitVisible(page playwright.Page, selector string) error {
	_, err := page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(b.cfg.Timeout.Milliseconds())),
	})
	return err
}

// bindTimeout ограничивает операцию во вкладке chromedp по времени.
// Вкладка живет в собственном контексте, поэтому отмена ctx вызывающего
// пробрасывается через AfterFunc.
func bindTimeout(ctx, tab context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(tab, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}
