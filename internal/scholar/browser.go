package scholar

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// fetchWithBrowser renders a page in a headless browser and returns the
// rendered HTML. Used as a fallback when a plain fetch hits a bot wall.
// Requires Chrome/Chromium to be installed on the host.
func fetchWithBrowser(ctx context.Context, url string, timeout time.Duration) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	if looksLikeBotWall(html) {
		return "", fmt.Errorf("bot wall persists after browser rendering")
	}
	return html, nil
}
