package rod

import (
	"context"
	"log/slog"
	"time"

	"github.com/kimata/merhist"
)

// Ensure LoggingBrowser implements merhist.Browser.
var _ merhist.Browser = (*LoggingBrowser)(nil)

// LoggingBrowser wraps a Browser with debug logging of page loads and dumps.
type LoggingBrowser struct {
	next   merhist.Browser
	logger *slog.Logger
}

// NewLoggingBrowser creates a new LoggingBrowser.
func NewLoggingBrowser(next merhist.Browser, logger *slog.Logger) *LoggingBrowser {
	return &LoggingBrowser{next: next, logger: logger}
}

// Navigate logs the URL being loaded and delegates to the wrapped browser.
func (b *LoggingBrowser) Navigate(ctx context.Context, url string) (err error) {
	defer func(begin time.Time) {
		b.logger.Debug("navigate",
			"url", url,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.next.Navigate(ctx, url)
}

// HTML delegates to the wrapped browser.
func (b *LoggingBrowser) HTML(ctx context.Context) (string, error) {
	return b.next.HTML(ctx)
}

// Click delegates to the wrapped browser.
func (b *LoggingBrowser) Click(ctx context.Context, selector string) error {
	return b.next.Click(ctx, selector)
}

// ClickMatching delegates to the wrapped browser.
func (b *LoggingBrowser) ClickMatching(ctx context.Context, selector, pattern string) error {
	return b.next.ClickMatching(ctx, selector, pattern)
}

// Input delegates to the wrapped browser.
func (b *LoggingBrowser) Input(ctx context.Context, selector, text string) error {
	return b.next.Input(ctx, selector, text)
}

// WaitVisible delegates to the wrapped browser.
func (b *LoggingBrowser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return b.next.WaitVisible(ctx, selector, timeout)
}

// WaitHidden delegates to the wrapped browser.
func (b *LoggingBrowser) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	return b.next.WaitHidden(ctx, selector, timeout)
}

// DumpState logs the dump location and delegates to the wrapped browser.
func (b *LoggingBrowser) DumpState(ctx context.Context) (path string, err error) {
	defer func() {
		b.logger.Info("dump state", "path", path, "err", err)
	}()
	return b.next.DumpState(ctx)
}

// SessionValid delegates to the wrapped browser.
func (b *LoggingBrowser) SessionValid(ctx context.Context) bool {
	return b.next.SessionValid(ctx)
}

// Reset logs the restart and delegates to the wrapped browser.
func (b *LoggingBrowser) Reset(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		b.logger.Info("browser reset",
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.next.Reset(ctx)
}

// Close delegates to the wrapped browser.
func (b *LoggingBrowser) Close() error {
	return b.next.Close()
}
