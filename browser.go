package merhist

import (
	"context"
	"time"
)

// Browser is the automation capability every fetcher depends on. The crawl
// core depends only on this surface, not on any specific driver.
//
// All operations honor context cancellation; waits carry explicit timeouts
// and never block indefinitely.
type Browser interface {
	// Navigate loads url and waits for the document to finish loading.
	Navigate(ctx context.Context, url string) error

	// HTML returns the rendered HTML of the current page.
	HTML(ctx context.Context) (string, error)

	// Click clicks the first element matching the CSS selector.
	Click(ctx context.Context, selector string) error

	// ClickMatching clicks the first element matching the CSS selector whose
	// text matches the regular expression. Needed where the UI offers no
	// stable attribute and only the label identifies the control.
	ClickMatching(ctx context.Context, selector, pattern string) error

	// Input types text into the first element matching the CSS selector.
	Input(ctx context.Context, selector, text string) error

	// WaitVisible blocks until an element matching the CSS selector is
	// visible, or the timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// WaitHidden blocks until no element matching the CSS selector is
	// visible, or the timeout elapses.
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error

	// DumpState captures the current page (HTML plus a screenshot) into the
	// debug directory and returns the dump location. Used between retry
	// attempts so failed fetches remain diagnosable.
	DumpState(ctx context.Context) (string, error)

	// SessionValid reports whether the authenticated session handle still
	// works. A false result triggers session recovery.
	SessionValid(ctx context.Context) bool

	// Reset discards the browser profile and restarts the browser process.
	// The next Navigate starts from a clean, logged-out state.
	Reset(ctx context.Context) error

	// Close releases browser resources.
	Close() error
}
