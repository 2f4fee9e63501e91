package rod

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/kimata/merhist"
	"github.com/kimata/merhist/fs"
)

// DefaultLoggedInSelector matches the account button rendered only for
// authenticated sessions.
const DefaultLoggedInSelector = `div[class*="account-button-content"]`

// waitHiddenPoll is the interval at which WaitHidden re-checks the page.
const waitHiddenPoll = 250 * time.Millisecond

// Ensure Browser implements merhist.Browser at compile time.
var _ merhist.Browser = (*Browser)(nil)

// Browser drives a headless Chrome instance through a single persistent tab.
// The browser profile lives on disk so cookies survive across runs and a
// previous login can be reused without a fresh challenge.
//
// Browser serializes access internally; methods may be called from multiple
// goroutines but operate on one page.
type Browser struct {
	browser     *rod.Browser
	launcher    *launcher.Launcher
	page        *rod.Page
	profileDir  string
	debugDir    string
	dumps       *fs.DumpWriter
	loggedInSel string
	headless    bool
	mu          sync.Mutex
	closed      atomic.Bool
}

// Option configures a Browser.
type Option func(*Browser)

// WithProfileDir sets the Chrome user data directory. Defaults to a
// temporary directory, which means no session persistence across runs.
func WithProfileDir(dir string) Option {
	return func(b *Browser) {
		b.profileDir = dir
	}
}

// WithDebugDir sets the directory DumpState writes page captures to.
func WithDebugDir(dir string) Option {
	return func(b *Browser) {
		b.debugDir = dir
	}
}

// WithHeadless controls whether Chrome runs headless. Defaults to true.
func WithHeadless(headless bool) Option {
	return func(b *Browser) {
		b.headless = headless
	}
}

// WithLoggedInSelector overrides the selector SessionValid probes for.
func WithLoggedInSelector(sel string) Option {
	return func(b *Browser) {
		b.loggedInSel = sel
	}
}

// NewBrowser launches a headless Chrome browser with a stealth page.
// Close must be called when the Browser is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewBrowser(opts ...Option) (*Browser, error) {
	b := &Browser{
		debugDir:    "debug",
		loggedInSel: DefaultLoggedInSelector,
		headless:    true,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.dumps = fs.NewDumpWriter(b.debugDir)

	if err := b.launchBrowser(); err != nil {
		return nil, err
	}

	return b, nil
}

// launchBrowser starts a new browser instance with stability flags.
// Must be called with mu held (or before the Browser is shared).
func (b *Browser) launchBrowser() error {
	lnchr := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Set("lang", "ja-JP").
		Leakless(true).
		Headless(b.headless)
	if b.profileDir != "" {
		lnchr = lnchr.UserDataDir(b.profileDir)
	}

	u, err := lnchr.Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnchr.Kill() // Clean up launched process on connection failure
		return fmt.Errorf("connecting to browser: %w", err)
	}

	b.browser = browser
	b.launcher = lnchr
	return nil
}

// activePage returns the persistent tab, creating it on first use.
// Must be called with mu held.
func (b *Browser) activePage() (*rod.Page, error) {
	if b.page != nil {
		return b.page, nil
	}
	page, err := stealth.Page(b.browser)
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}
	b.page = page
	return page, nil
}

// Navigate loads url and waits for the document to finish loading.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	page, err := b.activePage()
	if err != nil {
		return err
	}
	page = page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

// HTML returns the rendered HTML of the current page.
func (b *Browser) HTML(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	page, err := b.activePage()
	if err != nil {
		return "", err
	}
	return page.Context(ctx).HTML()
}

// Click clicks the first element matching the CSS selector.
func (b *Browser) Click(ctx context.Context, selector string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	page, err := b.activePage()
	if err != nil {
		return err
	}

	el, err := page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("finding %q: %w", selector, err)
	}
	return clickElement(el)
}

// ClickMatching clicks the first element matching the CSS selector whose text
// matches the regular expression.
func (b *Browser) ClickMatching(ctx context.Context, selector, pattern string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	page, err := b.activePage()
	if err != nil {
		return err
	}

	el, err := page.Context(ctx).ElementR(selector, pattern)
	if err != nil {
		return fmt.Errorf("finding %q matching %q: %w", selector, pattern, err)
	}
	return clickElement(el)
}

func clickElement(el *rod.Element) error {
	if err := el.WaitVisible(); err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Input types text into the first element matching the CSS selector,
// replacing any existing value.
func (b *Browser) Input(ctx context.Context, selector, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	page, err := b.activePage()
	if err != nil {
		return err
	}

	el, err := page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("finding %q: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

// WaitVisible blocks until an element matching the CSS selector is visible,
// or the timeout elapses.
func (b *Browser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	page, err := b.activePage()
	if err != nil {
		return err
	}

	el, err := page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("waiting for %q: %w", selector, err)
	}
	return el.WaitVisible()
}

// WaitHidden blocks until no element matching the CSS selector is present,
// or the timeout elapses. The element never having existed counts as hidden.
func (b *Browser) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	page, err := b.activePage()
	if err != nil {
		return err
	}
	page = page.Context(ctx)

	deadline := time.Now().Add(timeout)
	for {
		has, _, err := page.Has(selector)
		if err != nil {
			return err
		}
		if !has {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("waiting for %q to disappear: timed out after %s", selector, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitHiddenPoll):
		}
	}
}

// DumpState captures the current page HTML and a screenshot into the debug
// directory and returns the dump location without file extension.
func (b *Browser) DumpState(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	page, err := b.activePage()
	if err != nil {
		return "", err
	}
	page = page.Context(ctx)

	info, err := page.Info()
	if err != nil {
		return "", err
	}

	html, err := page.HTML()
	if err != nil {
		return "", err
	}

	shot, err := page.Screenshot(false, nil)
	if err != nil {
		return "", err
	}

	return b.dumps.Write(info.URL, []byte(html), shot)
}

// SessionValid reports whether the current page shows the authenticated
// account control. Callers should navigate to a page that renders it first.
func (b *Browser) SessionValid(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	page, err := b.activePage()
	if err != nil {
		return false
	}

	has, _, err := page.Context(ctx).Has(b.loggedInSel)
	return err == nil && has
}

// Reset discards the browser profile and restarts the browser process.
// If the relaunch fails the Browser is left closed and the error returned.
func (b *Browser) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	b.closeBrowser()

	if b.profileDir != "" {
		if err := os.RemoveAll(b.profileDir); err != nil {
			return fmt.Errorf("removing profile: %w", err)
		}
	}

	return b.launchBrowser()
}

// Close releases browser resources. Close is safe to call multiple times.
func (b *Browser) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.closeBrowser()
	return nil
}

// closeBrowser shuts down the current browser, page and launcher.
// Must be called with mu held.
func (b *Browser) closeBrowser() {
	if b.page != nil {
		_ = b.page.Close()
		b.page = nil
	}
	if b.browser != nil {
		_ = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher = nil
	}
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (b *Browser) LauncherPID() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.launcher == nil {
		return 0
	}
	return b.launcher.PID()
}
