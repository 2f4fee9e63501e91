package crawl

import (
	"context"
	"time"

	"github.com/kimata/merhist"
	gq "github.com/kimata/merhist/goquery"
	"github.com/kimata/merhist/retry"
)

// Listing traversal defaults.
const (
	DefaultPageAttempts = 3
	DefaultPageDelay    = 2 * time.Second
	DefaultPageTimeout  = 30 * time.Second
)

// Walker yields order references from a listing view, newest first, loading
// further pages only as its buffered rows run out. Callers stop a traversal
// simply by not calling Next again.
type Walker interface {
	// Next returns the next reference. ok is false when the traversal is
	// complete. A page that cannot be loaded within the retry budget
	// returns EPAGELOAD.
	Next(ctx context.Context) (ref merhist.OrderRef, ok bool, err error)

	// Total returns the listing's own record count, or 0 before the first
	// page has been read.
	Total() int
}

// walkerOpts are shared by both walker kinds.
type walkerOpts struct {
	attempts int
	delay    time.Duration
	timeout  time.Duration
}

func defaultWalkerOpts() walkerOpts {
	return walkerOpts{
		attempts: DefaultPageAttempts,
		delay:    DefaultPageDelay,
		timeout:  DefaultPageTimeout,
	}
}

// WalkerOption configures a walker.
type WalkerOption func(*walkerOpts)

// WithPageRetry overrides the per-page-load retry budget and delay.
func WithPageRetry(attempts int, delay time.Duration) WalkerOption {
	return func(o *walkerOpts) {
		o.attempts = attempts
		o.delay = delay
	}
}

// WithPageTimeout overrides the wait budget for page elements.
func WithPageTimeout(d time.Duration) WalkerOption {
	return func(o *walkerOpts) {
		o.timeout = d
	}
}

// soldWalker traverses the page-numbered sold listing. The view reports its
// own total ("全N件", 20 rows per page), so the page count is known after
// the first load.
type soldWalker struct {
	browser merhist.Browser
	opts    walkerOpts

	started bool
	page    int
	total   int
	buf     []merhist.OrderRef
}

// NewSoldWalker creates a Walker over the sold listing pages.
func NewSoldWalker(browser merhist.Browser, opts ...WalkerOption) Walker {
	w := &soldWalker{browser: browser, opts: defaultWalkerOpts()}
	for _, opt := range opts {
		opt(&w.opts)
	}
	return w
}

func (w *soldWalker) Total() int {
	return w.total
}

func (w *soldWalker) Next(ctx context.Context) (merhist.OrderRef, bool, error) {
	if !w.started {
		w.started = true
		if err := w.loadPage(ctx, 1); err != nil {
			return merhist.OrderRef{}, false, err
		}
	}

	for len(w.buf) == 0 {
		if w.page*merhist.SoldItemsPerPage >= w.total {
			return merhist.OrderRef{}, false, nil
		}
		if err := w.loadPage(ctx, w.page+1); err != nil {
			return merhist.OrderRef{}, false, err
		}
		if len(w.buf) == 0 {
			// The listing shrank since the total was read; treat the
			// empty page as the end rather than an error.
			return merhist.OrderRef{}, false, nil
		}
	}

	ref := w.buf[0]
	w.buf = w.buf[1:]
	return ref, true, nil
}

// loadPage fetches one sold listing page within the retry budget.
func (w *soldWalker) loadPage(ctx context.Context, page int) error {
	html, err := retry.Do(ctx, retry.Options{
		MaxAttempts: w.opts.attempts,
		Strategy:    retry.Fixed{Base: w.opts.delay},
	}, func(ctx context.Context) (string, error) {
		if err := w.browser.Navigate(ctx, merhist.SoldHistoryURL(page)); err != nil {
			return "", err
		}
		if err := w.browser.WaitVisible(ctx, gq.SoldListContainer, w.opts.timeout); err != nil {
			return "", err
		}
		return w.browser.HTML(ctx)
	})
	if err != nil {
		return merhist.WrapErrorf(err, merhist.EPAGELOAD, "loading sold listing page %d", page)
	}

	total, err := gq.SoldTotal(html)
	if err != nil {
		return err
	}
	rows, err := gq.SoldRows(html, page)
	if err != nil {
		return err
	}

	w.page = page
	w.total = total
	w.buf = rows
	return nil
}

// boughtWalker traverses the load-more-driven purchase listing. Each
// load-more click grows a single list in place, so after every click the
// walker re-reads the list from its previous offset.
type boughtWalker struct {
	browser merhist.Browser
	opts    walkerOpts

	started bool
	round   int
	offset  int
	total   int
	done    bool
	buf     []merhist.OrderRef
}

// NewBoughtWalker creates a Walker over the purchase listing.
func NewBoughtWalker(browser merhist.Browser, opts ...WalkerOption) Walker {
	w := &boughtWalker{browser: browser, opts: defaultWalkerOpts()}
	for _, opt := range opts {
		opt(&w.opts)
	}
	return w
}

func (w *boughtWalker) Total() int {
	return w.total
}

func (w *boughtWalker) Next(ctx context.Context) (merhist.OrderRef, bool, error) {
	if !w.started {
		w.started = true
		if err := w.loadInitial(ctx); err != nil {
			return merhist.OrderRef{}, false, err
		}
	}

	for len(w.buf) == 0 && !w.done {
		if err := w.loadMore(ctx); err != nil {
			return merhist.OrderRef{}, false, err
		}
	}
	if len(w.buf) == 0 {
		return merhist.OrderRef{}, false, nil
	}

	ref := w.buf[0]
	w.buf = w.buf[1:]
	return ref, true, nil
}

func (w *boughtWalker) loadInitial(ctx context.Context) error {
	html, err := retry.Do(ctx, retry.Options{
		MaxAttempts: w.opts.attempts,
		Strategy:    retry.Fixed{Base: w.opts.delay},
	}, func(ctx context.Context) (string, error) {
		if err := w.browser.Navigate(ctx, merhist.BoughtHistoryURL); err != nil {
			return "", err
		}
		if err := w.browser.WaitVisible(ctx, gq.BoughtList, w.opts.timeout); err != nil {
			return "", err
		}
		return w.browser.HTML(ctx)
	})
	if err != nil {
		return merhist.WrapErrorf(err, merhist.EPAGELOAD, "loading purchase listing")
	}

	return w.consume(html)
}

// loadMore clicks the load-more control and re-reads the grown list. The
// traversal ends when the control is gone or a click yields no new rows.
func (w *boughtWalker) loadMore(ctx context.Context) error {
	w.round++
	html, err := retry.Do(ctx, retry.Options{
		MaxAttempts: w.opts.attempts,
		Strategy:    retry.Fixed{Base: w.opts.delay},
	}, func(ctx context.Context) (string, error) {
		current, err := w.browser.HTML(ctx)
		if err != nil {
			return "", err
		}
		if !gq.HasLoadMore(current) {
			return current, nil
		}
		if err := w.browser.ClickMatching(ctx, gq.BoughtMoreButton, gq.TextLoadMore); err != nil {
			return "", err
		}
		if err := w.browser.WaitHidden(ctx, gq.LoadingIcon, w.opts.timeout); err != nil {
			return "", err
		}
		return w.browser.HTML(ctx)
	})
	if err != nil {
		return merhist.WrapErrorf(err, merhist.EPAGELOAD, "loading more purchases (round %d)", w.round)
	}

	before := w.offset
	if err := w.consume(html); err != nil {
		return err
	}
	if w.offset == before {
		w.done = true
	}
	return nil
}

// consume extracts the rows beyond the current offset and advances it.
func (w *boughtWalker) consume(html string) error {
	rows, total, err := gq.BoughtRows(html, w.offset, w.round+1)
	if err != nil {
		return err
	}
	w.buf = append(w.buf, rows...)
	w.offset = total
	w.total = total
	return nil
}
