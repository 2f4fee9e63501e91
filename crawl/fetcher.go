package crawl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kimata/merhist"
	gq "github.com/kimata/merhist/goquery"
	"github.com/kimata/merhist/retry"
)

// Detail fetch defaults. Failures back off progressively; individual item
// pages are where transient rendering glitches show up the most.
const (
	DefaultFetchAttempts  = 3
	DefaultFetchRetryBase = 5 * time.Second
)

// Fetcher turns an order reference into a fully extracted item.
type Fetcher interface {
	// Fetch visits the order's detail pages and assembles the item.
	// Exhaustion of the retry budget returns EFETCH; a structurally
	// malformed page returns EPAGEFORMAT without retrying.
	Fetch(ctx context.Context, ref merhist.OrderRef) (*merhist.Item, error)
}

// Ensure DetailFetcher implements Fetcher at compile time.
var _ Fetcher = (*DetailFetcher)(nil)

// DetailFetcher fetches one order's description and transaction pages
// through the shared browser session.
type DetailFetcher struct {
	browser merhist.Browser
	logger  *slog.Logger

	// Attempts and RetryBase configure the per-item retry budget.
	Attempts  int
	RetryBase time.Duration

	// PageTimeout bounds each wait for page content to settle.
	PageTimeout time.Duration
}

// NewDetailFetcher creates a DetailFetcher with default retry settings.
func NewDetailFetcher(browser merhist.Browser, logger *slog.Logger) *DetailFetcher {
	return &DetailFetcher{
		browser:     browser,
		logger:      logger,
		Attempts:    DefaultFetchAttempts,
		RetryBase:   DefaultFetchRetryBase,
		PageTimeout: DefaultPageTimeout,
	}
}

// Fetch visits the item description page and the transaction page. Browser
// state is dumped before every retry so a flaky page stays diagnosable.
func (f *DetailFetcher) Fetch(ctx context.Context, ref merhist.OrderRef) (*merhist.Item, error) {
	item, err := retry.Do(ctx, retry.Options{
		MaxAttempts: f.Attempts,
		Strategy:    retry.Exponential{Base: f.RetryBase},
		Retryable: func(err error) bool {
			switch merhist.ErrorCode(err) {
			case merhist.EPAGEFORMAT, merhist.EURLFORMAT:
				return false
			}
			return true
		},
		OnRetry: func(attempt int, err error) {
			path, dumpErr := f.browser.DumpState(ctx)
			f.logger.Warn("item fetch failed",
				"id", ref.ID,
				"attempt", attempt,
				"dump", path,
				"dump_err", dumpErr,
				"err", err,
			)
		},
	}, func(ctx context.Context) (*merhist.Item, error) {
		return f.fetchOnce(ctx, ref)
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return nil, merhist.WrapErrorf(err, merhist.EFETCH, "fetching order %s", ref.ID)
		}
		return nil, err
	}
	return item, nil
}

func (f *DetailFetcher) fetchOnce(ctx context.Context, ref merhist.OrderRef) (*merhist.Item, error) {
	desc, err := f.fetchDescription(ctx, ref)
	if err != nil {
		return nil, err
	}

	tx, err := f.fetchTransaction(ctx, ref)
	if err != nil {
		return nil, err
	}

	return assembleItem(ref, desc, tx), nil
}

// fetchDescription reads the public item page. A not-found or deleted
// empty state comes back as a note on the Description, not an error: the
// transaction record is still worth keeping.
func (f *DetailFetcher) fetchDescription(ctx context.Context, ref merhist.OrderRef) (*gq.Description, error) {
	if err := f.browser.Navigate(ctx, ref.DescriptionURL()); err != nil {
		return nil, merhist.WrapErrorf(err, merhist.EPAGELOAD, "loading item page %s", ref.ID)
	}
	if err := f.browser.WaitHidden(ctx, gq.LoadingIcon, f.PageTimeout); err != nil {
		return nil, merhist.WrapErrorf(err, merhist.EPAGELOAD, "item page %s did not settle", ref.ID)
	}
	html, err := f.browser.HTML(ctx)
	if err != nil {
		return nil, merhist.WrapErrorf(err, merhist.EPAGELOAD, "reading item page %s", ref.ID)
	}
	return gq.ExtractDescription(html)
}

func (f *DetailFetcher) fetchTransaction(ctx context.Context, ref merhist.OrderRef) (*gq.Transaction, error) {
	if err := f.browser.Navigate(ctx, ref.TransactionURL()); err != nil {
		return nil, merhist.WrapErrorf(err, merhist.EPAGELOAD, "loading transaction page %s", ref.ID)
	}
	if err := f.browser.WaitHidden(ctx, gq.LoadingIcon, f.PageTimeout); err != nil {
		return nil, merhist.WrapErrorf(err, merhist.EPAGELOAD, "transaction page %s did not settle", ref.ID)
	}
	html, err := f.browser.HTML(ctx)
	if err != nil {
		return nil, merhist.WrapErrorf(err, merhist.EPAGELOAD, "reading transaction page %s", ref.ID)
	}
	if ref.Shop == merhist.ShopShops {
		return gq.ExtractTransactionShops(html)
	}
	return gq.ExtractTransactionNormal(html)
}

// assembleItem merges the listing reference with both page extractions.
// Listing-only figures (sold commissions, bought purchase timestamps for
// shops orders) override what the detail pages cannot provide.
func assembleItem(ref merhist.OrderRef, desc *gq.Description, tx *gq.Transaction) *merhist.Item {
	item := &merhist.Item{
		ID:         ref.ID,
		RecordType: ref.RecordType,
		Shop:       ref.Shop,
		Name:       ref.Name,
		OrderURL:   ref.OrderURL,
		ItemURL:    ref.DescriptionURL(),
		Count:      1,

		Category:       desc.Category,
		Condition:      desc.Condition,
		PostageCharge:  desc.PostageCharge,
		SellerRegion:   desc.SellerRegion,
		ShippingMethod: desc.ShippingMethod,
		Error:          desc.Note,

		PurchaseDate: tx.PurchaseDate,
		Price:        tx.Price,
		Postage:      tx.Postage,
		ThumbnailURL: tx.ThumbnailURL,
	}

	// Shops transaction pages render no purchase timestamp; the listing
	// row is the only source.
	if item.PurchaseDate.IsZero() {
		item.PurchaseDate = ref.PurchaseDate
	}

	if ref.Sold != nil {
		item.Price = ref.Sold.Price
		item.Commission = ref.Sold.Commission
		item.Postage = ref.Sold.Postage
		item.CommissionRate = ref.Sold.CommissionRate
		item.Profit = ref.Sold.Profit
		item.CompletionDate = ref.Sold.CompletionDate
	}

	return item
}
