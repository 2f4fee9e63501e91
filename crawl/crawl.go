// Package crawl orchestrates the transaction-history crawl: session
// establishment, listing traversal, per-item detail fetching, and handing
// the collected records to the report writer.
package crawl

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/kimata/merhist"
)

// WalkerFactory builds a fresh Walker for one record type. Walkers are
// single-use; every crawl starts a new traversal.
type WalkerFactory func(t merhist.RecordType) Walker

// NewWalkers returns the browser-backed WalkerFactory.
func NewWalkers(browser merhist.Browser, opts ...WalkerOption) WalkerFactory {
	return func(t merhist.RecordType) Walker {
		if t == merhist.Sold {
			return NewSoldWalker(browser, opts...)
		}
		return NewBoughtWalker(browser, opts...)
	}
}

// Result tallies the outcome for one record type.
type Result struct {
	// Fetched counts records fetched and committed this run.
	Fetched int

	// Cached counts references skipped because a strictly earlier run
	// already fetched them. Traversal stops at the first one, so this is
	// normally 0 or 1.
	Cached int

	// Failed counts items skipped after their retry budget ran out.
	Failed int
}

// Crawler coordinates one crawl over both record types. Record types are
// walked sequentially; there is exactly one browser session.
type Crawler struct {
	Session    Session
	Fetcher    Fetcher
	NewWalker  WalkerFactory
	Store      merhist.Store
	Report     merhist.ReportWriter
	Pacer      *Pacer
	Force      merhist.ForceScope
	Thumbnails bool
	Logger     *slog.Logger
}

// Crawl logs in, walks the sold and bought listings, fetches every
// not-yet-cached item, and finally renders the report. A failure in one
// record type aborts that type only; the other still runs.
//
// Context cancellation is polled between items: the in-flight item finishes
// and commits, then the crawl returns with what it has.
func (c *Crawler) Crawl(ctx context.Context) (map[merhist.RecordType]*Result, error) {
	logger := c.logger()

	if err := c.Session.Login(ctx); err != nil {
		return nil, err
	}

	results := map[merhist.RecordType]*Result{}
	var typeErrs []error
	for _, t := range merhist.RecordTypes() {
		res := &Result{}
		results[t] = res

		if !c.Session.Valid(ctx) {
			if err := c.Session.Recover(ctx); err != nil {
				return results, err
			}
		}

		err := c.walkType(ctx, t, res)
		if err != nil && errors.Is(err, context.Canceled) {
			return results, err
		}
		if err != nil {
			logger.Error("record type aborted",
				"type", t,
				"fetched", res.Fetched,
				"err", err,
			)
			typeErrs = append(typeErrs, err)
			continue
		}
		logger.Info("record type done",
			"type", t,
			"fetched", res.Fetched,
			"cached", res.Cached,
			"failed", res.Failed,
		)
	}

	if len(typeErrs) == len(merhist.RecordTypes()) {
		// Nothing completed; surface the first failure.
		return results, typeErrs[0]
	}

	if c.Report != nil {
		if err := c.Export(ctx, c.Thumbnails); err != nil {
			return results, err
		}
	}

	return results, nil
}

// walkType traverses one listing and fetches every new reference. Unless
// the type is forced, the first cached reference ends the traversal: the
// listing is newest-first, so everything beyond it was already fetched.
func (c *Crawler) walkType(ctx context.Context, t merhist.RecordType, res *Result) error {
	logger := c.logger()
	w := c.NewWalker(t)
	force := c.Force.Has(t)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ref, ok, err := w.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		if !force {
			cached, err := c.Store.IsCached(ctx, t, ref.ID)
			if err != nil {
				return err
			}
			if cached {
				res.Cached++
				logger.Debug("reached cached record, stopping traversal", "type", t, "id", ref.ID)
				break
			}
		}

		if c.Pacer != nil {
			if err := c.Pacer.Wait(ctx); err != nil {
				return err
			}
		}

		item, err := c.Fetcher.Fetch(ctx, ref)
		if err != nil {
			if merhist.ErrorCode(err) == merhist.EFETCH {
				res.Failed++
				logger.Warn("skipping item", "type", t, "id", ref.ID, "err", err)
				continue
			}
			return err
		}

		if err := c.Store.Upsert(ctx, item); err != nil {
			return err
		}
		res.Fetched++
		logger.Info("item stored", "type", t, "id", item.ID, "name", item.Name)
	}

	if total := w.Total(); total > 0 {
		if err := c.Store.SetMetadata(ctx, totalKey(t), strconv.Itoa(total)); err != nil {
			return err
		}
	}
	return nil
}

// Export reads both record sets from the store and hands them to the
// report writer in store order.
func (c *Crawler) Export(ctx context.Context, thumbnails bool) error {
	sold, err := c.Store.Items(ctx, merhist.Sold)
	if err != nil {
		return err
	}
	bought, err := c.Store.Items(ctx, merhist.Bought)
	if err != nil {
		return err
	}
	return c.Report.Write(ctx, sold, bought, thumbnails)
}

func totalKey(t merhist.RecordType) string {
	if t == merhist.Sold {
		return merhist.MetaSoldTotalCount
	}
	return merhist.MetaBoughtTotalCount
}

func (c *Crawler) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
