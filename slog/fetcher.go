package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/kimata/merhist"
	"github.com/kimata/merhist/crawl"
)

// Ensure LoggingFetcher implements crawl.Fetcher.
var _ crawl.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with per-item logging.
type LoggingFetcher struct {
	next   crawl.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next crawl.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch logs the fetched order and delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, ref merhist.OrderRef) (item *merhist.Item, err error) {
	defer func(begin time.Time) {
		f.logger.Info("fetch",
			"type", ref.RecordType,
			"id", ref.ID,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, ref)
}
