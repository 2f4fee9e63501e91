// Package slog provides logging decorators around the domain interfaces.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/kimata/merhist"
)

// Ensure LoggingStore implements merhist.Store.
var _ merhist.Store = (*LoggingStore)(nil)

// LoggingStore wraps a Store with debug logging of writes.
type LoggingStore struct {
	next   merhist.Store
	logger *slog.Logger
}

// NewLoggingStore creates a new LoggingStore.
func NewLoggingStore(next merhist.Store, logger *slog.Logger) *LoggingStore {
	return &LoggingStore{next: next, logger: logger}
}

// IsCached delegates to the wrapped store.
func (s *LoggingStore) IsCached(ctx context.Context, t merhist.RecordType, id string) (bool, error) {
	return s.next.IsCached(ctx, t, id)
}

// Upsert logs the committed record and delegates to the wrapped store.
func (s *LoggingStore) Upsert(ctx context.Context, item *merhist.Item) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("upsert",
			"type", item.RecordType,
			"id", item.ID,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Upsert(ctx, item)
}

// Items delegates to the wrapped store.
func (s *LoggingStore) Items(ctx context.Context, t merhist.RecordType) ([]*merhist.Item, error) {
	return s.next.Items(ctx, t)
}

// Count delegates to the wrapped store.
func (s *LoggingStore) Count(ctx context.Context, t merhist.RecordType) (int, error) {
	return s.next.Count(ctx, t)
}

// Metadata delegates to the wrapped store.
func (s *LoggingStore) Metadata(ctx context.Context, key, def string) (string, error) {
	return s.next.Metadata(ctx, key, def)
}

// SetMetadata delegates to the wrapped store.
func (s *LoggingStore) SetMetadata(ctx context.Context, key, value string) error {
	return s.next.SetMetadata(ctx, key, value)
}

// Close delegates to the wrapped store.
func (s *LoggingStore) Close() error {
	return s.next.Close()
}
