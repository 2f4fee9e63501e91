package mock

import (
	"context"

	"github.com/kimata/merhist"
)

var _ merhist.Store = (*Store)(nil)

// Store is a mock implementation of merhist.Store.
type Store struct {
	IsCachedFn    func(ctx context.Context, t merhist.RecordType, id string) (bool, error)
	UpsertFn      func(ctx context.Context, item *merhist.Item) error
	ItemsFn       func(ctx context.Context, t merhist.RecordType) ([]*merhist.Item, error)
	CountFn       func(ctx context.Context, t merhist.RecordType) (int, error)
	MetadataFn    func(ctx context.Context, key, def string) (string, error)
	SetMetadataFn func(ctx context.Context, key, value string) error
	CloseFn       func() error
}

func (s *Store) IsCached(ctx context.Context, t merhist.RecordType, id string) (bool, error) {
	return s.IsCachedFn(ctx, t, id)
}

func (s *Store) Upsert(ctx context.Context, item *merhist.Item) error {
	return s.UpsertFn(ctx, item)
}

func (s *Store) Items(ctx context.Context, t merhist.RecordType) ([]*merhist.Item, error) {
	return s.ItemsFn(ctx, t)
}

func (s *Store) Count(ctx context.Context, t merhist.RecordType) (int, error) {
	return s.CountFn(ctx, t)
}

func (s *Store) Metadata(ctx context.Context, key, def string) (string, error) {
	return s.MetadataFn(ctx, key, def)
}

func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	return s.SetMetadataFn(ctx, key, value)
}

func (s *Store) Close() error {
	return s.CloseFn()
}
