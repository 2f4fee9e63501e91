package merhist

import "context"

// Metadata keys maintained by the crawl.
const (
	MetaSoldTotalCount   = "sold_total_count"
	MetaBoughtTotalCount = "bought_total_count"
	MetaLastModified     = "last_modified"
)

// Store is the durable, per-record-committing cache that provides
// resumability and dedup. It is the single writer of persisted items;
// every other component holds only transient in-memory references.
//
// Upsert commits immediately: once it returns, the record survives a crash.
// There is no batched or deferred write, so an interrupted crawl leaves the
// store holding exactly the records fetched so far.
type Store interface {
	// IsCached reports whether a record with the given key was fetched by a
	// strictly earlier successful fetch.
	IsCached(ctx context.Context, t RecordType, id string) (bool, error)

	// Upsert durably commits one item, replacing any previous record with
	// the same (record type, id) key wholesale.
	Upsert(ctx context.Context, item *Item) error

	// Items returns all records of a type ordered by transaction date
	// (completion date for sold, purchase date for bought).
	Items(ctx context.Context, t RecordType) ([]*Item, error)

	// Count returns the number of cached records of a type.
	Count(ctx context.Context, t RecordType) (int, error)

	// Metadata returns the stored value for key, or def when absent.
	Metadata(ctx context.Context, key, def string) (string, error)

	// SetMetadata stores a key/value pair.
	SetMetadata(ctx context.Context, key, value string) error

	// Close releases the store and its exclusivity lock.
	Close() error
}
