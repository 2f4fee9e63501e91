package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kimata/merhist"
)

// Compile-time interface verification.
var _ merhist.Store = (*Store)(nil)

// Store implements merhist.Store using SQLite. Every Upsert is an
// autocommitted statement, so a crash between items leaves the store holding
// exactly the records fetched so far.
type Store struct {
	db *DB
}

// NewStore creates a new Store on an opened DB.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func tableFor(t merhist.RecordType) (string, error) {
	switch t {
	case merhist.Sold:
		return "sold_items", nil
	case merhist.Bought:
		return "bought_items", nil
	}
	return "", merhist.Errorf(merhist.EINVALID, "unknown record type %q", t)
}

// IsCached reports whether a record with the given key has been committed by
// an earlier successful fetch.
func (s *Store) IsCached(ctx context.Context, t merhist.RecordType, id string) (bool, error) {
	table, err := tableFor(t)
	if err != nil {
		return false, err
	}

	var one int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Upsert durably commits one item, replacing any previous record with the
// same key wholesale. No partial-field merge happens: a forced re-fetch
// cannot mix stale and fresh fields.
func (s *Store) Upsert(ctx context.Context, item *merhist.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	table, err := tableFor(item.RecordType)
	if err != nil {
		return err
	}

	item.FetchedAt = time.Now().UTC()

	category := ""
	if len(item.Category) > 0 {
		b, err := json.Marshal(item.Category)
		if err != nil {
			return fmt.Errorf("failed to encode category: %w", err)
		}
		category = string(b)
	}

	if item.RecordType == merhist.Sold {
		_, err = s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO sold_items (
				id, name, order_url, item_url, shop, count, category, condition,
				postage_charge, seller_region, shipping_method, purchase_date,
				price, commission, postage, commission_rate, profit,
				completion_date, thumbnail_url, error, fetched_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ID, item.Name, item.OrderURL, item.ItemURL, string(item.Shop), item.Count,
			category, item.Condition, item.PostageCharge, item.SellerRegion,
			item.ShippingMethod, formatTime(item.PurchaseDate),
			item.Price, item.Commission, item.Postage, item.CommissionRate, item.Profit,
			formatTime(item.CompletionDate), item.ThumbnailURL, item.Error,
			item.FetchedAt.Format(time.RFC3339))
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO bought_items (
				id, name, order_url, item_url, shop, count, category, condition,
				postage_charge, seller_region, shipping_method, purchase_date,
				price, thumbnail_url, error, fetched_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ID, item.Name, item.OrderURL, item.ItemURL, string(item.Shop), item.Count,
			category, item.Condition, item.PostageCharge, item.SellerRegion,
			item.ShippingMethod, formatTime(item.PurchaseDate),
			item.Price, item.ThumbnailURL, item.Error,
			item.FetchedAt.Format(time.RFC3339))
	}
	if err != nil {
		return fmt.Errorf("failed to upsert %s item %s: %w", table, item.ID, err)
	}

	return s.SetMetadata(ctx, merhist.MetaLastModified, item.FetchedAt.Format(time.RFC3339))
}

// Items returns all records of a type ordered by transaction date.
func (s *Store) Items(ctx context.Context, t merhist.RecordType) ([]*merhist.Item, error) {
	switch t {
	case merhist.Sold:
		return s.soldItems(ctx)
	case merhist.Bought:
		return s.boughtItems(ctx)
	}
	return nil, merhist.Errorf(merhist.EINVALID, "unknown record type %q", t)
}

func (s *Store) soldItems(ctx context.Context) ([]*merhist.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, order_url, item_url, shop, count, category, condition,
			postage_charge, seller_region, shipping_method, purchase_date,
			price, commission, postage, commission_rate, profit,
			completion_date, thumbnail_url, error, fetched_at
		FROM sold_items
		ORDER BY completion_date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*merhist.Item
	for rows.Next() {
		it := &merhist.Item{RecordType: merhist.Sold}
		var shop, category, purchaseDate, completionDate, fetchedAt string
		if err := rows.Scan(&it.ID, &it.Name, &it.OrderURL, &it.ItemURL, &shop, &it.Count,
			&category, &it.Condition, &it.PostageCharge, &it.SellerRegion,
			&it.ShippingMethod, &purchaseDate,
			&it.Price, &it.Commission, &it.Postage, &it.CommissionRate, &it.Profit,
			&completionDate, &it.ThumbnailURL, &it.Error, &fetchedAt); err != nil {
			return nil, err
		}
		if err := decodeItemColumns(it, shop, category, purchaseDate, fetchedAt); err != nil {
			return nil, err
		}
		it.CompletionDate = parseTime(completionDate)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) boughtItems(ctx context.Context) ([]*merhist.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, order_url, item_url, shop, count, category, condition,
			postage_charge, seller_region, shipping_method, purchase_date,
			price, thumbnail_url, error, fetched_at
		FROM bought_items
		ORDER BY purchase_date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*merhist.Item
	for rows.Next() {
		it := &merhist.Item{RecordType: merhist.Bought}
		var shop, category, purchaseDate, fetchedAt string
		if err := rows.Scan(&it.ID, &it.Name, &it.OrderURL, &it.ItemURL, &shop, &it.Count,
			&category, &it.Condition, &it.PostageCharge, &it.SellerRegion,
			&it.ShippingMethod, &purchaseDate,
			&it.Price, &it.ThumbnailURL, &it.Error, &fetchedAt); err != nil {
			return nil, err
		}
		if err := decodeItemColumns(it, shop, category, purchaseDate, fetchedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func decodeItemColumns(it *merhist.Item, shop, category, purchaseDate, fetchedAt string) error {
	it.Shop = merhist.Shop(shop)
	if category != "" {
		if err := json.Unmarshal([]byte(category), &it.Category); err != nil {
			return fmt.Errorf("failed to decode category for %s: %w", it.ID, err)
		}
	}
	it.PurchaseDate = parseTime(purchaseDate)
	it.FetchedAt = parseTime(fetchedAt)
	return nil
}

// Count returns the number of cached records of a type.
func (s *Store) Count(ctx context.Context, t merhist.RecordType) (int, error) {
	table, err := tableFor(t)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Metadata returns the stored value for key, or def when absent.
func (s *Store) Metadata(ctx context.Context, key, def string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata stores a key/value pair.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)", key, value)
	return err
}

// Close releases the store and its exclusivity lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseTime(text string) time.Time {
	if text == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return time.Time{}
	}
	return t
}
