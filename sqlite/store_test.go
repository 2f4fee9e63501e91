package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kimata/merhist"
	"github.com/kimata/merhist/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()

	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })

	return sqlite.NewStore(db)
}

func soldItem(id string, day int) *merhist.Item {
	return &merhist.Item{
		ID:             id,
		RecordType:     merhist.Sold,
		Shop:           merhist.ShopNormal,
		Name:           "item " + id,
		Count:          1,
		Category:       []string{"本・雑誌・漫画", "本"},
		Price:          1500,
		Commission:     150,
		CommissionRate: 10,
		Profit:         1350,
		PurchaseDate:   time.Date(2025, 1, day, 10, 0, 0, 0, merhist.JST),
		CompletionDate: time.Date(2025, 1, day, 0, 0, 0, 0, merhist.JST),
	}
}

func boughtItem(id string, day int) *merhist.Item {
	return &merhist.Item{
		ID:           id,
		RecordType:   merhist.Bought,
		Shop:         merhist.ShopNormal,
		Name:         "item " + id,
		Count:        1,
		Price:        800,
		PurchaseDate: time.Date(2025, 2, day, 12, 30, 0, 0, merhist.JST),
	}
}

func TestStore_UpsertAndIsCached(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	cached, err := s.IsCached(ctx, merhist.Sold, "m1")
	require.NoError(t, err)
	assert.False(t, cached)

	require.NoError(t, s.Upsert(ctx, soldItem("m1", 10)))

	cached, err = s.IsCached(ctx, merhist.Sold, "m1")
	require.NoError(t, err)
	assert.True(t, cached)

	// The key is (record type, id): a sold id is not a bought cache hit.
	cached, err = s.IsCached(ctx, merhist.Bought, "m1")
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestStore_UpsertReplacesWholesale(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	first := soldItem("m1", 10)
	first.Condition = "新品、未使用"
	require.NoError(t, s.Upsert(ctx, first))

	second := soldItem("m1", 10)
	second.Price = 2000
	// Condition left empty: a replacement must not inherit the old value.
	require.NoError(t, s.Upsert(ctx, second))

	items, err := s.Items(ctx, merhist.Sold)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2000, items[0].Price)
	assert.Empty(t, items[0].Condition)

	n, err := s.Count(ctx, merhist.Sold)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_ItemsOrderedByTransactionDate(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, soldItem("m3", 20)))
	require.NoError(t, s.Upsert(ctx, soldItem("m1", 5)))
	require.NoError(t, s.Upsert(ctx, soldItem("m2", 12)))

	items, err := s.Items(ctx, merhist.Sold)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{items[0].ID, items[1].ID, items[2].ID})

	require.NoError(t, s.Upsert(ctx, boughtItem("m9", 28)))
	require.NoError(t, s.Upsert(ctx, boughtItem("m8", 3)))

	bought, err := s.Items(ctx, merhist.Bought)
	require.NoError(t, err)
	require.Len(t, bought, 2)
	assert.Equal(t, "m8", bought[0].ID)
	assert.Equal(t, "m9", bought[1].ID)
}

func TestStore_RoundTripPreservesFields(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	in := soldItem("m1", 10)
	in.PostageCharge = "送料込み(出品者負担)"
	in.SellerRegion = "東京都"
	in.ThumbnailURL = "https://static.mercdn.net/item/m1.jpg"
	in.Error = "商品情報ページが削除されています"
	require.NoError(t, s.Upsert(ctx, in))

	items, err := s.Items(ctx, merhist.Sold)
	require.NoError(t, err)
	require.Len(t, items, 1)

	out := items[0]
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, []string{"本・雑誌・漫画", "本"}, out.Category)
	assert.Equal(t, in.PostageCharge, out.PostageCharge)
	assert.Equal(t, in.SellerRegion, out.SellerRegion)
	assert.Equal(t, in.ThumbnailURL, out.ThumbnailURL)
	assert.Equal(t, in.Error, out.Error)
	assert.True(t, in.PurchaseDate.Equal(out.PurchaseDate))
	assert.True(t, in.CompletionDate.Equal(out.CompletionDate))
	assert.False(t, out.FetchedAt.IsZero())
}

func TestStore_UpsertValidates(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	err := s.Upsert(context.Background(), &merhist.Item{RecordType: merhist.Sold})

	assert.Equal(t, merhist.EINVALID, merhist.ErrorCode(err))
}

func TestStore_Metadata(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	got, err := s.Metadata(ctx, merhist.MetaSoldTotalCount, "0")
	require.NoError(t, err)
	assert.Equal(t, "0", got)

	require.NoError(t, s.SetMetadata(ctx, merhist.MetaSoldTotalCount, "45"))

	got, err = s.Metadata(ctx, merhist.MetaSoldTotalCount, "0")
	require.NoError(t, err)
	assert.Equal(t, "45", got)
}

func TestStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "merhist.db")
	ctx := context.Background()

	db := sqlite.NewDB(path)
	require.NoError(t, db.Open())
	s := sqlite.NewStore(db)
	require.NoError(t, s.Upsert(ctx, soldItem("m1", 10)))
	require.NoError(t, s.Upsert(ctx, boughtItem("m2", 4)))
	require.NoError(t, s.Close())

	db2 := sqlite.NewDB(path)
	require.NoError(t, db2.Open())
	defer db2.Close()
	s2 := sqlite.NewStore(db2)

	cached, err := s2.IsCached(ctx, merhist.Sold, "m1")
	require.NoError(t, err)
	assert.True(t, cached)

	bought, err := s2.Items(ctx, merhist.Bought)
	require.NoError(t, err)
	require.Len(t, bought, 1)
	assert.Equal(t, "m2", bought[0].ID)
}

func TestDB_RejectsConcurrentOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "merhist.db")

	db := sqlite.NewDB(path)
	require.NoError(t, db.Open())
	defer db.Close()

	other := sqlite.NewDB(path)
	err := other.Open()

	require.Error(t, err)
	assert.Equal(t, merhist.ECONFLICT, merhist.ErrorCode(err))
}

func TestDB_LockReleasedOnClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "merhist.db")

	db := sqlite.NewDB(path)
	require.NoError(t, db.Open())
	require.NoError(t, db.Close())

	again := sqlite.NewDB(path)
	require.NoError(t, again.Open())
	defer again.Close()
}
