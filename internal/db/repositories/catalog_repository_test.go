package repositories

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/entities"
	"yoco/stocksync/internal/testutil"
)

func seededCatalog(t *testing.T) *CatalogRepository {
	t.Helper()
	db := testutil.CreateTestCatalog(t)
	testutil.SeedCatalog(t, db,
		testutil.CatalogRow{ID: 1, SKU: "A1", EAN: "871001", SyncEnabled: true, ManageStock: true, Quantity: testutil.Int64(0), DeliveryText: "1-2 dagen", Suppliers: []int64{5}},
		testutil.CatalogRow{ID: 2, Kind: constants.EntryVariable, SyncEnabled: true, Suppliers: []int64{5, 6}},
		testutil.CatalogRow{ID: 3, ParentID: 2, Kind: constants.EntryVariation, SKU: "V1"},
		testutil.CatalogRow{ID: 4, ParentID: 2, Kind: constants.EntryVariation, SKU: "V2"},
		testutil.CatalogRow{ID: 9, SKU: "OTHER", Suppliers: []int64{6}},
	)
	return NewCatalogRepository(db)
}

func TestCatalogRepository_Reads(t *testing.T) {
	ctx := context.Background()
	repo := seededCatalog(t)

	entry, err := repo.GetEntry(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "A1", entry.SKU)
	assert.Equal(t, constants.EntrySimple, entry.Kind)
	assert.Equal(t, constants.StockInStock, entry.StockStatus)
	assert.Equal(t, constants.BackordersNo, entry.Backorders)
	assert.True(t, entry.SyncEnabled)
	assert.Empty(t, entry.DefaultDeliveryText)

	missing, err := repo.GetEntry(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, missing)

	entries, err := repo.GetEntriesForSupplier(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].ID)
	assert.Equal(t, int64(2), entries[1].ID)

	children, err := repo.GetChildren(ctx, 2)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.True(t, children[0].IsVariation())

	suppliers, err := repo.GetSuppliersForEntry(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6}, suppliers, "variations inherit parent suppliers")
}

func TestCatalogRepository_OwnStock(t *testing.T) {
	ctx := context.Background()
	repo := seededCatalog(t)

	own, err := repo.GetOwnStock(ctx, 1)
	require.NoError(t, err)
	assert.True(t, own.Managed)
	require.NotNil(t, own.Quantity)
	assert.False(t, own.Sellable())

	own, err = repo.GetOwnStock(ctx, 9)
	require.NoError(t, err)
	assert.False(t, own.Managed)
	assert.Nil(t, own.Quantity)
	assert.True(t, own.Sellable())

	_, err = repo.GetOwnStock(ctx, 404)
	assert.True(t, errors.Is(err, apperrors.ErrEntryNotFound))
}

func TestCatalogRepository_Writes(t *testing.T) {
	ctx := context.Background()
	repo := seededCatalog(t)

	require.NoError(t, repo.SetSyncEnabled(ctx, 3, true))
	require.NoError(t, repo.SetStockState(ctx, 1, entities.StockState{
		Backorders:   constants.BackordersNotify,
		StockStatus:  constants.StockOnBackorder,
		DeliveryText: "5 werkdagen",
	}))

	entry, err := repo.GetEntry(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, constants.BackordersNotify, entry.Backorders)
	assert.Equal(t, constants.StockOnBackorder, entry.StockStatus)
	assert.Equal(t, "5 werkdagen", entry.DeliveryText)

	child, err := repo.GetEntry(ctx, 3)
	require.NoError(t, err)
	assert.True(t, child.SyncEnabled)

	err = repo.SetSyncEnabled(ctx, 404, true)
	assert.True(t, errors.Is(err, apperrors.ErrEntryNotFound))
}

func TestCatalogRepository_CaptureDefaultDeliveryOnce(t *testing.T) {
	ctx := context.Background()
	repo := seededCatalog(t)

	written, err := repo.CaptureDefaultDelivery(ctx, 1, "1-2 dagen")
	require.NoError(t, err)
	assert.True(t, written)

	written, err = repo.CaptureDefaultDelivery(ctx, 1, "something else")
	require.NoError(t, err)
	assert.False(t, written)

	written, err = repo.CaptureDefaultDelivery(ctx, 404, "1-2 dagen")
	require.NoError(t, err)
	assert.False(t, written)

	written, err = repo.CaptureDefaultDelivery(ctx, 9, "Op voorraad")
	require.NoError(t, err)
	assert.True(t, written, "an entry without delivery text still gets a default")

	entry, err := repo.GetEntry(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1-2 dagen", entry.DefaultDeliveryText)
	other, err := repo.GetEntry(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "Op voorraad", other.DefaultDeliveryText)
}

func TestCatalogRepository_DriverFailureIsStoreError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewCatalogRepository(sqlx.NewDb(mockDB, "postgres"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog_entries WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnError(errors.New("connection reset"))

	_, err = repo.GetEntry(context.Background(), 1)
	var storeErr *apperrors.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
