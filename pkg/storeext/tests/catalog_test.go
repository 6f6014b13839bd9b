package tests

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poskernel/pkg/storedb"
	"poskernel/pkg/storeext"
)

const productSchema = `
CREATE TABLE products (sku TEXT PRIMARY KEY, name TEXT, description TEXT, category_id TEXT, base_price INTEGER, is_active BOOLEAN);

INSERT INTO products VALUES ('WIDGET', 'Widget', 'A widget', 'HARDWARE', 250, 1);
INSERT INTO products VALUES ('GADGET', 'Gadget', 'A gadget', 'HARDWARE', 999, 1);
INSERT INTO products VALUES ('RETIRED', 'Retired Thing', 'No longer sold', 'HARDWARE', 100, 0);
`

func seededCatalogDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.sqlite3")
	db, err := storedb.Open(storedb.SQLite, path)
	require.NoError(t, err)
	_, err = db.Exec(productSchema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLCatalogValidateProductReturnsEffectivePrice(t *testing.T) {
	catalog := storeext.NewCatalog(seededCatalogDB(t), nil)

	result := catalog.ValidateProduct("WIDGET")
	require.True(t, result.IsValid)
	assert.True(t, result.EffectivePrice.Equal(decimal.RequireFromString("2.50")))
}

func TestSQLCatalogValidateProductRejectsUnknownSKU(t *testing.T) {
	catalog := storeext.NewCatalog(seededCatalogDB(t), nil)

	result := catalog.ValidateProduct("NOPE")
	assert.False(t, result.IsValid)
	assert.Contains(t, result.ErrorMessage, "NOPE")
}

func TestSQLCatalogValidateProductRejectsInactiveSKU(t *testing.T) {
	catalog := storeext.NewCatalog(seededCatalogDB(t), nil)

	result := catalog.ValidateProduct("RETIRED")
	assert.False(t, result.IsValid)
	assert.Contains(t, result.ErrorMessage, "not active")
}

func TestSQLCatalogGetPopularItemsSkipsMissingAndInactiveSKUs(t *testing.T) {
	catalog := storeext.NewCatalog(seededCatalogDB(t), []string{"WIDGET", "RETIRED", "DOES-NOT-EXIST"})

	items, err := catalog.GetPopularItems()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "WIDGET", items[0].SKU)
}

func TestSQLCatalogSearchProductsIsCaseInsensitive(t *testing.T) {
	catalog := storeext.NewCatalog(seededCatalogDB(t), nil)

	results, err := catalog.SearchProducts("gadg", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "GADGET", results[0].SKU)
}
