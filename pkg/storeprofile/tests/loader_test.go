package tests

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poskernel/pkg/storeprofile"
)

func writeIndex(t *testing.T, docs []map[string]any) string {
	t.Helper()
	data, err := json.Marshal(docs)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "stores.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadParsesProfilesAndPaymentTypes(t *testing.T) {
	path := writeIndex(t, []map[string]any{
		{
			"storeId":     "store-1",
			"displayName": "Corner Store",
			"currency":    "USD",
			"culture":     "en-US",
			"version":     1,
			"paymentTypes": map[string]any{
				"cash":  map[string]any{"allowsChange": true, "requiresExact": false},
				"debit": map[string]any{"allowsChange": false, "requiresExact": true},
			},
			"database": map[string]any{"type": "sqlite", "connectionString": "store1.db"},
		},
	})

	profiles, err := storeprofile.Load(path)
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	profile := profiles[0]
	assert.Equal(t, "store-1", profile.StoreID)
	require.NotNil(t, profile.Database)
	assert.Equal(t, "sqlite", profile.Database.Type)

	tenderTypes := profile.TenderTypesLike()
	assert.Len(t, tenderTypes, 2)
	var sawExact bool
	for _, tt := range tenderTypes {
		if tt.TenderID() == "debit" {
			sawExact = tt.RequiresExactTender()
		}
	}
	assert.True(t, sawExact)
}

func TestLoadRejectsProfileMissingStoreID(t *testing.T) {
	path := writeIndex(t, []map[string]any{
		{"currency": "USD"},
	})

	_, err := storeprofile.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storeId")
}

func TestLoadRejectsProfileMissingCurrency(t *testing.T) {
	path := writeIndex(t, []map[string]any{
		{"storeId": "store-1"},
	})

	_, err := storeprofile.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "currency")
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	_, err := storeprofile.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
