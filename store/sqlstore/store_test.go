package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/tenantAuth/store"
	"github.com/MrEthical07/tenantAuth/store/storetest"
)

func newTestDB(t *testing.T) *Store {
	t.Helper()

	db, err := Open("file:" + storetest.UniqueName("tenantauth") + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, CreateSchema(context.Background(), db))
	// idempotent
	require.NoError(t, CreateSchema(context.Background(), db))
	return New(db)
}

func TestSQLiteStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		return newTestDB(t)
	})
}
