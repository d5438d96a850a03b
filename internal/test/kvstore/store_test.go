package kvstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insight-backend/internal/kvstore"
)

func newStore(t *testing.T) *kvstore.Store {
	t.Helper()
	store, err := kvstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGetItem(t *testing.T) {
	store := newStore(t)

	err := store.PutItem(kvstore.Item{PK: "USER#abc", SK: "PROFILE", Value: []byte(`{"email":"a@b.c"}`)})
	require.NoError(t, err)

	item, err := store.GetItem("USER#abc", "PROFILE")
	require.NoError(t, err)
	assert.Equal(t, "USER#abc", item.PK)
	assert.Equal(t, "PROFILE", item.SK)
	assert.Equal(t, []byte(`{"email":"a@b.c"}`), item.Value)
}

func TestGetItem_NotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.GetItem("USER#missing", "PROFILE")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestPutItem_Overwrites(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.PutItem(kvstore.Item{PK: "USER#abc", SK: "PROJECT#1", Value: []byte("first")}))
	require.NoError(t, store.PutItem(kvstore.Item{PK: "USER#abc", SK: "PROJECT#1", Value: []byte("second")}))

	item, err := store.GetItem("USER#abc", "PROJECT#1")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), item.Value)
}

func TestDeleteItem(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.PutItem(kvstore.Item{PK: "USER#abc", SK: "PASSWORD_RESET", Value: []byte("{}")}))
	require.NoError(t, store.DeleteItem("USER#abc", "PASSWORD_RESET"))

	_, err := store.GetItem("USER#abc", "PASSWORD_RESET")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, store.DeleteItem("USER#abc", "PASSWORD_RESET"))
}

func TestQuery_PrefixAndOrder(t *testing.T) {
	store := newStore(t)

	for _, sk := range []string{"PROJECT#20240101_000000", "PROJECT#20240102_000000", "PROJECT#20240103_000000", "PROFILE"} {
		require.NoError(t, store.PutItem(kvstore.Item{PK: "USER#abc", SK: sk, Value: []byte(sk)}))
	}
	// A different partition must never leak into the result.
	require.NoError(t, store.PutItem(kvstore.Item{PK: "USER#other", SK: "PROJECT#20240101_000000", Value: []byte("other")}))

	items, err := store.Query("USER#abc", "PROJECT#", 0, false)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "PROJECT#20240101_000000", items[0].SK)
	assert.Equal(t, "PROJECT#20240103_000000", items[2].SK)

	items, err = store.Query("USER#abc", "PROJECT#", 0, true)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "PROJECT#20240103_000000", items[0].SK)
	assert.Equal(t, "PROJECT#20240101_000000", items[2].SK)
}

func TestQuery_Limit(t *testing.T) {
	store := newStore(t)

	for _, sk := range []string{"PROJECT#a", "PROJECT#b", "PROJECT#c"} {
		require.NoError(t, store.PutItem(kvstore.Item{PK: "USER#abc", SK: sk, Value: []byte(sk)}))
	}

	items, err := store.Query("USER#abc", "PROJECT#", 2, true)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "PROJECT#c", items[0].SK)
	assert.Equal(t, "PROJECT#b", items[1].SK)
}

func TestQuery_EmptyPartition(t *testing.T) {
	store := newStore(t)

	items, err := store.Query("USER#nobody", "PROJECT#", 10, true)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestScanPartitions(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.PutItem(kvstore.Item{PK: "USER#bbb", SK: "PROFILE", Value: []byte("{}")}))
	require.NoError(t, store.PutItem(kvstore.Item{PK: "USER#aaa", SK: "PROFILE", Value: []byte("{}")}))
	require.NoError(t, store.PutItem(kvstore.Item{PK: "USER#aaa", SK: "PROJECT#1", Value: []byte("{}")}))

	partitions, err := store.ScanPartitions()
	require.NoError(t, err)
	assert.Equal(t, []string{"USER#aaa", "USER#bbb"}, partitions)
}
