package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/persist/storage"
)

func TestCopy_LocalToObjectStore(t *testing.T) {
	ctx := context.Background()
	src := storage.NewLocal(t.TempDir())
	dst := storage.NewObjectStoreWithClient(newFakeObjectClient(), "agents")

	require.NoError(t, src.WriteJSON(ctx, "wallets/a.json", map[string]string{"wallet_id": "1"}))
	require.NoError(t, src.WriteJSON(ctx, "wallets/b.json", map[string]string{"wallet_id": "2"}))
	require.NoError(t, src.WriteJSON(ctx, "wallets/archive/c.json", map[string]string{"wallet_id": "3"}))
	require.NoError(t, dst.WriteText(ctx, "wallets/b.json", "stale"))

	copied, err := storage.Copy(ctx, src, dst, "wallets")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, copied)

	var w map[string]string
	require.NoError(t, dst.ReadJSON(ctx, "wallets/b.json", &w))
	assert.Equal(t, "2", w["wallet_id"])
	assert.False(t, dst.Exists(ctx, "wallets/archive/c.json"))
}

func TestCopy_EmptyNamespace(t *testing.T) {
	ctx := context.Background()

	copied, err := storage.Copy(ctx, storage.NewLocal(t.TempDir()), storage.NewLocal(t.TempDir()), "wallets")
	require.NoError(t, err)
	assert.Empty(t, copied)
}

func TestCopy_StopsOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	src := storage.NewLocal(t.TempDir())
	client := newFakeObjectClient()
	client.failPuts = true
	dst := storage.NewObjectStoreWithClient(client, "agents")

	require.NoError(t, src.WriteText(ctx, "wallets/a.json", "{}"))

	copied, err := storage.Copy(ctx, src, dst, "wallets/")
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Empty(t, copied)
}
