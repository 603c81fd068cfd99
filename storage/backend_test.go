package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/persist/storage"
)

// testBackendContract exercises the behavior every Backend must share.
func testBackendContract(t *testing.T, newBackend func(t *testing.T) storage.Backend) {
	t.Run("text round trip", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.WriteText(ctx, "conversations/1_alice_bob.md", "# Date\nhello"))

		got, err := b.ReadText(ctx, "conversations/1_alice_bob.md")
		require.NoError(t, err)
		assert.Equal(t, "# Date\nhello", got)
	})

	t.Run("json round trip", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		in := map[string]any{"wallet_id": "w-1", "seed": "abc", "network_id": "base-sepolia"}
		require.NoError(t, b.WriteJSON(ctx, "wallets/agent-1.json", in))

		var out map[string]any
		require.NoError(t, b.ReadJSON(ctx, "wallets/agent-1.json", &out))
		assert.Equal(t, in, out)
	})

	t.Run("bytes round trip", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		in := []byte{0x00, 0xff, 0x10, 0x7f}
		require.NoError(t, b.WriteBytes(ctx, "images/a.bin", in))

		out, err := b.ReadBytes(ctx, "images/a.bin")
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.WriteText(ctx, "prompts/system.txt", "first version is longer"))
		require.NoError(t, b.WriteText(ctx, "prompts/system.txt", "second"))

		got, err := b.ReadText(ctx, "prompts/system.txt")
		require.NoError(t, err)
		assert.Equal(t, "second", got)
	})

	t.Run("read missing", func(t *testing.T) {
		b := newBackend(t)

		_, err := b.ReadText(context.Background(), "states/none_state.json")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		var v map[string]any
		err = b.ReadJSON(context.Background(), "states/none_state.json", &v)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("read malformed json", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.WriteText(ctx, "registry/tokens.json", "{not json"))

		var v map[string]any
		err := b.ReadJSON(ctx, "registry/tokens.json", &v)
		assert.ErrorIs(t, err, storage.ErrDecode)
	})

	t.Run("exists lifecycle", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		assert.False(t, b.Exists(ctx, "agents/users/7.json"))
		require.NoError(t, b.WriteJSON(ctx, "agents/users/7.json", map[string]string{"name": "x"}))
		assert.True(t, b.Exists(ctx, "agents/users/7.json"))
		require.NoError(t, b.Delete(ctx, "agents/users/7.json"))
		assert.False(t, b.Exists(ctx, "agents/users/7.json"))
	})

	t.Run("delete missing is a no-op", func(t *testing.T) {
		b := newBackend(t)
		assert.NoError(t, b.Delete(context.Background(), "wallets/ghost.json"))
	})

	t.Run("list immediate children", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		for _, p := range []string{
			"agents/users/2.json",
			"agents/users/1.json",
			"agents/users/archive/0.json",
			"agents/other.json",
			"wallets/a.json",
		} {
			require.NoError(t, b.WriteText(ctx, p, "{}"))
		}

		names, err := b.ListDir(ctx, "agents/users")
		require.NoError(t, err)
		assert.Equal(t, []string{"1.json", "2.json"}, names)

		names, err = b.ListDir(ctx, "agents/users/")
		require.NoError(t, err)
		assert.Equal(t, []string{"1.json", "2.json"}, names)
	})

	t.Run("list includes dot-named records", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.WriteText(ctx, "prompts/greet.txt", "hi"))
		require.NoError(t, b.WriteText(ctx, "prompts/.system.txt", "be kind"))
		assert.True(t, b.Exists(ctx, "prompts/.system.txt"))

		names, err := b.ListDir(ctx, "prompts")
		require.NoError(t, err)
		assert.Equal(t, []string{".system.txt", "greet.txt"}, names)
	})

	t.Run("list ignores surrounding slashes", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.WriteText(ctx, "top.txt", "x"))
		require.NoError(t, b.WriteText(ctx, "agents/users/1.json", "{}"))

		for _, dir := range []string{"", "/"} {
			names, err := b.ListDir(ctx, dir)
			require.NoError(t, err)
			assert.Equal(t, []string{"top.txt"}, names, "dir %q", dir)
		}

		names, err := b.ListDir(ctx, "/agents/users/")
		require.NoError(t, err)
		assert.Equal(t, []string{"1.json"}, names)
	})

	t.Run("list empty prefix", func(t *testing.T) {
		b := newBackend(t)

		names, err := b.ListDir(context.Background(), "nothing/here")
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}
