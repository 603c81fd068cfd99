package tokenapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/persist/manager"
	"github.com/tailored-agentic-units/persist/storage"
	"github.com/tailored-agentic-units/persist/tokenapi"
	"github.com/tailored-agentic-units/persist/tokens"
)

func newServer(t *testing.T) (*tokens.Registry, *manager.Manager, *httptest.Server) {
	t.Helper()
	m, err := manager.New(storage.NewLocal(t.TempDir()))
	require.NoError(t, err)

	reg := tokens.New(m)
	mux := http.NewServeMux()
	mux.Handle(tokenapi.NewHandler(reg))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return reg, m, srv
}

func TestGetToken(t *testing.T) {
	reg, _, srv := newServer(t)
	ctx := context.Background()
	_, err := reg.Register(ctx, "https://img/0.png", "a sunset", []string{"alice", "bob"})
	require.NoError(t, err)

	client := tokenapi.NewClient(srv.Client(), srv.URL)

	meta, err := client.GetToken(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, tokens.Metadata{
		TokenID:      0,
		ImageURL:     "https://img/0.png",
		Prompt:       "a sunset",
		Participants: []string{"alice", "bob"},
	}, meta)

	_, err = client.GetToken(ctx, 9)
	assert.ErrorIs(t, err, tokenapi.ErrTokenNotFound)
}

func TestGetNFTMetadata(t *testing.T) {
	reg, m, srv := newServer(t)
	ctx := context.Background()
	client := tokenapi.NewClient(srv.Client(), srv.URL)

	_, err := client.GetNFTMetadata(ctx, 0)
	require.ErrorIs(t, err, tokenapi.ErrTokenNotFound)

	// Registered through another registry sharing the store; the served
	// registry only sees it after reloading.
	_, err = tokens.New(m).Register(ctx, "https://img/0.png", "p", []string{"alice", "bob"})
	require.NoError(t, err)
	_, ok := reg.Get(0)
	require.False(t, ok)

	nft, err := client.GetNFTMetadata(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Date Memory #0", nft.Name)
	assert.Equal(t, "https://img/0.png", nft.Image)
	assert.Equal(t, []tokens.Attribute{
		{TraitType: "User", Value: "alice"},
		{TraitType: "Match", Value: "bob"},
	}, nft.Attributes)
}

func TestListTokens(t *testing.T) {
	reg, _, srv := newServer(t)
	ctx := context.Background()
	client := tokenapi.NewClient(srv.Client(), srv.URL)

	all, err := client.ListTokens(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	for _, pair := range [][]string{{"a", "b"}, {"c", "d"}} {
		_, err := reg.Register(ctx, "u", "p", pair)
		require.NoError(t, err)
	}

	all, err = client.ListTokens(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"c", "d"}, all[1].Participants)
}

func TestInvalidTokenID(t *testing.T) {
	_, _, srv := newServer(t)
	raw := connect.NewClient[wrapperspb.Int64Value, structpb.Struct](
		srv.Client(), srv.URL+tokenapi.GetTokenProcedure,
	)

	_, err := raw.CallUnary(context.Background(), connect.NewRequest(wrapperspb.Int64(-1)))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestJSONClient(t *testing.T) {
	reg, _, srv := newServer(t)
	ctx := context.Background()
	_, err := reg.Register(ctx, "u", "p", []string{"a", "b"})
	require.NoError(t, err)

	client := tokenapi.NewClient(srv.Client(), srv.URL, connect.WithProtoJSON())
	meta, err := client.GetToken(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "u", meta.ImageURL)
}
