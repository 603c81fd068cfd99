package tokenapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/persist/tokens"
)

// ErrTokenNotFound is returned by Client lookups of unknown token ids.
var ErrTokenNotFound = errors.New("token not found")

// Client calls a remote token service.
type Client struct {
	getToken       *connect.Client[wrapperspb.Int64Value, structpb.Struct]
	getNFTMetadata *connect.Client[wrapperspb.Int64Value, structpb.Struct]
	listTokens     *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewClient creates a Client for the service at baseURL, e.g.
// "http://localhost:8080".
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	return &Client{
		getToken:       connect.NewClient[wrapperspb.Int64Value, structpb.Struct](httpClient, baseURL+GetTokenProcedure, opts...),
		getNFTMetadata: connect.NewClient[wrapperspb.Int64Value, structpb.Struct](httpClient, baseURL+GetNFTMetadataProcedure, opts...),
		listTokens:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ListTokensProcedure, opts...),
	}
}

// GetToken returns the registry metadata of token id.
func (c *Client) GetToken(ctx context.Context, id int) (tokens.Metadata, error) {
	resp, err := c.getToken.CallUnary(ctx, connect.NewRequest(wrapperspb.Int64(int64(id))))
	if err != nil {
		return tokens.Metadata{}, mapError(id, err)
	}

	var meta tokens.Metadata
	if err := fromStruct(resp.Msg, &meta); err != nil {
		return tokens.Metadata{}, fmt.Errorf("failed to decode token %d: %w", id, err)
	}
	return meta, nil
}

// GetNFTMetadata returns the marketplace view of token id.
func (c *Client) GetNFTMetadata(ctx context.Context, id int) (tokens.NFTMetadata, error) {
	resp, err := c.getNFTMetadata.CallUnary(ctx, connect.NewRequest(wrapperspb.Int64(int64(id))))
	if err != nil {
		return tokens.NFTMetadata{}, mapError(id, err)
	}

	var nft tokens.NFTMetadata
	if err := fromStruct(resp.Msg, &nft); err != nil {
		return tokens.NFTMetadata{}, fmt.Errorf("failed to decode token %d: %w", id, err)
	}
	return nft, nil
}

// ListTokens returns every registered token keyed by id.
func (c *Client) ListTokens(ctx context.Context) (map[int]tokens.Metadata, error) {
	resp, err := c.listTokens.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}

	var body struct {
		Tokens map[string]tokens.Metadata `json:"tokens"`
	}
	if err := fromStruct(resp.Msg, &body); err != nil {
		return nil, fmt.Errorf("failed to decode token list: %w", err)
	}

	out := make(map[int]tokens.Metadata, len(body.Tokens))
	for key, meta := range body.Tokens {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("failed to decode token list: invalid token id %q", key)
		}
		out[id] = meta
	}
	return out, nil
}

func mapError(id int, err error) error {
	if connect.CodeOf(err) == connect.CodeNotFound {
		return fmt.Errorf("%w: %d", ErrTokenNotFound, id)
	}
	return err
}
