// Package tokenapi serves the token registry over Connect. Requests and
// responses use protobuf well-known types so clients need no generated
// code: token ids travel as google.protobuf.Int64Value and token documents
// as google.protobuf.Struct, with the same JSON field names as the
// persisted registry.
package tokenapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/persist/tokens"
)

// ServiceName is the fully-qualified name of the token service.
const ServiceName = "persist.v1.TokenService"

// Procedure paths of the token service.
const (
	GetTokenProcedure       = "/" + ServiceName + "/GetToken"
	GetNFTMetadataProcedure = "/" + ServiceName + "/GetNFTMetadata"
	ListTokensProcedure     = "/" + ServiceName + "/ListTokens"
)

type server struct {
	registry *tokens.Registry
}

// NewHandler returns the path prefix and handler serving reg. Mount it on a
// mux: mux.Handle(tokenapi.NewHandler(reg)).
func NewHandler(reg *tokens.Registry, opts ...connect.HandlerOption) (string, http.Handler) {
	s := &server{registry: reg}
	mux := http.NewServeMux()

	mux.Handle(GetTokenProcedure, connect.NewUnaryHandler(
		GetTokenProcedure, s.getToken, opts...,
	))
	mux.Handle(GetNFTMetadataProcedure, connect.NewUnaryHandler(
		GetNFTMetadataProcedure, s.getNFTMetadata, opts...,
	))
	mux.Handle(ListTokensProcedure, connect.NewUnaryHandler(
		ListTokensProcedure, s.listTokens, opts...,
	))

	return "/" + ServiceName + "/", mux
}

func (s *server) getToken(_ context.Context, req *connect.Request[wrapperspb.Int64Value]) (*connect.Response[structpb.Struct], error) {
	id, err := tokenID(req.Msg)
	if err != nil {
		return nil, err
	}

	meta, ok := s.registry.Get(id)
	if !ok {
		return nil, notFound(id)
	}
	return respond(meta)
}

func (s *server) getNFTMetadata(ctx context.Context, req *connect.Request[wrapperspb.Int64Value]) (*connect.Response[structpb.Struct], error) {
	id, err := tokenID(req.Msg)
	if err != nil {
		return nil, err
	}

	nft, found, err := s.registry.NFT(ctx, id)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	if !found {
		return nil, notFound(id)
	}
	return respond(nft)
}

func (s *server) listTokens(_ context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	all := s.registry.List()
	byID := make(map[string]tokens.Metadata, len(all))
	for _, meta := range all {
		byID[strconv.Itoa(meta.TokenID)] = meta
	}
	return respond(map[string]any{"tokens": byID})
}

func tokenID(msg *wrapperspb.Int64Value) (int, error) {
	v := msg.GetValue()
	if v < 0 || v > math.MaxInt32 {
		return 0, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid token id %d", v))
	}
	return int(v), nil
}

func notFound(id int) error {
	return connect.NewError(connect.CodeNotFound, fmt.Errorf("token %d not found", id))
}

func respond(v any) (*connect.Response[structpb.Struct], error) {
	s, err := toStruct(v)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(s), nil
}

// toStruct converts v to a Struct through its JSON form, so field names
// match the json tags of v.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// fromStruct decodes s into v through its JSON form.
func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return errors.New("empty response")
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
