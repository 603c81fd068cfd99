package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// byteIO is the subset of a backend the JSON and text codecs are layered on.
type byteIO interface {
	ReadBytes(ctx context.Context, path string) ([]byte, error)
	WriteBytes(ctx context.Context, path string, data []byte) error
}

func readText(ctx context.Context, b byteIO, path string) (string, error) {
	data, err := b.ReadBytes(ctx, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readJSON(ctx context.Context, b byteIO, path string, v any) error {
	data, err := b.ReadBytes(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return nil
}

func writeJSON(ctx context.Context, b byteIO, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return b.WriteBytes(ctx, path, data)
}
