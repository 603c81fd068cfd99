package storage

import (
	"context"
	"fmt"
	"strings"
)

// Copy transfers every record directly under dir from src to dst, replacing
// existing records in dst. It returns the names copied, in listing order.
// Records are copied as raw bytes, so any content kind survives unchanged.
func Copy(ctx context.Context, src, dst Backend, dir string) ([]string, error) {
	names, err := src.ListDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("copy %s: %w", dir, err)
	}

	prefix := strings.TrimSuffix(dir, "/")
	copied := make([]string, 0, len(names))
	for _, name := range names {
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}

		data, err := src.ReadBytes(ctx, path)
		if err != nil {
			return copied, fmt.Errorf("copy %s: %w", path, err)
		}
		if err := dst.WriteBytes(ctx, path, data); err != nil {
			return copied, fmt.Errorf("copy %s: %w", path, err)
		}
		copied = append(copied, name)
	}
	return copied, nil
}
