package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// tempPrefix names in-flight writes; listings skip them.
const tempPrefix = ".tmp-"

type localBackend struct {
	root string
}

// NewLocal creates a Backend rooted at the given directory. Paths map 1:1
// to relative file paths under root. The root is created on first write.
func NewLocal(root string) Backend {
	return &localBackend{root: root}
}

func (b *localBackend) resolve(path string) (string, error) {
	rel := filepath.FromSlash(path)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return filepath.Join(b.root, rel), nil
}

func (b *localBackend) ReadText(ctx context.Context, path string) (string, error) {
	return readText(ctx, b, path)
}

func (b *localBackend) WriteText(ctx context.Context, path, content string) error {
	return b.WriteBytes(ctx, path, []byte(content))
}

func (b *localBackend) ReadJSON(ctx context.Context, path string, v any) error {
	return readJSON(ctx, b, path, v)
}

func (b *localBackend) WriteJSON(ctx context.Context, path string, v any) error {
	return writeJSON(ctx, b, path, v)
}

func (b *localBackend) ReadBytes(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := b.resolve(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, path, err)
	}
	return data, nil
}

// WriteBytes writes through a temp file in the target directory and renames
// it into place, so readers see either the old record or the new one.
func (b *localBackend) WriteBytes(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := b.resolve(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, path, err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, path, err)
	}

	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, path, err)
	}
	return nil
}

func (b *localBackend) Exists(_ context.Context, path string) bool {
	full, err := b.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func (b *localBackend) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, path, err)
	}
	return nil
}

func (b *localBackend) ListDir(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := b.root
	if p := strings.Trim(path, "/"); p != "" {
		full, err := b.resolve(p)
		if err != nil {
			return nil, err
		}
		dir = full
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, path, err)
	}
	if !info.IsDir() {
		return []string{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, path, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
