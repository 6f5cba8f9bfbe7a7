package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore writes artifacts under a root directory. It is the default when
// no S3 endpoint is configured and what the CLI uses for its output dir.
type FSStore struct {
	root string
}

func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

// Put writes the object to root/key, creating parent directories as needed.
// The content type is ignored; the key's extension carries that information
// on a filesystem.
func (s *FSStore) Put(ctx context.Context, key string, contentType string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", key, err)
	}
	return nil
}
