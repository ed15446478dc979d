package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalBackend writes artifacts under a root directory. Writes are atomic
// (temp file + rename) so readers never observe partial artifacts.
type LocalBackend struct {
	root string
}

func NewLocalBackend(root string) *LocalBackend {
	return &LocalBackend{root: root}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	dest := filepath.Join(b.root, filepath.FromSlash(key))
	if err := atomicWrite(dest, data); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return dest, nil
	}
	return abs, nil
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing artifact: %w", err)
	}
	tmp = nil // prevent defer cleanup

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming artifact: %w", err)
	}
	return nil
}
