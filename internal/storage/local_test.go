package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalBackendPut(t *testing.T) {
	root := t.TempDir()
	b := NewLocalBackend(root)

	path, err := b.Put(context.Background(), "conv-1/2026/03/05/take.wav", []byte("payload"), "application/octet-stream")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("expected absolute path, got %q", path)
	}

	data, err := os.ReadFile(filepath.Join(root, "conv-1", "2026", "03", "05", "take.wav"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q", data)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Join(root, "conv-1", "2026", "03", "05"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the artifact, found %d entries", len(entries))
	}
}

func TestLocalBackendOverwrite(t *testing.T) {
	b := NewLocalBackend(t.TempDir())
	ctx := context.Background()

	if _, err := b.Put(ctx, "k/v.txt", []byte("one"), ""); err != nil {
		t.Fatalf("first put: %v", err)
	}
	path, err := b.Put(ctx, "k/v.txt", []byte("two"), "")
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "two" {
		t.Errorf("overwrite failed, content = %q", data)
	}
}
