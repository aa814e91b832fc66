package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8000/static/audio/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	url, err := store.Put(context.Background(), "clip.mp3", []byte("bytes"), "audio/mpeg")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "http://localhost:8000/static/audio/clip.mp3" {
		t.Fatalf("url = %q", url)
	}

	content, err := os.ReadFile(filepath.Join(dir, "clip.mp3"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(content) != "bytes" {
		t.Fatalf("content = %q", content)
	}
}

func TestLocalStoreSanitizesName(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8000/audio")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	url, err := store.Put(context.Background(), "../../etc/passwd.mp3", []byte("x"), "audio/mpeg")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "http://localhost:8000/audio/passwd.mp3" {
		t.Fatalf("url = %q, path components must be stripped", url)
	}
	if _, err := os.Stat(filepath.Join(dir, "passwd.mp3")); err != nil {
		t.Fatalf("artifact not written inside the store dir: %v", err)
	}
}

func TestLocalStoreRequiresDir(t *testing.T) {
	if _, err := NewLocalStore("  ", "http://localhost"); err == nil {
		t.Fatal("expected an error for a blank directory")
	}
}

func TestLocalStoreCanceledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "clip.mp3", []byte("x"), "audio/mpeg"); err == nil {
		t.Fatal("expected an error for a canceled context")
	}
}
