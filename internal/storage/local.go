package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists audio artifacts and returns a URL clients can fetch them
// from. The service never blocks on artifact lifecycle beyond the write.
type Store interface {
	Put(ctx context.Context, name string, content []byte, contentType string) (string, error)
}

// LocalStore writes artifacts to a directory served by the HTTP layer.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("audio directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}, nil
}

func (s *LocalStore) Put(ctx context.Context, name string, content []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = filepath.Base(name)
	if name == "" || name == "." {
		return "", fmt.Errorf("artifact name is required")
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

// Dir exposes the backing directory for the static file server.
func (s *LocalStore) Dir() string {
	return s.dir
}
