package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore reads and writes the local filesystem.
type FileStore struct {
	root string
}

// NewFileStore resolves relative paths under root. An empty root means the
// working directory.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: expandHome(root)}
}

// Root returns the directory relative paths resolve under.
func (s *FileStore) Root() string {
	return s.root
}

// Path maps a location to a filesystem path.
func (s *FileStore) Path(url string) string {
	p := strings.TrimPrefix(url, "file://")
	p = expandHome(p)
	if filepath.IsAbs(p) || s.root == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(s.root, p)
}

// Get implements Blob.
func (s *FileStore) Get(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CollaboratorError{Op: "get", URL: url, Err: err}
	}
	data, err := os.ReadFile(s.Path(url))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = errors.Join(ErrNotFound, err)
		}
		return nil, &CollaboratorError{Op: "get", URL: url, Err: err}
	}
	return data, nil
}

// Put implements Blob. Missing parent directories are created.
func (s *FileStore) Put(ctx context.Context, url string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return &CollaboratorError{Op: "put", URL: url, Err: err}
	}
	path := s.Path(url)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &CollaboratorError{Op: "put", URL: url, Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &CollaboratorError{Op: "put", URL: url, Err: err}
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}
