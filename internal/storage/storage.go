package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is wrapped when a location does not exist.
var ErrNotFound = errors.New("not found")

// CollaboratorError is a storage failure.
type CollaboratorError struct {
	Op  string
	URL string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Blob is the storage collaborator.
type Blob interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Put(ctx context.Context, url string, data []byte, contentType string) error
}

// Router dispatches by URL scheme.
type Router struct {
	Files *FileStore
	HTTP  *HTTPStore
}

// NewRouter serves local paths under root and remote URLs over HTTP.
func NewRouter(root string) *Router {
	return &Router{Files: NewFileStore(root), HTTP: NewHTTPStore(nil)}
}

// Get implements Blob.
func (r *Router) Get(ctx context.Context, url string) ([]byte, error) {
	b, err := r.pick(url)
	if err != nil {
		return nil, &CollaboratorError{Op: "get", URL: url, Err: err}
	}
	return b.Get(ctx, url)
}

// Put implements Blob.
func (r *Router) Put(ctx context.Context, url string, data []byte, contentType string) error {
	b, err := r.pick(url)
	if err != nil {
		return &CollaboratorError{Op: "put", URL: url, Err: err}
	}
	return b.Put(ctx, url, data, contentType)
}

func (r *Router) pick(url string) (Blob, error) {
	switch scheme(url) {
	case "", "file":
		if r.Files == nil {
			return nil, errors.New("local storage disabled")
		}
		return r.Files, nil
	case "http", "https":
		if r.HTTP == nil {
			return nil, errors.New("remote storage disabled")
		}
		return r.HTTP, nil
	}
	return nil, fmt.Errorf("unsupported scheme %q", scheme(url))
}

// scheme returns the lower-cased URL scheme, or "" for plain paths.
// Windows drive letters are not schemes.
func scheme(url string) string {
	i := strings.Index(url, "://")
	if i <= 1 {
		return ""
	}
	return strings.ToLower(url[:i])
}
