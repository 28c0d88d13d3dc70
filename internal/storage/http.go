package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxDownload caps drawing downloads at 256 MB.
const maxDownload = 256 << 20

// HTTPStore fetches with GET and stores with PUT.
type HTTPStore struct {
	client *http.Client
}

// NewHTTPStore uses client, or a client with a two minute timeout if nil.
func NewHTTPStore(client *http.Client) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPStore{client: client}
}

// Get implements Blob.
func (s *HTTPStore) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &CollaboratorError{Op: "get", URL: url, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &CollaboratorError{Op: "get", URL: url, Err: err}
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, &CollaboratorError{Op: "get", URL: url, Err: err}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload+1))
	if err != nil {
		return nil, &CollaboratorError{Op: "get", URL: url, Err: err}
	}
	if len(data) > maxDownload {
		return nil, &CollaboratorError{Op: "get", URL: url, Err: fmt.Errorf("larger than %d bytes", maxDownload)}
	}
	return data, nil
}

// Put implements Blob.
func (s *HTTPStore) Put(ctx context.Context, url string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return &CollaboratorError{Op: "put", URL: url, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &CollaboratorError{Op: "put", URL: url, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if err := statusError(resp); err != nil {
		return &CollaboratorError{Op: "put", URL: url, Err: err}
	}
	return nil
}

func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", ErrNotFound, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("HTTP %s", resp.Status)
	}
	return nil
}
