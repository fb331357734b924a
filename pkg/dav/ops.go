package dav

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/davget/davget/pkg/client"
)

// Mkdir creates a collection at path via MKCOL.
func (r *Remote) Mkdir(ctx context.Context, path string) error {
	return r.simpleRequest(ctx, "MKCOL", path)
}

// Delete removes the file or collection at path. Collections are removed
// recursively by the server.
func (r *Remote) Delete(ctx context.Context, path string) error {
	return r.simpleRequest(ctx, http.MethodDelete, path)
}

// Copy duplicates src to dst server-side.
func (r *Remote) Copy(ctx context.Context, src, dst string) error {
	return r.destinationRequest(ctx, "COPY", src, dst)
}

// Move renames src to dst server-side.
func (r *Remote) Move(ctx context.Context, src, dst string) error {
	return r.destinationRequest(ctx, "MOVE", src, dst)
}

// Put uploads body to path as one whole-file PUT. The size must be known
// up front so the request carries a Content-Length instead of going out
// chunked; some servers reject chunked PUT bodies.
func (r *Remote) Put(ctx context.Context, path string, body io.Reader, size int64) error {
	headers := map[string]string{"Accept": "*/*"}
	resp, err := r.control.Send(ctx, http.MethodPut, r.URL(path), headers, body, size)
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	if !resp.Success() {
		return fmt.Errorf("put %s: %w", path, client.ErrUnexpectedStatus(resp.StatusCode))
	}
	return nil
}

func (r *Remote) simpleRequest(ctx context.Context, method, path string) error {
	resp, err := r.control.Request(ctx, method, r.URL(path), map[string]string{"Accept": "*/*"})
	if err != nil {
		return fmt.Errorf("%s %s: %w", strings.ToLower(method), path, err)
	}
	if !resp.Success() {
		return fmt.Errorf("%s %s: %w", strings.ToLower(method), path, client.ErrUnexpectedStatus(resp.StatusCode))
	}
	return nil
}

// destinationRequest issues COPY or MOVE. The Destination header carries
// the un-encoded full path, not a URL.
func (r *Remote) destinationRequest(ctx context.Context, method, src, dst string) error {
	headers := map[string]string{
		"Accept":      "*/*",
		"Destination": r.FullPath(dst),
	}
	resp, err := r.control.Request(ctx, method, r.URL(src), headers)
	if err != nil {
		return fmt.Errorf("%s %s: %w", strings.ToLower(method), src, err)
	}
	if !resp.Success() {
		return fmt.Errorf("%s %s: %w", strings.ToLower(method), src, client.ErrUnexpectedStatus(resp.StatusCode))
	}
	return nil
}
