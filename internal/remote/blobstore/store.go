// Package blobstore stores diary images under string keys and supports
// resumable uploads.
//
// An upload belongs to a session identified by an opaque token. When a
// session is opened the store reports its token through the onSession
// callback before sending any data, so the caller can persist it and resume
// the same session after a crash. Resuming with an unknown or expired token
// silently starts a new session.
//
// S3Store maps sessions onto S3 multipart uploads; LocalStore keeps partial
// files on disk and is used for development and tests.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

var ErrNotFound = errors.New("blob not found")

type Store interface {
	// Upload copies the content referenced by contentRef to path. A non-empty
	// token resumes that session when the store still knows it.
	Upload(ctx context.Context, path, contentRef, token string, onSession func(token string) error) error

	// Delete removes the blob. Deleting an absent blob is not an error.
	Delete(ctx context.Context, path string) error

	// DownloadURL returns a URL the blob can be fetched from.
	DownloadURL(ctx context.Context, path string) (string, error)

	// List returns the keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// LocalPath resolves a content reference (plain path or file:// URI) to a
// filesystem path.
func LocalPath(contentRef string) (string, error) {
	if !strings.HasPrefix(contentRef, "file://") {
		return contentRef, nil
	}
	u, err := url.Parse(contentRef)
	if err != nil {
		return "", fmt.Errorf("invalid content reference %q: %w", contentRef, err)
	}
	return u.Path, nil
}

func openContent(contentRef string) (*os.File, int64, error) {
	p, err := LocalPath(contentRef)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open content: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("failed to stat content: %w", err)
	}
	return f, st.Size(), nil
}
