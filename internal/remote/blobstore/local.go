package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophdiary/internal/filex"
	"github.com/google/uuid"
)

const sessionsDir = ".sessions"

// LocalStore keeps blobs as files under basePath. Partial uploads live in
// basePath/.sessions/<token> and are resumed from their current size.
type LocalStore struct {
	basePath string
}

func NewLocalStore(basePath string) (*LocalStore, error) {
	if _, err := filex.EnsureDir(filepath.Join(basePath, sessionsDir)); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// safeJoin resolves key relative to basePath and rejects directory traversal.
func (s *LocalStore) safeJoin(key string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	rel, _ := filepath.Rel(absBase, absPath)
	if rel == sessionsDir || strings.HasPrefix(rel, sessionsDir+string(filepath.Separator)) {
		return "", fmt.Errorf("reserved path %q", key)
	}
	return absPath, nil
}

func (s *LocalStore) sessionPath(token string) (string, error) {
	if token == "" || strings.ContainsAny(token, `/\.`) {
		return "", fmt.Errorf("invalid session token %q", token)
	}
	return filepath.Join(s.basePath, sessionsDir, token), nil
}

func (s *LocalStore) Upload(ctx context.Context, path, contentRef, token string, onSession func(string) error) error {
	dst, err := s.safeJoin(path)
	if err != nil {
		return err
	}

	src, size, err := openContent(contentRef)
	if err != nil {
		return err
	}
	defer src.Close()

	var (
		partial *os.File
		offset  int64
	)
	if token != "" {
		if p, err := s.sessionPath(token); err == nil {
			if st, err := os.Stat(p); err == nil && st.Size() <= size {
				partial, err = os.OpenFile(p, os.O_WRONLY|os.O_APPEND, 0644)
				if err != nil {
					return fmt.Errorf("failed to open session file: %w", err)
				}
				offset = st.Size()
			}
		}
	}

	if partial == nil {
		token = uuid.NewString()
		if onSession != nil {
			if err := onSession(token); err != nil {
				return fmt.Errorf("failed to record upload session: %w", err)
			}
		}
		p, _ := s.sessionPath(token)
		partial, err = os.Create(p)
		if err != nil {
			return fmt.Errorf("failed to create session file: %w", err)
		}
	}
	partialPath := partial.Name()

	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		_ = partial.Close()
		return fmt.Errorf("failed to seek content: %w", err)
	}
	if _, err := io.Copy(partial, &ctxReader{ctx: ctx, r: src}); err != nil {
		_ = partial.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := partial.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.Rename(partialPath, dst); err != nil {
		return fmt.Errorf("failed to finalize upload: %w", err)
	}
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	p, err := s.safeJoin(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStore) DownloadURL(ctx context.Context, path string) (string, error) {
	p, err := s.safeJoin(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String(), nil
}

func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == sessionsDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return keys, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
