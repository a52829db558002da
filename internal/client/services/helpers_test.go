package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/gophdiary/internal/client/client"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/remote/docstore"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// ---- session ----

type fakeUsers struct {
	mu sync.Mutex
	id string
}

func (f *fakeUsers) CurrentUser() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id, f.id != ""
}

func (f *fakeUsers) set(id string) {
	f.mu.Lock()
	f.id = id
	f.mu.Unlock()
}

// ---- spawner ----

// inlineSpawner runs tasks synchronously on the caller's goroutine.
type inlineSpawner struct{}

func (inlineSpawner) Go(fn func(ctx context.Context)) { fn(context.Background()) }

// ---- document store ----

// countingStore wraps a Store and counts every call that reaches it.
type countingStore struct {
	docstore.Store
	calls atomic.Int32
	err   error
}

func (c *countingStore) Find(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.Store.Find(ctx, q)
}

func (c *countingStore) Get(ctx context.Context, id, owner string) (docstore.Document, error) {
	c.calls.Add(1)
	if c.err != nil {
		return docstore.Document{}, c.err
	}
	return c.Store.Get(ctx, id, owner)
}

func (c *countingStore) Upsert(ctx context.Context, d docstore.Document) (docstore.Document, error) {
	c.calls.Add(1)
	if c.err != nil {
		return docstore.Document{}, c.err
	}
	return c.Store.Upsert(ctx, d)
}

func (c *countingStore) DeleteOwned(ctx context.Context, id, owner string) (docstore.Document, error) {
	c.calls.Add(1)
	if c.err != nil {
		return docstore.Document{}, c.err
	}
	return c.Store.DeleteOwned(ctx, id, owner)
}

func (c *countingStore) DeleteAllOwned(ctx context.Context, owner string) (int64, error) {
	c.calls.Add(1)
	if c.err != nil {
		return 0, c.err
	}
	return c.Store.DeleteAllOwned(ctx, owner)
}

func (c *countingStore) Watch(ctx context.Context, q docstore.Query) <-chan docstore.Event {
	c.calls.Add(1)
	if c.err != nil {
		ch := make(chan docstore.Event, 1)
		ch <- docstore.Event{Err: c.err}
		go func() {
			<-ctx.Done()
			close(ch)
		}()
		return ch
	}
	return c.Store.Watch(ctx, q)
}

// ---- blob store ----

type fakeBlobs struct {
	mu               sync.Mutex
	objects          map[string]string
	sessions         map[string]string
	tokens           []string
	next             int
	uploadErr        error
	deleteErr        error
	failAfterSession bool
	urlErr           map[string]error
	deleted          []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string]string{}, sessions: map[string]string{}, urlErr: map[string]error{}}
}

func (f *fakeBlobs) Upload(ctx context.Context, path, contentRef, token string, onSession func(string) error) error {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	if f.uploadErr != nil && !f.failAfterSession {
		err := f.uploadErr
		f.mu.Unlock()
		return err
	}
	if _, ok := f.sessions[token]; !ok || token == "" {
		f.next++
		token = fmt.Sprintf("tok-%d", f.next)
		f.sessions[token] = path
		f.mu.Unlock()
		if err := onSession(token); err != nil {
			return err
		}
		f.mu.Lock()
	}
	if f.uploadErr != nil {
		err := f.uploadErr
		f.mu.Unlock()
		return err
	}
	delete(f.sessions, token)
	f.objects[path] = contentRef
	f.mu.Unlock()
	return nil
}

func (f *fakeBlobs) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, path)
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeBlobs) DownloadURL(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.urlErr[path]; err != nil {
		return "", err
	}
	return "https://blobs.test/" + path, nil
}

func (f *fakeBlobs) List(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeBlobs) has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[path]
	return ok
}

func (f *fakeBlobs) setUploadErr(err error, afterSession bool) {
	f.mu.Lock()
	f.uploadErr = err
	f.failAfterSession = afterSession
	f.mu.Unlock()
}

func (f *fakeBlobs) setDeleteErr(err error) {
	f.mu.Lock()
	f.deleteErr = err
	f.mu.Unlock()
}

var errNetwork = errors.New("network unreachable")

// ---- local database ----

func setupRepos(t *testing.T) (*client.Repositories, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "diary.db")
	return openRepos(t, dsn), dsn
}

func openRepos(t *testing.T, dsn string) *client.Repositories {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), dsn, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return client.NewRepositories(db)
}
