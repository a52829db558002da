package docstore

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]Document
	watchers map[int]chan struct{}
	nextID   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]Document),
		watchers: make(map[int]chan struct{}),
	}
}

func clone(d Document) Document {
	d.Images = slices.Clone(d.Images)
	return d
}

func (s *MemoryStore) Find(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Document
	for _, d := range s.docs {
		if q.matches(d) {
			out = append(out, clone(d))
		}
	}
	sortByDateDesc(out)
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id, ownerID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok || d.OwnerID != ownerID {
		return Document{}, ErrNotFound
	}
	return clone(d), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if cur, ok := s.docs[doc.ID]; ok && cur.OwnerID != doc.OwnerID {
		return Document{}, ErrNotFound
	}
	doc = clone(doc)
	s.docs[doc.ID] = doc
	s.notifyLocked()
	return clone(doc), nil
}

func (s *MemoryStore) DeleteOwned(ctx context.Context, id, ownerID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok || d.OwnerID != ownerID {
		return Document{}, ErrNotFound
	}
	delete(s.docs, id)
	s.notifyLocked()
	return d, nil
}

func (s *MemoryStore) DeleteAllOwned(ctx context.Context, ownerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, d := range s.docs {
		if d.OwnerID == ownerID {
			delete(s.docs, id)
			n++
		}
	}
	if n > 0 {
		s.notifyLocked()
	}
	return n, nil
}

func (s *MemoryStore) Watch(ctx context.Context, q Query) <-chan Event {
	out := make(chan Event)
	notify := make(chan struct{}, 1)
	notify <- struct{}{}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = notify
	s.mu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-notify:
			}
			docs, err := s.Find(ctx, q)
			if err != nil {
				return
			}
			select {
			case out <- Event{Docs: docs}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) notifyLocked() {
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
