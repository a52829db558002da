package docstore

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/logging"
)

var ErrNotFound = errors.New("document not found")

// Document is a diary as persisted remotely.
type Document struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Mood        string
	Images      []string
	Date        time.Time
}

// Equal reports whether both documents hold the same values.
func (d Document) Equal(o Document) bool {
	return d.ID == o.ID &&
		d.OwnerID == o.OwnerID &&
		d.Title == o.Title &&
		d.Description == o.Description &&
		d.Mood == o.Mood &&
		slices.Equal(d.Images, o.Images) &&
		d.Date.Equal(o.Date)
}

// Query selects the documents of one owner, optionally bounded by date.
// From is inclusive and To is exclusive. Results are ordered by date, newest
// first.
type Query struct {
	OwnerID string
	From    *time.Time
	To      *time.Time
}

func (q Query) matches(d Document) bool {
	if d.OwnerID != q.OwnerID {
		return false
	}
	if q.From != nil && d.Date.Before(*q.From) {
		return false
	}
	if q.To != nil && !d.Date.Before(*q.To) {
		return false
	}
	return true
}

// Event is one watch emission: either a full snapshot or an error.
type Event struct {
	Docs []Document
	Err  error
}

type Store interface {
	Find(ctx context.Context, q Query) ([]Document, error)

	// Get returns ErrNotFound when the document is absent or owned by
	// someone else.
	Get(ctx context.Context, id, ownerID string) (Document, error)

	// Upsert inserts the document, or replaces it when a document with the
	// same id and owner exists. An empty id is assigned a new UUID. Returns
	// the stored document.
	Upsert(ctx context.Context, doc Document) (Document, error)

	// DeleteOwned removes the document and returns it as it was.
	DeleteOwned(ctx context.Context, id, ownerID string) (Document, error)

	// DeleteAllOwned removes every document of the owner.
	DeleteAllOwned(ctx context.Context, ownerID string) (int64, error)

	// Watch emits the current result of q and then every change to it
	// until ctx is done, at which point the channel is closed.
	Watch(ctx context.Context, q Query) <-chan Event

	Close() error
}

// MemoryDSN selects the in-memory store in Open.
const MemoryDSN = "memory://"

// Open returns the store for dsn. Postgres stores are migrated before use.
func Open(ctx context.Context, dsn string, watchInterval time.Duration, log logging.Logger) (Store, error) {
	if dsn == "" || strings.HasPrefix(dsn, MemoryDSN) {
		return NewMemoryStore(), nil
	}
	return OpenPostgres(ctx, dsn, watchInterval, log)
}

func sortByDateDesc(docs []Document) {
	slices.SortStableFunc(docs, func(a, b Document) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
