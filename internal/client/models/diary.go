// Package models defines client-side data models used by the GophDiary CLI.
package models

import (
	"slices"
	"time"
)

// Diary is a single dated journal entry persisted in the remote document store.
type Diary struct {
	// ID is assigned by the document store on first insert.
	ID string

	// OwnerID is always overwritten with the authenticated user id before a write.
	OwnerID string

	Title       string
	Description string
	Mood        Mood

	// Images holds remote blob paths in display order.
	Images []string

	// Date is the user-editable moment the entry describes.
	Date time.Time
}

// Clone returns a deep copy so callers can hand diaries across goroutines
// without sharing the Images backing array.
func (d Diary) Clone() Diary {
	d.Images = slices.Clone(d.Images)
	return d
}

// HasImage reports whether path is already attached to the diary.
func (d Diary) HasImage(path string) bool {
	return slices.Contains(d.Images, path)
}
