package models

import (
	"slices"
	"sync"
)

// GalleryImage is an image attached to a diary draft.
type GalleryImage struct {
	// ContentRef is a displayable/readable reference: a local file for newly
	// selected images, a resolved download URL for stored ones.
	ContentRef string

	// RemotePath is set once the image is known to exist in the blob store.
	// An empty RemotePath means "not yet uploaded".
	RemotePath string

	// PendingPath is the destination key derived when the image was selected.
	PendingPath string
}

// Key identifies the image inside a gallery.
func (g GalleryImage) Key() string {
	if g.RemotePath != "" {
		return g.RemotePath
	}
	return g.PendingPath
}

// Gallery holds the images of one edit session: the attached ones in
// insertion order and the ones marked for removal. It is safe for concurrent
// use; download URLs are resolved from background goroutines.
type Gallery struct {
	mu         sync.Mutex
	images     []GalleryImage
	toDelete   []GalleryImage
	dispatched map[string]struct{}
}

func NewGallery(images ...GalleryImage) *Gallery {
	return &Gallery{images: slices.Clone(images), dispatched: make(map[string]struct{})}
}

func (g *Gallery) AddImages(imgs []GalleryImage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.images = append(g.images, imgs...)
}

// RemoveImage moves the image with the same key from the attached list to the
// to-delete list. It reports whether the image was attached.
func (g *Gallery) RemoveImage(img GalleryImage) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := slices.IndexFunc(g.images, func(x GalleryImage) bool { return x.Key() == img.Key() })
	if i < 0 {
		return false
	}
	removed := g.images[i]
	g.images = slices.Delete(g.images, i, i+1)
	g.toDelete = append(g.toDelete, removed)
	return true
}

// Images returns a snapshot of the attached images.
func (g *Gallery) Images() []GalleryImage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.images)
}

// ImagesToDelete returns a snapshot of the images marked for removal.
func (g *Gallery) ImagesToDelete() []GalleryImage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.toDelete)
}

// ClearToDelete forgets the removal list after the deletes were dispatched.
func (g *Gallery) ClearToDelete() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.toDelete = nil
}

// RemotePaths returns the remote paths of attached images that are already
// uploaded, in insertion order.
func (g *Gallery) RemotePaths() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	paths := make([]string, 0, len(g.images))
	for _, img := range g.images {
		if img.RemotePath != "" {
			paths = append(paths, img.RemotePath)
		}
	}
	return paths
}

// TakeUndispatched returns attached images without a remote path that have
// not been handed to the uploader yet, and marks them as dispatched.
func (g *Gallery) TakeUndispatched() []GalleryImage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []GalleryImage
	for _, img := range g.images {
		if img.RemotePath != "" || img.PendingPath == "" {
			continue
		}
		if _, ok := g.dispatched[img.PendingPath]; ok {
			continue
		}
		g.dispatched[img.PendingPath] = struct{}{}
		out = append(out, img)
	}
	return out
}

// SetContentRef updates the content reference of the attached image with the
// given key. It reports whether such an image exists.
func (g *Gallery) SetContentRef(key, ref string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.images {
		if g.images[i].Key() == key {
			g.images[i].ContentRef = ref
			return true
		}
	}
	return false
}

// DispatchedPaths returns the pending paths of attached images that were
// handed to the uploader but have no remote path in this gallery.
func (g *Gallery) DispatchedPaths() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, img := range g.images {
		if img.RemotePath != "" {
			continue
		}
		if _, ok := g.dispatched[img.PendingPath]; ok {
			out = append(out, img.PendingPath)
		}
	}
	return out
}
