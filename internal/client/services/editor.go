package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/tasks"
)

type EditState int

const (
	StateEmpty EditState = iota
	StateLoaded
	StateEditing
	StateSaving
	StateSaved
	StateSaveFailed
	StateDeleting
	StateDeleted
	StateDeleteFailed
)

func (s EditState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	case StateSaved:
		return "saved"
	case StateSaveFailed:
		return "save failed"
	case StateDeleting:
		return "deleting"
	case StateDeleted:
		return "deleted"
	case StateDeleteFailed:
		return "delete failed"
	default:
		return fmt.Sprintf("EditState(%d)", int(s))
	}
}

type EventKind int

const (
	SaveSuccess EventKind = iota
	SaveFailure
	DeleteSuccess
	DeleteFailure
)

// Event is a one-shot side effect of the edit session.
type Event struct {
	Kind    EventKind
	Message string
}

// Draft is a snapshot of the edited fields.
type Draft struct {
	ID          string
	Title       string
	Description string
	Mood        models.Mood
	Date        time.Time
}

// URLResolver turns a blob key into a URL the image can be shown from.
type URLResolver interface {
	DownloadURL(ctx context.Context, path string) (string, error)
}

const eventBuffer = 16

// EditSession holds the draft of one diary and orchestrates its save and
// delete. It has a single owner; the mutex only guards against background
// URL resolution and concurrent reads.
type EditSession struct {
	diaries DiaryRepository
	images  ImageSync
	urls    URLResolver
	users   UserProvider
	spawner tasks.Spawner
	log     logging.Logger
	loc     *time.Location
	now     func() time.Time

	mu          sync.Mutex
	state       EditState
	draft       Draft
	initialDate *time.Time
	stored      []string
	gallery     *models.Gallery
	lastMillis  int64

	events chan Event
}

func NewEditSession(
	diaries DiaryRepository,
	images ImageSync,
	urls URLResolver,
	users UserProvider,
	spawner tasks.Spawner,
	log logging.Logger,
	loc *time.Location,
) *EditSession {
	if loc == nil {
		loc = time.Local
	}
	s := &EditSession{
		diaries: diaries,
		images:  images,
		urls:    urls,
		users:   users,
		spawner: spawner,
		log:     log,
		loc:     loc,
		now:     time.Now,
		gallery: models.NewGallery(),
		events:  make(chan Event, eventBuffer),
	}
	s.draft = Draft{Mood: models.MoodNeutral, Date: s.now().In(loc)}
	return s
}

// Events delivers save and delete outcomes. Events are dropped when nobody
// drains the buffer.
func (s *EditSession) Events() <-chan Event {
	return s.events
}

func (s *EditSession) State() EditState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *EditSession) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *EditSession) Gallery() *models.Gallery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gallery
}

func (s *EditSession) emit(ctx context.Context, ev Event) Event {
	select {
	case s.events <- ev:
	default:
		s.log.Warn(ctx, "edit session event dropped", "kind", ev.Kind)
	}
	return ev
}

// OnForeground loads the diary with id into the draft. Download URLs of its
// images are resolved in the background and filled in as they arrive.
func (s *EditSession) OnForeground(ctx context.Context, id string) error {
	diary, err := s.diaries.GetDiary(ctx, id).Unwrap()
	if err != nil {
		return fmt.Errorf("error loading diary: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	date := diary.Date.In(s.loc)
	s.draft = Draft{
		ID:          diary.ID,
		Title:       diary.Title,
		Description: diary.Description,
		Mood:        diary.Mood,
		Date:        date,
	}
	s.initialDate = &date
	s.stored = slices.Clone(diary.Images)

	imgs := make([]models.GalleryImage, 0, len(diary.Images))
	for _, p := range diary.Images {
		imgs = append(imgs, models.GalleryImage{RemotePath: p})
	}
	gallery := models.NewGallery(imgs...)
	s.gallery = gallery
	s.state = StateLoaded

	for _, p := range diary.Images {
		s.spawner.Go(func(ctx context.Context) {
			u, err := s.urls.DownloadURL(ctx, p)
			if err != nil {
				s.log.Warn(ctx, "failed to resolve image url", "path", p, "error", err)
				return
			}
			gallery.SetContentRef(p, u)
		})
	}
	return nil
}

func (s *EditSession) edit(fn func(d *Draft)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.draft)
	s.state = StateEditing
}

func (s *EditSession) OnTitleChanged(title string) {
	s.edit(func(d *Draft) { d.Title = title })
}

func (s *EditSession) OnDescriptionChanged(desc string) {
	s.edit(func(d *Draft) { d.Description = desc })
}

func (s *EditSession) OnMoodChanged(mood models.Mood) {
	s.edit(func(d *Draft) { d.Mood = mood })
}

// OnDateChanged replaces the calendar date and keeps the time of day.
func (s *EditSession) OnDateChanged(date civil.Date) {
	s.edit(func(d *Draft) {
		dt := civil.DateTimeOf(d.Date.In(s.loc))
		dt.Date = date
		d.Date = dt.In(s.loc)
	})
}

// OnTimeChanged replaces the time of day and keeps the date.
func (s *EditSession) OnTimeChanged(t civil.Time) {
	s.edit(func(d *Draft) {
		dt := civil.DateTimeOf(d.Date.In(s.loc))
		dt.Time = t
		d.Date = dt.In(s.loc)
	})
}

// ResetDate restores the loaded diary's date, or now for a new diary.
func (s *EditSession) ResetDate() {
	s.edit(func(d *Draft) {
		if s.initialDate != nil {
			d.Date = *s.initialDate
			return
		}
		d.Date = s.now().In(s.loc)
	})
}

// OnImagesSelected attaches local images to the draft. Their blob keys are
// derived now; the upload starts on save.
func (s *EditSession) OnImagesSelected(refs []string) error {
	userID, ok := s.users.CurrentUser()
	if !ok {
		return common.ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	imgs := make([]models.GalleryImage, 0, len(refs))
	for _, ref := range refs {
		at := s.now()
		// keys must stay unique within the session
		if ms := at.UnixMilli(); ms <= s.lastMillis {
			at = time.UnixMilli(s.lastMillis + 1)
		}
		s.lastMillis = at.UnixMilli()

		imgs = append(imgs, models.GalleryImage{
			ContentRef:  ref,
			PendingPath: ImagePath(userID, ref, at),
		})
	}
	s.gallery.AddImages(imgs)
	s.state = StateEditing
	return nil
}

// OnRemoveImage moves img to the to-delete list.
func (s *EditSession) OnRemoveImage(img models.GalleryImage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gallery.RemoveImage(img) {
		return false
	}
	s.state = StateEditing
	return true
}

// OnSaveClick upserts the draft. On success new images are dispatched for
// upload and removed ones are deleted; on failure the draft is kept and the
// save can be retried.
func (s *EditSession) OnSaveClick(ctx context.Context) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateSaving
	diary := models.Diary{
		ID:          s.draft.ID,
		Title:       s.draft.Title,
		Description: s.draft.Description,
		Mood:        s.draft.Mood,
		Images:      s.gallery.RemotePaths(),
		Date:        s.draft.Date,
	}

	// uploads dispatched by an earlier save may have been attached since
	saved, err := s.diaries.SaveDiary(ctx, diary, s.gallery.DispatchedPaths()).Unwrap()
	if err != nil {
		s.state = StateSaveFailed
		return s.emit(ctx, Event{Kind: SaveFailure, Message: errorMessage(err)})
	}

	s.draft.ID = saved.ID
	s.stored = slices.Clone(saved.Images)

	for _, img := range s.gallery.TakeUndispatched() {
		err := s.images.DispatchUpload(ctx, models.PendingImageUpload{
			RemotePath: img.PendingPath,
			ContentRef: img.ContentRef,
			DiaryID:    saved.ID,
		})
		if err != nil {
			s.log.Error(ctx, "failed to dispatch image upload", "path", img.PendingPath, "error", err)
		}
	}
	for _, img := range s.gallery.ImagesToDelete() {
		if img.RemotePath != "" {
			s.images.DeleteNow(ctx, img.RemotePath)
		}
	}
	s.gallery.ClearToDelete()

	s.state = StateSaved
	return s.emit(ctx, Event{Kind: SaveSuccess})
}

// OnDelete deletes the loaded diary and all images it referenced.
func (s *EditSession) OnDelete(ctx context.Context) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft.ID == "" {
		s.state = StateDeleteFailed
		return s.emit(ctx, Event{Kind: DeleteFailure, Message: "diary is not saved yet"})
	}

	s.state = StateDeleting
	deleted, err := s.diaries.DeleteDiary(ctx, s.draft.ID).Unwrap()
	if err != nil {
		s.state = StateDeleteFailed
		return s.emit(ctx, Event{Kind: DeleteFailure, Message: errorMessage(err)})
	}

	paths := slices.Clone(deleted.Images)
	for _, p := range s.stored {
		if !slices.Contains(paths, p) {
			paths = append(paths, p)
		}
	}
	for _, p := range paths {
		s.images.DeleteNow(ctx, p)
	}

	s.state = StateDeleted
	return s.emit(ctx, Event{Kind: DeleteSuccess})
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrNotAuthenticated):
		return "user not logged in"
	case errors.Is(err, common.ErrNotFound):
		return "diary not found"
	default:
		return err.Error()
	}
}
