package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/client/repositories/deletes"
	"github.com/dmitrijs2005/gophdiary/internal/client/repositories/uploads"
	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/remote/blobstore"
	"github.com/dmitrijs2005/gophdiary/internal/tasks"
	"golang.org/x/sync/errgroup"
)

const reconcileConcurrency = 8

// ImageSync moves images between the local queues and the blob store.
//
// Every upload and delete is queued durably before it is attempted and
// removed only after the blob store confirms it, so work interrupted by a
// crash or a network failure is retried by the next Reconcile. There is no
// backoff and no retry limit.
type ImageSync interface {
	// Reconcile replays every queued upload and delete concurrently and
	// waits for them. Only failures to read the queues are returned.
	Reconcile(ctx context.Context) error

	// DispatchUpload queues the upload and starts it in the background.
	DispatchUpload(ctx context.Context, upload models.PendingImageUpload) error

	// DeleteNow deletes the blob in the background and queues the delete
	// if that fails.
	DeleteNow(ctx context.Context, remotePath string)

	// DeleteUserImages deletes every blob under the user's image prefix.
	DeleteUserImages(ctx context.Context, userID string) error

	// Pending returns the queued uploads and deletes.
	Pending(ctx context.Context) ([]models.PendingImageUpload, []models.PendingImageDelete, error)
}

type imageSync struct {
	uploads uploads.Repository
	deletes deletes.Repository
	blobs   blobstore.Store
	diaries DiaryRepository
	spawner tasks.Spawner
	log     logging.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewImageSync(
	uploadRepo uploads.Repository,
	deleteRepo deletes.Repository,
	blobs blobstore.Store,
	diaries DiaryRepository,
	spawner tasks.Spawner,
	log logging.Logger,
) ImageSync {
	return &imageSync{
		uploads:  uploadRepo,
		deletes:  deleteRepo,
		blobs:    blobs,
		diaries:  diaries,
		spawner:  spawner,
		log:      log,
		inflight: make(map[string]struct{}),
	}
}

// UserImagesPrefix is the blob prefix holding the images of userID.
func UserImagesPrefix(userID string) string {
	return path.Join(common.ImagesPrefix, userID) + "/"
}

// claim marks key as in flight. It reports false when another goroutine is
// already working on it.
func (s *imageSync) claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[key]; ok {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *imageSync) release(key string) {
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
}

func (s *imageSync) Reconcile(ctx context.Context) error {
	pendingUploads, err := s.uploads.List(ctx)
	if err != nil {
		return fmt.Errorf("error retrieving pending uploads: %w", err)
	}
	pendingDeletes, err := s.deletes.List(ctx)
	if err != nil {
		return fmt.Errorf("error retrieving pending deletes: %w", err)
	}

	s.log.Info(ctx, "reconciling images", "uploads", len(pendingUploads), "deletes", len(pendingDeletes))

	var g errgroup.Group
	g.SetLimit(reconcileConcurrency)
	for _, u := range pendingUploads {
		g.Go(func() error {
			s.upload(ctx, u)
			return nil
		})
	}
	for _, d := range pendingDeletes {
		g.Go(func() error {
			s.delete(ctx, d)
			return nil
		})
	}
	return g.Wait()
}

func (s *imageSync) DispatchUpload(ctx context.Context, upload models.PendingImageUpload) error {
	if _, err := s.uploads.Add(ctx, &upload); err != nil {
		return fmt.Errorf("error queueing upload: %w", err)
	}
	s.spawner.Go(func(ctx context.Context) {
		s.upload(ctx, upload)
	})
	return nil
}

// upload runs one queued upload to completion. The entry stays queued on
// any failure.
func (s *imageSync) upload(ctx context.Context, entry models.PendingImageUpload) {
	key := "u:" + entry.RemotePath
	if !s.claim(key) {
		return
	}
	defer s.release(key)

	log := s.log.With("path", entry.RemotePath)
	id := entry.ID

	err := s.blobs.Upload(ctx, entry.RemotePath, entry.ContentRef, entry.SessionToken, func(token string) error {
		e := entry
		e.SessionToken = token
		newID, err := s.uploads.Add(ctx, &e)
		if err != nil {
			return err
		}
		id = newID
		return nil
	})
	if err != nil {
		log.Warn(ctx, "image upload failed, kept queued", "error", fmt.Errorf("%w: %w", common.ErrUploadFault, err))
		return
	}

	if entry.DiaryID != "" {
		res := s.diaries.AttachImage(ctx, entry.DiaryID, entry.RemotePath)
		switch err := res.Err(); {
		case errors.Is(err, common.ErrNotFound):
			log.Info(ctx, "diary gone, dropping uploaded image", "diary_id", entry.DiaryID)
			s.deleteOrQueue(ctx, entry.RemotePath)
		case err != nil:
			log.Warn(ctx, "attaching image failed, kept queued", "diary_id", entry.DiaryID, "error", err)
			return
		}
	}

	if err := s.uploads.Remove(ctx, id); err != nil {
		log.Error(ctx, "failed to dequeue upload", "error", err)
		return
	}
	log.Info(ctx, "image uploaded")
}

func (s *imageSync) delete(ctx context.Context, entry models.PendingImageDelete) {
	key := "d:" + entry.RemotePath
	if !s.claim(key) {
		return
	}
	defer s.release(key)

	log := s.log.With("path", entry.RemotePath)
	if err := s.blobs.Delete(ctx, entry.RemotePath); err != nil {
		log.Warn(ctx, "image delete failed, kept queued", "error", fmt.Errorf("%w: %w", common.ErrDeleteFault, err))
		return
	}
	if err := s.deletes.Remove(ctx, entry.ID); err != nil {
		log.Error(ctx, "failed to dequeue delete", "error", err)
		return
	}
	log.Info(ctx, "image deleted")
}

func (s *imageSync) DeleteNow(ctx context.Context, remotePath string) {
	s.spawner.Go(func(ctx context.Context) {
		s.deleteOrQueue(ctx, remotePath)
	})
}

func (s *imageSync) deleteOrQueue(ctx context.Context, remotePath string) {
	err := s.blobs.Delete(ctx, remotePath)
	if err == nil {
		return
	}
	s.log.Warn(ctx, "image delete failed, queueing", "path", remotePath, "error", fmt.Errorf("%w: %w", common.ErrDeleteFault, err))
	if _, err := s.deletes.Add(ctx, &models.PendingImageDelete{RemotePath: remotePath}); err != nil {
		s.log.Error(ctx, "failed to queue delete", "path", remotePath, "error", err)
	}
}

func (s *imageSync) DeleteUserImages(ctx context.Context, userID string) error {
	keys, err := s.blobs.List(ctx, UserImagesPrefix(userID))
	if err != nil {
		return fmt.Errorf("error listing user images: %w", err)
	}
	for _, k := range keys {
		s.DeleteNow(ctx, k)
	}
	return nil
}

func (s *imageSync) Pending(ctx context.Context) ([]models.PendingImageUpload, []models.PendingImageDelete, error) {
	ups, err := s.uploads.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	dels, err := s.deletes.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ups, dels, nil
}
