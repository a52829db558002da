package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/remote/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type imageFixture struct {
	sync    ImageSync
	diaries DiaryRepository
	users   *fakeUsers
	blobs   *fakeBlobs
	store   *docstore.MemoryStore
	dsn     string
}

func newImageFixture(t *testing.T) *imageFixture {
	t.Helper()
	repos, dsn := setupRepos(t)
	f := &imageFixture{
		users: &fakeUsers{id: "u1"},
		blobs: newFakeBlobs(),
		store: docstore.NewMemoryStore(),
		dsn:   dsn,
	}
	f.diaries = NewDiaryRepository(f.store, f.users, testLoc)
	f.sync = NewImageSync(repos.Uploads, repos.Deletes, f.blobs, f.diaries, inlineSpawner{}, logging.Discard())
	return f
}

func (f *imageFixture) pending(t *testing.T) ([]models.PendingImageUpload, []models.PendingImageDelete) {
	t.Helper()
	ups, dels, err := f.sync.Pending(context.Background())
	require.NoError(t, err)
	return ups, dels
}

func TestDispatchUpload_AttachesOnConfirm(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()

	diary, err := f.diaries.UpsertDiary(ctx, models.Diary{Images: []string{"images/u1/p1.jpg"}}).Unwrap()
	require.NoError(t, err)

	err = f.sync.DispatchUpload(ctx, models.PendingImageUpload{
		RemotePath: "images/u1/p2.jpg", ContentRef: "/tmp/p2.jpg", DiaryID: diary.ID,
	})
	require.NoError(t, err)

	assert.True(t, f.blobs.has("images/u1/p2.jpg"))
	got, err := f.diaries.GetDiary(ctx, diary.ID).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, []string{"images/u1/p1.jpg", "images/u1/p2.jpg"}, got.Images)

	ups, _ := f.pending(t)
	assert.Empty(t, ups)
}

func TestUpload_FailureKeepsQueued(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()

	diary, err := f.diaries.UpsertDiary(ctx, models.Diary{}).Unwrap()
	require.NoError(t, err)

	f.blobs.setUploadErr(errNetwork, false)
	require.NoError(t, f.sync.DispatchUpload(ctx, models.PendingImageUpload{
		RemotePath: "images/u1/p.jpg", ContentRef: "/tmp/p.jpg", DiaryID: diary.ID,
	}))

	ups, _ := f.pending(t)
	require.Len(t, ups, 1)
	assert.Equal(t, "images/u1/p.jpg", ups[0].RemotePath)

	f.blobs.setUploadErr(nil, false)
	require.NoError(t, f.sync.Reconcile(ctx))

	ups, _ = f.pending(t)
	assert.Empty(t, ups)
	got, err := f.diaries.GetDiary(ctx, diary.ID).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, []string{"images/u1/p.jpg"}, got.Images)
}

func TestUpload_ResumesSession(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()

	f.blobs.setUploadErr(errNetwork, true)
	require.NoError(t, f.sync.DispatchUpload(ctx, models.PendingImageUpload{
		RemotePath: "images/u1/p.jpg", ContentRef: "/tmp/p.jpg",
	}))

	ups, _ := f.pending(t)
	require.Len(t, ups, 1)
	token := ups[0].SessionToken
	require.NotEmpty(t, token)

	f.blobs.setUploadErr(nil, false)
	require.NoError(t, f.sync.Reconcile(ctx))

	assert.Equal(t, []string{"", token}, f.blobs.tokens)
	assert.True(t, f.blobs.has("images/u1/p.jpg"))
	ups, _ = f.pending(t)
	assert.Empty(t, ups)
}

func TestUpload_SurvivesRestart(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()

	diary, err := f.diaries.UpsertDiary(ctx, models.Diary{}).Unwrap()
	require.NoError(t, err)

	f.blobs.setUploadErr(errNetwork, true)
	require.NoError(t, f.sync.DispatchUpload(ctx, models.PendingImageUpload{
		RemotePath: "images/u1/p.jpg", ContentRef: "/tmp/p.jpg", DiaryID: diary.ID,
	}))

	// a fresh process over the same local database
	repos := openRepos(t, f.dsn)
	f.blobs.setUploadErr(nil, false)
	restarted := NewImageSync(repos.Uploads, repos.Deletes, f.blobs, f.diaries, inlineSpawner{}, logging.Discard())
	require.NoError(t, restarted.Reconcile(ctx))

	got, err := f.diaries.GetDiary(ctx, diary.ID).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, []string{"images/u1/p.jpg"}, got.Images)

	ups, _, err := restarted.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, ups)
}

func TestUpload_DiaryGoneDeletesBlob(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sync.DispatchUpload(ctx, models.PendingImageUpload{
		RemotePath: "images/u1/orphan.jpg", ContentRef: "/tmp/o.jpg", DiaryID: "deleted-diary",
	}))

	assert.False(t, f.blobs.has("images/u1/orphan.jpg"))
	assert.Contains(t, f.blobs.deleted, "images/u1/orphan.jpg")
	ups, dels := f.pending(t)
	assert.Empty(t, ups)
	assert.Empty(t, dels)
}

func TestUpload_AttachFailureKeepsQueued(t *testing.T) {
	repos, _ := setupRepos(t)
	ctx := context.Background()
	users := &fakeUsers{id: "u1"}
	store := &countingStore{Store: docstore.NewMemoryStore()}
	diaries := NewDiaryRepository(store, users, testLoc)
	blobs := newFakeBlobs()
	s := NewImageSync(repos.Uploads, repos.Deletes, blobs, diaries, inlineSpawner{}, logging.Discard())

	diary, err := diaries.UpsertDiary(ctx, models.Diary{}).Unwrap()
	require.NoError(t, err)

	store.err = errNetwork
	require.NoError(t, s.DispatchUpload(ctx, models.PendingImageUpload{
		RemotePath: "images/u1/p.jpg", ContentRef: "/tmp/p.jpg", DiaryID: diary.ID,
	}))
	ups, _, err := s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, ups, 1)

	store.err = nil
	require.NoError(t, s.Reconcile(ctx))

	got, err := diaries.GetDiary(ctx, diary.ID).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, []string{"images/u1/p.jpg"}, got.Images)
	ups, _, err = s.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, ups)
}

func TestDeleteNow_QueuesOnFailure(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()

	f.blobs.objects["images/u1/a.jpg"] = "a"
	f.blobs.setDeleteErr(errNetwork)
	f.sync.DeleteNow(ctx, "images/u1/a.jpg")

	_, dels := f.pending(t)
	require.Len(t, dels, 1)
	assert.Equal(t, "images/u1/a.jpg", dels[0].RemotePath)

	// still failing: stays queued
	require.NoError(t, f.sync.Reconcile(ctx))
	_, dels = f.pending(t)
	require.Len(t, dels, 1)

	f.blobs.setDeleteErr(nil)
	require.NoError(t, f.sync.Reconcile(ctx))
	_, dels = f.pending(t)
	assert.Empty(t, dels)
	assert.False(t, f.blobs.has("images/u1/a.jpg"))
}

func TestDeleteNow_SuccessQueuesNothing(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()

	f.blobs.objects["images/u1/a.jpg"] = "a"
	f.sync.DeleteNow(ctx, "images/u1/a.jpg")

	assert.False(t, f.blobs.has("images/u1/a.jpg"))
	_, dels := f.pending(t)
	assert.Empty(t, dels)
}

func TestDeleteUserImages_OnlyUserPrefix(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()

	f.blobs.objects["images/u1/a.jpg"] = "a"
	f.blobs.objects["images/u1/b.jpg"] = "b"
	f.blobs.objects["images/u10/c.jpg"] = "c"
	f.blobs.objects["images/u2/d.jpg"] = "d"

	require.NoError(t, f.sync.DeleteUserImages(ctx, "u1"))

	assert.False(t, f.blobs.has("images/u1/a.jpg"))
	assert.False(t, f.blobs.has("images/u1/b.jpg"))
	assert.True(t, f.blobs.has("images/u10/c.jpg"))
	assert.True(t, f.blobs.has("images/u2/d.jpg"))
}

func TestReconcile_Mixed(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()

	f.blobs.setUploadErr(errNetwork, false)
	f.blobs.setDeleteErr(errNetwork)
	for _, p := range []string{"images/u1/1.jpg", "images/u1/2.jpg", "images/u1/3.jpg"} {
		require.NoError(t, f.sync.DispatchUpload(ctx, models.PendingImageUpload{RemotePath: p, ContentRef: "/tmp/x.jpg"}))
	}
	f.sync.DeleteNow(ctx, "images/u1/old.jpg")

	ups, dels := f.pending(t)
	require.Len(t, ups, 3)
	require.Len(t, dels, 1)

	f.blobs.setUploadErr(nil, false)
	f.blobs.setDeleteErr(nil)
	require.NoError(t, f.sync.Reconcile(ctx))

	ups, dels = f.pending(t)
	assert.Empty(t, ups)
	assert.Empty(t, dels)
	assert.True(t, f.blobs.has("images/u1/1.jpg"))
	assert.True(t, f.blobs.has("images/u1/3.jpg"))
}

func TestUserImagesPrefix(t *testing.T) {
	assert.Equal(t, "images/u1/", UserImagesPrefix("u1"))
}
