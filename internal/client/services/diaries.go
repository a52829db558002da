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
	"github.com/dmitrijs2005/gophdiary/internal/remote/docstore"
	"github.com/dmitrijs2005/gophdiary/internal/result"
)

// DayGroup holds the diaries of one local calendar day, newest first.
type DayGroup struct {
	Date    civil.Date
	Diaries []models.Diary
}

type DiaryResult = result.Result[[]DayGroup]

// DiaryRepository gives the current user access to their diaries in the
// remote document store. Every failure is reported as an Error result:
// common.ErrNotAuthenticated without a session, common.ErrNotFound for
// missing or foreign diaries and common.ErrStoreFault for store failures.
type DiaryRepository interface {
	// GetDiaries streams all diaries grouped by day, newest day first. The
	// channel is closed when ctx is done.
	GetDiaries(ctx context.Context) <-chan DiaryResult

	// GetFilteredDiaries streams the diaries dated on day.
	GetFilteredDiaries(ctx context.Context, day civil.Date) <-chan DiaryResult

	GetDiary(ctx context.Context, id string) result.Result[models.Diary]
	UpsertDiary(ctx context.Context, diary models.Diary) result.Result[models.Diary]
	DeleteDiary(ctx context.Context, id string) result.Result[models.Diary]
	DeleteAllDiaries(ctx context.Context) result.Result[struct{}]

	// AttachImage appends path to the diary's images unless present.
	AttachImage(ctx context.Context, id, path string) result.Result[models.Diary]

	// SaveDiary upserts diary and keeps every path of keep that the stored
	// diary already references. Serialized with AttachImage, so an upload
	// attached while the draft was being edited survives the save.
	SaveDiary(ctx context.Context, diary models.Diary, keep []string) result.Result[models.Diary]
}

type diaryRepository struct {
	store docstore.Store
	users UserProvider
	loc   *time.Location

	// serializes read-modify-write in AttachImage and SaveDiary
	writeMu sync.Mutex
}

// NewDiaryRepository groups and filters by calendar day in loc; nil means
// time.Local.
func NewDiaryRepository(store docstore.Store, users UserProvider, loc *time.Location) DiaryRepository {
	if loc == nil {
		loc = time.Local
	}
	return &diaryRepository{store: store, users: users, loc: loc}
}

func storeError(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return common.ErrNotFound
	}
	return fmt.Errorf("%w: %w", common.ErrStoreFault, err)
}

func toDocument(d models.Diary) docstore.Document {
	return docstore.Document{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Title:       d.Title,
		Description: d.Description,
		Mood:        d.Mood.String(),
		Images:      slices.Clone(d.Images),
		Date:        d.Date,
	}
}

func toDiary(d docstore.Document) models.Diary {
	mood, _ := models.ParseMood(d.Mood)
	return models.Diary{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Title:       d.Title,
		Description: d.Description,
		Mood:        mood,
		Images:      slices.Clone(d.Images),
		Date:        d.Date,
	}
}

// groupByDay keeps the diaries' order inside a day and orders days newest
// first.
func groupByDay(docs []docstore.Document, loc *time.Location) []DayGroup {
	idx := make(map[civil.Date]int)
	var groups []DayGroup
	for _, doc := range docs {
		day := civil.DateOf(doc.Date.In(loc))
		i, ok := idx[day]
		if !ok {
			i = len(groups)
			idx[day] = i
			groups = append(groups, DayGroup{Date: day})
		}
		groups[i].Diaries = append(groups[i].Diaries, toDiary(doc))
	}
	slices.SortStableFunc(groups, func(a, b DayGroup) int {
		switch {
		case a.Date.After(b.Date):
			return -1
		case a.Date.Before(b.Date):
			return 1
		}
		return 0
	})
	return groups
}

func (r *diaryRepository) GetDiaries(ctx context.Context) <-chan DiaryResult {
	return r.watch(ctx, nil, nil)
}

// GetFilteredDiaries bounds the query to [day 00:00, next day 00:00) in the
// repository location.
func (r *diaryRepository) GetFilteredDiaries(ctx context.Context, day civil.Date) <-chan DiaryResult {
	from := day.In(r.loc)
	to := day.AddDays(1).In(r.loc)
	return r.watch(ctx, &from, &to)
}

func (r *diaryRepository) watch(ctx context.Context, from, to *time.Time) <-chan DiaryResult {
	out := make(chan DiaryResult, 1)

	userID, ok := r.users.CurrentUser()
	if !ok {
		out <- result.Error[[]DayGroup](common.ErrNotAuthenticated)
		close(out)
		return out
	}

	events := r.store.Watch(ctx, docstore.Query{OwnerID: userID, From: from, To: to})
	go func() {
		defer close(out)
		for ev := range events {
			var res DiaryResult
			if ev.Err != nil {
				res = result.Error[[]DayGroup](storeError(ev.Err))
			} else {
				res = result.Success(groupByDay(ev.Docs, r.loc))
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (r *diaryRepository) GetDiary(ctx context.Context, id string) result.Result[models.Diary] {
	userID, ok := r.users.CurrentUser()
	if !ok {
		return result.Error[models.Diary](common.ErrNotAuthenticated)
	}
	doc, err := r.store.Get(ctx, id, userID)
	if err != nil {
		return result.Error[models.Diary](storeError(err))
	}
	return result.Success(toDiary(doc))
}

func (r *diaryRepository) UpsertDiary(ctx context.Context, diary models.Diary) result.Result[models.Diary] {
	userID, ok := r.users.CurrentUser()
	if !ok {
		return result.Error[models.Diary](common.ErrNotAuthenticated)
	}
	diary.OwnerID = userID
	saved, err := r.store.Upsert(ctx, toDocument(diary))
	if err != nil {
		return result.Error[models.Diary](storeError(err))
	}
	return result.Success(toDiary(saved))
}

func (r *diaryRepository) DeleteDiary(ctx context.Context, id string) result.Result[models.Diary] {
	userID, ok := r.users.CurrentUser()
	if !ok {
		return result.Error[models.Diary](common.ErrNotAuthenticated)
	}
	doc, err := r.store.DeleteOwned(ctx, id, userID)
	if err != nil {
		return result.Error[models.Diary](storeError(err))
	}
	return result.Success(toDiary(doc))
}

func (r *diaryRepository) DeleteAllDiaries(ctx context.Context) result.Result[struct{}] {
	userID, ok := r.users.CurrentUser()
	if !ok {
		return result.Error[struct{}](common.ErrNotAuthenticated)
	}
	if _, err := r.store.DeleteAllOwned(ctx, userID); err != nil {
		return result.Error[struct{}](storeError(err))
	}
	return result.Success(struct{}{})
}

func (r *diaryRepository) AttachImage(ctx context.Context, id, path string) result.Result[models.Diary] {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	res := r.GetDiary(ctx, id)
	diary, ok := res.Value()
	if !ok {
		return res
	}
	if diary.HasImage(path) {
		return res
	}
	diary.Images = append(diary.Images, path)
	return r.UpsertDiary(ctx, diary)
}

func (r *diaryRepository) SaveDiary(ctx context.Context, diary models.Diary, keep []string) result.Result[models.Diary] {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	diary = diary.Clone()
	if diary.ID != "" && len(keep) > 0 {
		if current, ok := r.GetDiary(ctx, diary.ID).Value(); ok {
			for _, p := range keep {
				if current.HasImage(p) && !diary.HasImage(p) {
					diary.Images = append(diary.Images, p)
				}
			}
		}
	}
	return r.UpsertDiary(ctx, diary)
}
