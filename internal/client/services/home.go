package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/result"
	"github.com/dmitrijs2005/gophdiary/internal/stream"
)

type HomeStatus int

const (
	HomeLoading HomeStatus = iota
	HomeDataLoaded
	HomeError
)

// HomeState is what the diary list shows.
type HomeState struct {
	Status  HomeStatus
	Groups  []DayGroup
	Message string
}

func homeStateOf(res DiaryResult) HomeState {
	switch res.State() {
	case result.StateSuccess:
		groups, _ := res.Value()
		return HomeState{Status: HomeDataLoaded, Groups: groups}
	case result.StateError:
		return HomeState{Status: HomeError, Message: errorMessage(res.Err())}
	default:
		return HomeState{Status: HomeLoading}
	}
}

// Home is the diary feed: one shared, optionally date-filtered stream of the
// user's diaries plus the account-wide actions.
type Home struct {
	diaries DiaryRepository
	images  ImageSync
	auth    AuthService
	log     logging.Logger

	mu     sync.Mutex
	filter *civil.Date

	feed *stream.Shared[HomeState]
}

// NewHome keeps the upstream alive for grace after the last subscriber
// leaves.
func NewHome(diaries DiaryRepository, images ImageSync, auth AuthService, grace time.Duration, log logging.Logger) *Home {
	h := &Home{diaries: diaries, images: images, auth: auth, log: log}
	h.feed = stream.NewShared[HomeState](h.source, grace, HomeState{Status: HomeLoading})
	return h
}

func (h *Home) source(ctx context.Context) <-chan HomeState {
	filter := h.Filter()
	out := make(chan HomeState)

	go func() {
		defer close(out)

		send := func(st HomeState) bool {
			select {
			case out <- st:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(HomeState{Status: HomeLoading}) {
			return
		}

		var results <-chan DiaryResult
		if filter != nil {
			results = h.diaries.GetFilteredDiaries(ctx, *filter)
		} else {
			results = h.diaries.GetDiaries(ctx)
		}
		for res := range results {
			if !send(homeStateOf(res)) {
				return
			}
		}
	}()
	return out
}

// Subscribe returns the feed and a cancel func. The first value is the
// latest known state.
func (h *Home) Subscribe() (<-chan HomeState, func()) {
	return h.feed.Subscribe()
}

// SetDateFilter shows only diaries of day; nil clears the filter.
func (h *Home) SetDateFilter(day *civil.Date) {
	h.mu.Lock()
	if day != nil {
		d := *day
		day = &d
	}
	h.filter = day
	h.mu.Unlock()
	h.feed.Restart()
}

func (h *Home) Filter() *civil.Date {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.filter == nil {
		return nil
	}
	d := *h.filter
	return &d
}

// Refresh restarts the upstream, e.g. after the user changed.
func (h *Home) Refresh() {
	h.feed.Restart()
}

func (h *Home) SignOut(ctx context.Context) error {
	if err := h.auth.Logout(ctx); err != nil {
		return fmt.Errorf("sign out error: %w", err)
	}
	h.feed.Restart()
	return nil
}

// DeleteAllDiaries removes the user's images and then every diary.
func (h *Home) DeleteAllDiaries(ctx context.Context) error {
	userID, ok := h.auth.CurrentUser()
	if !ok {
		return common.ErrNotAuthenticated
	}
	if err := h.images.DeleteUserImages(ctx, userID); err != nil {
		return err
	}
	if err := h.diaries.DeleteAllDiaries(ctx).Err(); err != nil {
		return fmt.Errorf("error deleting diaries: %w", err)
	}
	h.log.Info(ctx, "all diaries deleted", "user_id", userID)
	return nil
}

func (h *Home) Close() {
	h.feed.Close()
}
