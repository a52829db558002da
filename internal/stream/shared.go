// Package stream shares one upstream producer between many subscribers.
package stream

import (
	"context"
	"sync"
	"time"
)

// Source starts a producer bound to ctx and returns without blocking. The
// producer must close the returned channel once ctx is done.
type Source[T any] func(ctx context.Context) <-chan T

// Shared runs its Source only while somebody is subscribed. The latest value
// is replayed to new subscribers. After the last subscriber leaves, the
// upstream keeps running for the grace window so a quick resubscribe does
// not restart it.
//
// Each subscriber channel holds at most one value; a slow subscriber only
// ever sees the most recent one.
type Shared[T any] struct {
	src     Source[T]
	grace   time.Duration
	initial T

	mu      sync.Mutex
	latest  T
	subs    map[int]chan T
	nextSub int
	cancel  context.CancelFunc
	gen     int
	timer   *time.Timer
	closed  bool
}

func NewShared[T any](src Source[T], grace time.Duration, initial T) *Shared[T] {
	return &Shared[T]{
		src:     src,
		grace:   grace,
		initial: initial,
		latest:  initial,
		subs:    make(map[int]chan T),
	}
}

// Subscribe returns a channel that immediately holds the latest value and
// an unsubscribe func. The channel is closed on unsubscribe or Close.
func (s *Shared[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	ch <- s.latest
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel == nil {
		s.startLocked()
	}

	var once sync.Once
	return ch, func() { once.Do(func() { s.unsubscribe(id) }) }
}

// Restart replaces the upstream with a fresh one and resets the replayed
// value to the initial one. An upstream that already finished is started
// again while anyone is subscribed. With nobody subscribed the upstream is
// stopped and the next Subscribe starts a fresh one.
func (s *Shared[T]) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.latest = s.initial
	if len(s.subs) == 0 {
		s.stopLocked()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.startLocked()
}

// Close stops the upstream and closes every subscriber channel.
func (s *Shared[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopLocked()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// Subscribers returns the number of active subscribers.
func (s *Shared[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Shared[T]) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.subs[id]
	if !ok {
		return
	}
	delete(s.subs, id)
	close(ch)

	if len(s.subs) > 0 || s.cancel == nil {
		return
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.grace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen == s.gen && len(s.subs) == 0 {
			s.stopLocked()
		}
	})
}

func (s *Shared[T]) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.gen++
	go s.pump(ctx, s.gen, s.src(ctx))
}

func (s *Shared[T]) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

func (s *Shared[T]) pump(ctx context.Context, gen int, in <-chan T) {
	for v := range in {
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			continue
		}
		s.latest = v
		for _, ch := range s.subs {
			offer(ch, v)
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen && s.cancel != nil {
		// upstream finished on its own
		s.cancel()
		s.cancel = nil
	}
}

// offer replaces any buffered value in ch with v. Callers hold s.mu, which
// makes them the only writers.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}
