package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterSource emits values pushed through feed and records every start and
// stop of the upstream.
type counterSource struct {
	mu     sync.Mutex
	starts int
	stops  int
	feeds  []chan int
}

func (c *counterSource) source(ctx context.Context) <-chan int {
	c.mu.Lock()
	c.starts++
	feed := make(chan int)
	c.feeds = append(c.feeds, feed)
	c.mu.Unlock()

	out := make(chan int)
	go func() {
		defer close(out)
		defer func() {
			c.mu.Lock()
			c.stops++
			c.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-feed:
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (c *counterSource) push(v int) {
	c.mu.Lock()
	feed := c.feeds[len(c.feeds)-1]
	c.mu.Unlock()
	feed <- v
}

func (c *counterSource) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts, c.stops
}

func recv(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
		return 0
	}
}

func TestShared_ReplaysLatestAndFansOut(t *testing.T) {
	src := &counterSource{}
	s := NewShared[int](src.source, 50*time.Millisecond, -1)
	defer s.Close()

	a, unsubA := s.Subscribe()
	defer unsubA()
	assert.Equal(t, -1, recv(t, a))

	src.push(1)
	assert.Equal(t, 1, recv(t, a))

	b, unsubB := s.Subscribe()
	defer unsubB()
	assert.Equal(t, 1, recv(t, b))

	src.push(2)
	assert.Equal(t, 2, recv(t, a))
	assert.Equal(t, 2, recv(t, b))

	starts, _ := src.counts()
	assert.Equal(t, 1, starts)
}

func TestShared_SlowSubscriberSeesLatestOnly(t *testing.T) {
	src := &counterSource{}
	s := NewShared[int](src.source, time.Second, 0)
	defer s.Close()

	ch, unsub := s.Subscribe()
	defer unsub()

	fast, unsubFast := s.Subscribe()
	defer unsubFast()
	recv(t, fast)

	for i := 1; i <= 3; i++ {
		src.push(i)
		assert.Equal(t, i, recv(t, fast))
	}
	assert.Equal(t, 3, recv(t, ch))
}

func TestShared_GraceWindowKeepsUpstream(t *testing.T) {
	src := &counterSource{}
	s := NewShared[int](src.source, 200*time.Millisecond, 0)
	defer s.Close()

	_, unsub := s.Subscribe()
	unsub()
	unsub()

	_, unsub = s.Subscribe()
	defer unsub()

	starts, stops := src.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 0, stops)
}

func TestShared_StopsAfterGraceAndRestarts(t *testing.T) {
	src := &counterSource{}
	s := NewShared[int](src.source, 10*time.Millisecond, 0)
	defer s.Close()

	ch, unsub := s.Subscribe()
	recv(t, ch)
	src.push(7)
	recv(t, ch)
	unsub()

	_, ok := <-ch
	assert.False(t, ok)

	require.Eventually(t, func() bool {
		_, stops := src.counts()
		return stops == 1
	}, time.Second, 5*time.Millisecond)

	ch, unsub = s.Subscribe()
	defer unsub()
	assert.Equal(t, 7, recv(t, ch), "latest value survives a restart")

	starts, _ := src.counts()
	assert.Equal(t, 2, starts)
}

func TestShared_RestartSwitchesUpstream(t *testing.T) {
	src := &counterSource{}
	s := NewShared[int](src.source, time.Second, 0)
	defer s.Close()

	ch, unsub := s.Subscribe()
	defer unsub()
	recv(t, ch)

	s.Restart()
	require.Eventually(t, func() bool {
		_, stops := src.counts()
		return stops == 1
	}, time.Second, 5*time.Millisecond)

	src.push(5)
	assert.Equal(t, 5, recv(t, ch))
	starts, _ := src.counts()
	assert.Equal(t, 2, starts)
}

func TestShared_CloseClosesSubscribers(t *testing.T) {
	src := &counterSource{}
	s := NewShared[int](src.source, time.Second, 0)

	ch, unsub := s.Subscribe()
	recv(t, ch)
	s.Close()
	unsub()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, s.Subscribers())

	late, _ := s.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestShared_RestartRevivesFinishedUpstream(t *testing.T) {
	var starts atomic.Int32
	src := func(ctx context.Context) <-chan int {
		n := int(starts.Add(1))
		ch := make(chan int, 1)
		ch <- n * 10
		close(ch)
		return ch
	}
	s := NewShared[int](src, time.Second, 0)
	defer s.Close()

	ch, unsub := s.Subscribe()
	defer unsub()
	recvUntil(t, ch, 10)

	s.Restart()
	recvUntil(t, ch, 20)
}

// recvUntil drains ch until want arrives; values may be conflated.
func recvUntil(t *testing.T, ch <-chan int, want int) {
	t.Helper()
	for recv(t, ch) != want {
	}
}

func TestShared_RestartWithoutSubscribersIsNoop(t *testing.T) {
	src := &counterSource{}
	s := NewShared[int](src.source, time.Second, 0)
	defer s.Close()

	s.Restart()
	starts, _ := src.counts()
	assert.Equal(t, 0, starts)
}

func TestShared_RestartDropsStaleValue(t *testing.T) {
	src := &counterSource{}
	s := NewShared[int](src.source, 10*time.Millisecond, -1)
	defer s.Close()

	ch, unsub := s.Subscribe()
	recvUntil(t, ch, -1)
	src.push(7)
	recvUntil(t, ch, 7)
	unsub()

	s.Restart()

	ch, unsub = s.Subscribe()
	defer unsub()
	assert.Equal(t, -1, recv(t, ch))
}

func TestShared_RestartInGraceWindowStopsUpstream(t *testing.T) {
	src := &counterSource{}
	s := NewShared[int](src.source, 20*time.Millisecond, 0)
	defer s.Close()

	ch, unsub := s.Subscribe()
	recv(t, ch)
	unsub()

	s.Restart()
	require.Eventually(t, func() bool {
		_, stops := src.counts()
		return stops == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(6 * 20 * time.Millisecond)
	starts, stops := src.counts()
	assert.Equal(t, 1, starts, "no upstream runs without subscribers")
	assert.Equal(t, 1, stops)

	ch, unsub = s.Subscribe()
	defer unsub()
	recv(t, ch)
	starts, _ = src.counts()
	assert.Equal(t, 2, starts)
}
