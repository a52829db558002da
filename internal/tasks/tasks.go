// Package tasks runs fire-and-forget background work that must outlive the
// call that started it but not the application.
package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophdiary/internal/logging"
)

// Spawner starts fn in the background. fn receives a context that is
// cancelled when the owner shuts down.
type Spawner interface {
	Go(fn func(ctx context.Context))
}

// Group is a Spawner that tracks its goroutines. Panics in a task are
// recovered and logged.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logging.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewGroup(parent context.Context, log logging.Logger) *Group {
	ctx, cancel := context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel, log: log}
}

// Go starts fn unless the group is closed, in which case fn is dropped.
func (g *Group) Go(fn func(ctx context.Context)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		g.log.Warn(g.ctx, "task dropped: group closed")
		return
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.log.Error(g.ctx, "task panicked", "panic", fmt.Sprint(r))
			}
		}()
		fn(g.ctx)
	}()
}

// Wait blocks until every started task has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

// Close cancels running tasks, rejects new ones and waits for the running
// ones to finish.
func (g *Group) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.cancel()
	g.wg.Wait()
}
