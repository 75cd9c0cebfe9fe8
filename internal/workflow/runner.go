// Package workflow provides coordination primitives for the gateway's
// operation pipelines: a latest-wins task runner and a request dedupe cache.
package workflow

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Runner serializes commit visibility per task category with latest-wins
// semantics. Starting a task in a category cancels the previous in-flight
// task of the same category; a superseded task's commit callback never runs,
// so a stale network response cannot overwrite newer state.
type Runner struct {
	mu    sync.Mutex
	tasks map[string]*taskSlot
}

type taskSlot struct {
	generation uint64
	cancel     context.CancelFunc
}

// NewRunner creates a Runner.
func NewRunner() *Runner {
	return &Runner{tasks: make(map[string]*taskSlot)}
}

// Run executes fn on a new goroutine under a category-scoped context. Any
// in-flight task of the same category is cancelled first. fn receives a
// commit function which applies its argument only if this task is still the
// newest in its category. Cancellation and the generation bump happen under
// the same lock, so a non-nil ctx.Err() inside fn is an equivalent staleness
// signal for callers that commit state themselves.
func (r *Runner) Run(ctx context.Context, category string, fn func(ctx context.Context, commit func(func()))) {
	r.mu.Lock()
	slot, ok := r.tasks[category]
	if !ok {
		slot = &taskSlot{}
		r.tasks[category] = slot
	}
	if slot.cancel != nil {
		slot.cancel()
	}
	slot.generation++
	gen := slot.generation

	taskCtx, cancel := context.WithCancel(ctx)
	slot.cancel = cancel
	r.mu.Unlock()

	commit := func(apply func()) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if slot.generation != gen {
			log.Debug().Str("category", category).Msg("discarding superseded task result")
			return
		}
		apply()
	}

	go func() {
		defer cancel()
		fn(taskCtx, commit)
	}()
}

// Cancel aborts the in-flight task of a category, if any.
func (r *Runner) Cancel(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.tasks[category]; ok && slot.cancel != nil {
		slot.cancel()
		slot.generation++
	}
}

// CancelAll aborts every in-flight task.
func (r *Runner) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, slot := range r.tasks {
		if slot.cancel != nil {
			slot.cancel()
		}
		slot.generation++
	}
}

// Task categories used by the gateway.
const (
	CategoryScan      = "scan"
	CategoryAuth      = "auth"
	CategoryScreen    = "screen"
	CategoryStockMove = "stock_move"
	CategoryDispatch  = "dispatch"
	CategoryPrint     = "print"
)
