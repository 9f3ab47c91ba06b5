package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultHookWorkers = 2
	hookQueueSize      = 64
	hookTimeout        = 30 * time.Second
)

type hookTask struct {
	name string
	fn   func(context.Context) error
}

// HookRunner executes best-effort side effects after a ledger mutation has
// committed. Hooks run on a small worker pool with their own context; a
// failing hook is logged and never reaches the caller of the mutation.
type HookRunner struct {
	logger    *slog.Logger
	tasks     chan hookTask
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewHookRunner starts the worker pool with the provided concurrency.
func NewHookRunner(logger *slog.Logger, workers int) *HookRunner {
	if workers <= 0 {
		workers = defaultHookWorkers
	}
	h := &HookRunner{
		logger: logger,
		tasks:  make(chan hookTask, hookQueueSize),
	}
	for i := 0; i < workers; i++ {
		h.wg.Add(1)
		go h.worker()
	}
	return h
}

func (h *HookRunner) worker() {
	defer h.wg.Done()
	for task := range h.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
		if err := task.fn(ctx); err != nil {
			h.logger.Warn("post-commit hook failed", "hook", task.name, "error", err)
		}
		cancel()
	}
}

// Enqueue schedules a hook. When the queue is full the hook is dropped and
// logged; hooks are advisory and must not apply backpressure to transfers.
func (h *HookRunner) Enqueue(name string, fn func(context.Context) error) {
	select {
	case h.tasks <- hookTask{name: name, fn: fn}:
	default:
		h.logger.Warn("hook queue full, dropping task", "hook", name)
	}
}

// Close stops accepting hooks and waits for in-flight ones to finish.
func (h *HookRunner) Close() {
	h.closeOnce.Do(func() {
		close(h.tasks)
	})
	h.wg.Wait()
}
