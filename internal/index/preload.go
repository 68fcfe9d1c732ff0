package index

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// TaskHandle identifies a detached background task. Waiting on Done is
// optional; the process may exit while the task is still running.
type TaskHandle struct {
	done chan struct{}
}

// Done is closed when the task finishes.
func (h *TaskHandle) Done() <-chan struct{} { return h.done }

// Preloader hides model-loading latency behind a background task so the
// first real request is fast. It spawns at most one task per process.
type Preloader struct {
	store *Store
	log   *zap.Logger

	once   sync.Once
	handle *TaskHandle
}

// NewPreloader creates a preloader for the store's model registry.
func NewPreloader(store *Store, log *zap.Logger) *Preloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Preloader{store: store, log: log}
}

// Start spawns the background preload task and returns immediately.
// Idempotent: repeated calls return the same handle. Errors and panics
// inside the task are logged, never propagated; the task touches only the
// model registry, which is safe against concurrent re-registration.
func (p *Preloader) Start() *TaskHandle {
	p.once.Do(func() {
		p.handle = &TaskHandle{done: make(chan struct{})}
		go p.run()
	})
	return p.handle
}

func (p *Preloader) run() {
	defer close(p.handle.done)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("background preload panicked", zap.Any("panic", r))
		}
	}()
	p.log.Info("background preload started")
	if err := p.store.InitializeModels(context.Background(), true); err != nil {
		p.log.Error("background preload failed", zap.Error(err))
		return
	}
	p.log.Info("background preload finished")
}
