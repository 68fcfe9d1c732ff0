// Package app owns the application lifecycle and exposes the query/chat
// surface consumed by the HTTP and terminal boundaries.
package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/engine"
	"ragchat/internal/index"
)

// App wires the index store, preloader, and engine together.
type App struct {
	cfg       *config.Config
	store     *index.Store
	preloader *index.Preloader
	log       *zap.Logger

	mu      sync.Mutex
	engine  *engine.Engine
	started bool

	shutdownOnce sync.Once
}

// New creates the coordinator. Nothing expensive happens until Start or
// the first request.
func New(cfg *config.Config, store *index.Store, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		cfg:       cfg,
		store:     store,
		preloader: index.NewPreloader(store, log),
		log:       log,
	}
}

// Start brings the application up: it checks cache validity, kicks off the
// background preload when a valid cache exists and preloading is enabled,
// and constructs the engine (which loads or builds the index). Subsequent
// calls are no-ops.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startLocked(ctx)
}

func (a *App) startLocked(ctx context.Context) error {
	if a.started {
		return nil
	}
	start := time.Now()
	a.log.Info("starting application")

	// Preloading without a cache is wasted work: a rebuild initializes
	// the models eagerly anyway.
	if a.cfg.BackgroundPreload && a.store.CheckCacheValid() {
		a.preloader.Start()
	}

	eng, err := engine.New(ctx, a.cfg, a.store, a.log)
	if err != nil {
		return err
	}
	a.engine = eng
	a.started = true
	a.log.Info("application started", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Ready reports whether the engine has been constructed.
func (a *App) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}

// ensureStarted lazily starts the application, returning the engine.
func (a *App) ensureStarted(ctx context.Context) (*engine.Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.startLocked(ctx); err != nil {
		return nil, err
	}
	return a.engine, nil
}

// ProcessQuery answers a standalone question, recording it in history.
// Every failure mode, including a failed lazy start, comes back as a
// well-formed error-carrying result.
func (a *App) ProcessQuery(ctx context.Context, text string) *domain.QueryResult {
	start := time.Now()
	eng, err := a.ensureStarted(ctx)
	if err != nil {
		a.log.Error("query failed during startup", zap.Error(err))
		return errorResult(text, err, start)
	}
	result := eng.Query(ctx, text, true)
	result.ProcessingTime = time.Since(start).Seconds()
	a.log.Info("query processed", zap.Float64("seconds", result.ProcessingTime))
	return result
}

// ProcessChatMessage answers a conversational message.
func (a *App) ProcessChatMessage(ctx context.Context, text string) *domain.QueryResult {
	start := time.Now()
	eng, err := a.ensureStarted(ctx)
	if err != nil {
		a.log.Error("chat failed during startup", zap.Error(err))
		return errorResult(text, err, start)
	}
	result := eng.Chat(ctx, text)
	result.ProcessingTime = time.Since(start).Seconds()
	a.log.Info("chat message processed", zap.Float64("seconds", result.ProcessingTime))
	return result
}

// ResetConversation clears the conversation history if the engine exists.
func (a *App) ResetConversation() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine != nil {
		a.engine.ResetConversation()
	}
}

// History exposes the visible transcript for the terminal UI.
func (a *App) History() []domain.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine == nil {
		return nil
	}
	return a.engine.History()
}

// Shutdown releases resources. Best-effort and idempotent; a still-running
// preload task is abandoned silently.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.log.Info("application shutdown complete")
	})
}

func errorResult(question string, err error, start time.Time) *domain.QueryResult {
	return &domain.QueryResult{
		Question:       question,
		Answer:         "Error: " + err.Error(),
		Sources:        []domain.Source{},
		ProcessingTime: time.Since(start).Seconds(),
		Error:          err.Error(),
	}
}
