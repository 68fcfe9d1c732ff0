// Package index owns the vector index lifecycle: cache validity checks,
// model initialization, building, persistence, and the at-most-once
// per-process load.
package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ragchat/internal/config"
	"ragchat/internal/domain"
)

// requiredCacheFiles are the sentinel artifacts that must all exist for a
// cache directory to be considered valid.
var requiredCacheFiles = []string{domain.DocStoreFile, domain.IndexStoreFile}

// Store manages building, persisting, and loading the vector index.
type Store struct {
	cfg       *config.Config
	registry  *ModelRegistry
	loader    domain.DocumentLoader
	chunker   domain.Chunker
	retriever domain.Retriever
	log       *zap.Logger

	// Tri-state load cell: unresolved until the first LoadIndex completes,
	// then permanently resolved to (index, nil) or (nil, err). The
	// singleflight group collapses concurrent first callers onto one
	// load/build execution.
	group    singleflight.Group
	mu       sync.Mutex
	resolved bool
	index    domain.Index
	loadErr  error
}

// NewStore wires the index store with its collaborators.
func NewStore(cfg *config.Config, registry *ModelRegistry, loader domain.DocumentLoader,
	chunker domain.Chunker, retriever domain.Retriever, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		cfg:       cfg,
		registry:  registry,
		loader:    loader,
		chunker:   chunker,
		retriever: retriever,
		log:       log,
	}
}

// Registry exposes the model registry for components that need the bound
// models (preloader, pipeline assembly).
func (s *Store) Registry() *ModelRegistry { return s.registry }

// CheckCacheValid reports whether the cache directory exists and contains
// every required artifact. Pure filesystem predicate; cheap on every
// startup, no model work.
func (s *Store) CheckCacheValid() bool {
	info, err := os.Stat(s.cfg.IndexCacheDir)
	if err != nil || !info.IsDir() {
		return false
	}
	for _, name := range requiredCacheFiles {
		if _, err := os.Stat(filepath.Join(s.cfg.IndexCacheDir, name)); err != nil {
			return false
		}
	}
	return true
}

// InitializeModels registers the embedding/generation bindings. With
// lazy=true only the configuration is registered; the expensive provider
// initialization is deferred to first use. With lazy=false it is forced
// now. Idempotent either way.
func (s *Store) InitializeModels(ctx context.Context, lazy bool) error {
	if lazy {
		return s.registry.Configure()
	}
	return s.registry.Warm(ctx)
}

// BuildIndex constructs a fresh index. When chunks is nil the corpus is
// loaded and split via the document collaborator. When persist is true the
// index is written to the cache directory. Failures are BuildErrors.
func (s *Store) BuildIndex(ctx context.Context, chunks []domain.Chunk, persist bool) (domain.Index, error) {
	start := time.Now()
	if err := s.InitializeModels(ctx, false); err != nil {
		return nil, &BuildError{Op: "initialize models", Err: err}
	}
	if chunks == nil {
		docs, err := s.loader.LoadDocuments(ctx, s.cfg.DataDir)
		if err != nil {
			return nil, &BuildError{Op: "load documents", Err: err}
		}
		chunks, err = s.chunker.Split(docs)
		if err != nil {
			return nil, &BuildError{Op: "split documents", Err: err}
		}
	}
	ix, err := s.retriever.BuildIndex(ctx, chunks)
	if err != nil {
		return nil, &BuildError{Op: "build index", Err: err}
	}
	s.log.Info("index built",
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))
	if persist {
		persistStart := time.Now()
		if err := s.retriever.Persist(ix, s.cfg.IndexCacheDir); err != nil {
			return nil, &BuildError{Op: "persist index", Err: err}
		}
		s.log.Info("index persisted",
			zap.String("dir", s.cfg.IndexCacheDir),
			zap.Duration("elapsed", time.Since(persistStart)))
	}
	return ix, nil
}

// LoadIndex returns the process-wide index, computing it at most once.
// The first call attempts a cached load (initializing only the embedding
// model); on any cache failure it logs a warning and rebuilds from the
// corpus. Concurrent first callers share one execution; later callers get
// the memoized result, success or failure.
func (s *Store) LoadIndex(ctx context.Context) (domain.Index, error) {
	s.mu.Lock()
	if s.resolved {
		ix, err := s.index, s.loadErr
		s.mu.Unlock()
		return ix, err
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("load", func() (any, error) {
		ix, err := s.loadOrBuild(ctx)
		s.mu.Lock()
		s.index, s.loadErr, s.resolved = ix, err, true
		s.mu.Unlock()
		return ix, err
	})
	if err != nil {
		return nil, err
	}
	return v.(domain.Index), nil
}

func (s *Store) loadOrBuild(ctx context.Context) (domain.Index, error) {
	if s.CheckCacheValid() {
		start := time.Now()
		// Cache hits only need the embedding model; the generation model
		// stays lazy until the first query.
		if err := s.registry.WarmEmbedder(ctx); err != nil {
			s.log.Warn("embedding model init failed, rebuilding index",
				zap.Error(&LoadError{Dir: s.cfg.IndexCacheDir, Err: err}))
		} else if ix, err := s.retriever.LoadFromPersisted(ctx, s.cfg.IndexCacheDir); err != nil {
			s.log.Warn("cache load failed, rebuilding index",
				zap.Error(&LoadError{Dir: s.cfg.IndexCacheDir, Err: err}))
		} else {
			s.log.Info("index loaded from cache", zap.Duration("elapsed", time.Since(start)))
			return ix, nil
		}
	}
	s.log.Info("building index from documents", zap.String("data_dir", s.cfg.DataDir))
	return s.BuildIndex(ctx, nil, true)
}

// NewPipeline assembles the query pipeline for an index using the
// configured top-k and response mode.
func (s *Store) NewPipeline(ix domain.Index) (domain.QueryPipeline, error) {
	return s.retriever.NewPipeline(ix, s.cfg.SimilarityTopK, s.cfg.ResponseMode)
}
