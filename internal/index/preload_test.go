package index_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/index"
)

func waitDone(t *testing.T, h *index.TaskHandle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("preload task did not finish")
	}
}

func TestPreloaderRegistersModelsLazily(t *testing.T) {
	f := newStoreFixture(t)
	p := index.NewPreloader(f.store, nil)

	waitDone(t, p.Start())

	assert.EqualValues(t, 1, atomic.LoadInt32(&f.factory.EmbedderCalls))
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.factory.GeneratorCalls))
	// Lazy registration only; nothing is warmed.
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.factory.Embedder.WarmCalls))
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.factory.Generator.WarmCalls))
}

func TestPreloaderStartIsIdempotent(t *testing.T) {
	f := newStoreFixture(t)
	p := index.NewPreloader(f.store, nil)

	h1 := p.Start()
	h2 := p.Start()
	require.Same(t, h1, h2)
	waitDone(t, h1)

	assert.EqualValues(t, 1, atomic.LoadInt32(&f.factory.EmbedderCalls))
}

func TestPreloaderSwallowsInitFailure(t *testing.T) {
	f := newStoreFixture(t)
	f.factory.Err = assert.AnError
	p := index.NewPreloader(f.store, nil)

	// The task finishes and the failure stays inside it.
	waitDone(t, p.Start())
}
