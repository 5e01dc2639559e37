package ocr

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Constructor builds an engine handle. Handles are expensive (model load,
// native init), so the Registry calls a Constructor at most once per process.
type Constructor func() (Recognizer, error)

// Capability records, for one engine, whether it can be used in this process
// and how to construct it. The availability flags are probed once at startup
// instead of scattering "is it installed" checks through the pipeline.
type Capability struct {
	Available bool
	New       Constructor
}

type handle struct {
	mu    sync.Mutex
	built bool
	rec   Recognizer
	err   error
}

// Registry maps engines to capabilities and caches constructed handles for
// the process lifetime. Construction is guarded by a per-handle lock so
// concurrent first use from multiple requests yields a single instance: one
// caller constructs, the rest wait on the lock and reuse the result. Close
// takes the same lock, so shutdown never races an in-flight construction.
type Registry struct {
	caps    map[Engine]Capability
	handles map[Engine]*handle
}

// NewRegistry builds a registry from explicit capabilities. Useful for tests
// and for callers that want to restrict or substitute engines.
func NewRegistry(caps map[Engine]Capability) *Registry {
	r := &Registry{
		caps:    make(map[Engine]Capability, len(caps)),
		handles: make(map[Engine]*handle, len(caps)),
	}
	for e, c := range caps {
		r.caps[e] = c
		r.handles[e] = &handle{}
	}
	return r
}

// DefaultRegistry probes the standard engines. Tesseract is linked in at
// build time so it is always available; Ollama availability depends on the
// server answering within a short timeout.
func DefaultRegistry(ollamaURL, ollamaModel string) *Registry {
	ollama := NewOllama(ollamaURL, ollamaModel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ollamaUp := ollama.Ping(ctx) == nil

	return NewRegistry(map[Engine]Capability{
		EngineTesseract: {
			Available: true,
			New: func() (Recognizer, error) {
				return NewTesseract()
			},
		},
		EngineOllama: {
			Available: ollamaUp,
			New: func() (Recognizer, error) {
				return ollama, nil
			},
		},
	})
}

// Available reports whether the engine can be constructed in this process.
func (r *Registry) Available(e Engine) bool {
	return r.caps[e].Available
}

// Get returns the process-wide handle for the engine, constructing it on
// first use.
func (r *Registry) Get(e Engine) (Recognizer, error) {
	c, ok := r.caps[e]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not registered", ErrUnavailable, e)
	}
	if !c.Available {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, e)
	}

	h := r.handles[e]
	h.mu.Lock()
	if !h.built {
		h.rec, h.err = c.New()
		h.built = true
	}
	rec, err := h.rec, h.err
	h.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("constructing %s: %w", e, err)
	}
	return rec, nil
}

// Close releases every handle that was constructed.
func (r *Registry) Close() error {
	var firstErr error
	for e, h := range r.handles {
		h.mu.Lock()
		rec := h.rec
		h.mu.Unlock()
		if rec == nil {
			continue
		}
		if err := rec.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s: %w", e, err)
		}
	}
	return firstErr
}
