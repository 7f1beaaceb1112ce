package pipeline

import (
	"context"
	"fmt"
	"sync"

	"crowdwatch/internal/logger"
)

// Factory builds a pipeline for a named source.
type Factory func(name string) (*Pipeline, error)

type entry struct {
	pipeline *Pipeline
	refs     int
	cancel   context.CancelFunc
}

// Registry runs on-demand pipelines, one per name, for as long as someone holds them.
type Registry struct {
	ctx     context.Context
	factory Factory
	logger  *logger.Logger

	mu      sync.Mutex
	entries map[string]*entry
	running sync.WaitGroup
}

// NewRegistry creates a registry whose pipelines stop when ctx is cancelled.
func NewRegistry(ctx context.Context, factory Factory, logger *logger.Logger) *Registry {
	return &Registry{
		ctx:     ctx,
		factory: factory,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Acquire returns the running pipeline for name, starting it if needed. The returned release
// function must be called exactly once when the caller is done; the pipeline stops when the
// last holder releases it.
func (r *Registry) Acquire(name string) (*Pipeline, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		p, err := r.factory(name)
		if err != nil {
			return nil, nil, fmt.Errorf("start pipeline %s: %w", name, err)
		}
		ctx, cancel := context.WithCancel(r.ctx)
		e = &entry{pipeline: p, cancel: cancel}
		r.entries[name] = e

		r.running.Add(1)
		go func() {
			defer r.running.Done()
			p.Run(ctx)
			r.mu.Lock()
			if r.entries[name] == e {
				delete(r.entries, name)
			}
			r.mu.Unlock()
		}()
		r.logger.Info("Started pipeline for %s", name)
	}
	e.refs++

	var once sync.Once
	release := func() {
		once.Do(func() { r.release(name, e) })
	}
	return e.pipeline, release, nil
}

func (r *Registry) release(name string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.refs--
	if e.refs > 0 {
		return
	}
	e.cancel()
	if r.entries[name] == e {
		delete(r.entries, name)
	}
	r.logger.Info("Stopped pipeline for %s", name)
}

// Wait blocks until every pipeline the registry started has returned. Callers cancel the
// registry context first.
func (r *Registry) Wait() {
	r.running.Wait()
}

// Lookup returns the pipeline currently running for name.
func (r *Registry) Lookup(name string) (*Pipeline, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.pipeline, true
}

// Len returns the number of running pipelines.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
