// Package engine owns the set of named pipelines running in one process:
// a name to *pipeline.Pipeline map plus an aggregate metrics view. Each
// pipeline is an independent failure domain — one crashing or failing
// never touches its siblings, mirroring the teacher's GroupExecutor
// running each grouped pipeline in its own goroutine behind a
// map+mutex.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/logflow-dev/logflow/pkg/pipeline"
)

// Engine is a concurrency-safe registry of named pipelines.
type Engine struct {
	mu        sync.RWMutex
	pipelines map[string]*pipeline.Pipeline
	logger    *slog.Logger
}

// New creates an empty Engine.
func New() *Engine {
	return &Engine{
		pipelines: make(map[string]*pipeline.Pipeline),
		logger:    slog.Default(),
	}
}

// Load constructs a pipeline from cfg and registers it under cfg.Name.
// If a pipeline with that name already exists, replace must be true or
// Load fails; the existing pipeline is stopped before being replaced.
func (e *Engine) Load(cfg pipeline.Config, replace bool) error {
	e.mu.Lock()
	existing, ok := e.pipelines[cfg.Name]
	if ok && !replace {
		e.mu.Unlock()
		return fmt.Errorf("engine: pipeline %q already loaded", cfg.Name)
	}
	e.mu.Unlock()

	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("engine: load %q: %w", cfg.Name, err)
	}

	if ok {
		_ = existing.Stop(context.Background())
	}

	e.mu.Lock()
	e.pipelines[cfg.Name] = p
	e.mu.Unlock()
	return nil
}

// Start starts the named pipeline.
func (e *Engine) Start(ctx context.Context, name string) error {
	p, err := e.get(name)
	if err != nil {
		return err
	}
	return p.Start(ctx)
}

// Stop stops the named pipeline.
func (e *Engine) Stop(ctx context.Context, name string) error {
	p, err := e.get(name)
	if err != nil {
		return err
	}
	return p.Stop(ctx)
}

// Restart restarts the named pipeline.
func (e *Engine) Restart(ctx context.Context, name string) error {
	p, err := e.get(name)
	if err != nil {
		return err
	}
	return p.Restart(ctx)
}

// Remove stops and unregisters the named pipeline. Removing an unknown
// name is a no-op.
func (e *Engine) Remove(ctx context.Context, name string) error {
	e.mu.Lock()
	p, ok := e.pipelines[name]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	delete(e.pipelines, name)
	e.mu.Unlock()

	return p.Stop(ctx)
}

// List returns the names of every loaded pipeline.
func (e *Engine) List() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.pipelines))
	for name := range e.pipelines {
		names = append(names, name)
	}
	return names
}

// GetMetrics returns the named pipeline's metrics snapshot.
func (e *Engine) GetMetrics(name string) (pipeline.Metrics, error) {
	p, err := e.get(name)
	if err != nil {
		return pipeline.Metrics{}, err
	}
	return p.Metrics(), nil
}

// AllMetrics returns a metrics snapshot for every loaded pipeline,
// keyed by name.
func (e *Engine) AllMetrics() map[string]pipeline.Metrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]pipeline.Metrics, len(e.pipelines))
	for name, p := range e.pipelines {
		out[name] = p.Metrics()
	}
	return out
}

// Shutdown stops every loaded pipeline concurrently, honoring each
// pipeline's own stop_grace independently so one slow pipeline cannot
// delay the others' shutdown signal. Returns the first error observed,
// if any, but always attempts every pipeline.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.RLock()
	ps := make(map[string]*pipeline.Pipeline, len(e.pipelines))
	for name, p := range e.pipelines {
		ps[name] = p
	}
	e.mu.RUnlock()

	var wg sync.WaitGroup
	errs := make(chan error, len(ps))
	for name, p := range ps {
		wg.Add(1)
		go func(name string, p *pipeline.Pipeline) {
			defer wg.Done()
			if err := p.Stop(ctx); err != nil {
				e.logger.Error("shutdown: pipeline stop failed", "pipeline", name, "error", err)
				errs <- err
			}
		}(name, p)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		return err
	}
	return nil
}

func (e *Engine) get(name string) (*pipeline.Pipeline, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("engine: no pipeline named %q", name)
	}
	return p, nil
}
