// Package plugin defines the Source/Processor/Sink capability contracts
// that every LogFlow plugin implements, plus the type-tag registry that
// resolves a declarative plugin record to a constructed instance.
package plugin

import (
	"context"

	"github.com/logflow-dev/logflow/pkg/logevent"
)

// EmitFunc is how a Source hands an event to the pipeline's ingest queue.
// It blocks (honouring ctx) when the queue is full, per the default
// backpressure policy; sources that document a different policy (drop,
// internal buffering) implement that around their own call to EmitFunc.
type EmitFunc func(ctx context.Context, evt *logevent.LogEvent) error

// SourceStats is the observable state a Source exposes while running.
type SourceStats struct {
	Running       bool
	EventsEmitted int64
	Errors        int64
}

// Source produces a lazy, potentially infinite sequence of LogEvents.
// Implementations MUST NOT share mutable state across pipeline instances.
type Source interface {
	// Open validates config and acquires external resources. It must not
	// yet produce events.
	Open(ctx context.Context, cfg Config) error
	// Start begins producing, handing events to emit until ctx is
	// cancelled or Stop is called. Start must respect backpressure as
	// documented on EmitFunc.
	Start(ctx context.Context, emit EmitFunc) error
	// Stop ceases emission and releases resources. Re-entrant on an
	// already-stopped source.
	Stop(ctx context.Context) error
	Name() string
	Type() string
	Stats() SourceStats
}

// Processor is a transformation from one event to zero, one or many
// events. Processors are stateless by default; when stateful, state is
// per-instance, never global.
type Processor interface {
	// Open compiles inner state (regex, grok templates, lookup tables,
	// filter expressions). A config that fails to compile is rejected
	// here, before the pipeline starts.
	Open(cfg Config) error
	// Process returns the events that replace evt: the same event, a
	// transformed event, several events (split), or none (drop).
	Process(ctx context.Context, evt *logevent.LogEvent) ([]*logevent.LogEvent, error)
	Close() error
}

// Sink consumes batches.
type Sink interface {
	Open(ctx context.Context, cfg Config) error
	// Write delivers a batch atomically from the sink's perspective. A
	// SinkRetryableError or SinkFatalError return is handled specially by
	// the pipeline runtime (see errors.go).
	Write(ctx context.Context, batch *logevent.Batch) error
	// Flush blocks until all in-flight writes are durable or have failed.
	Flush(ctx context.Context) error
	Close() error
	Name() string
}
