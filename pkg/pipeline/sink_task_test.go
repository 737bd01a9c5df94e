package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func newTestPipeline(writeTimeout time.Duration) *Pipeline {
	p := &Pipeline{
		cfg:      Config{Name: "test", WriteTimeout: writeTimeout},
		state:    newStateMachine(),
		counters: newCounters(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	p.state.transition(StateCreated, StateStarting)
	p.state.transition(StateStarting, StateRunning)
	return p
}

// withFastBackOff substitutes a near-instant retry schedule for the
// duration of one test, so exhausting maxSinkRetries doesn't take
// 500ms+1s+2s+4s of real wall-clock time.
func withFastBackOff(t *testing.T) {
	t.Helper()
	orig := newSinkBackOff
	newSinkBackOff = func() *backoff.ExponentialBackOff {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = time.Millisecond
		bo.MaxInterval = 2 * time.Millisecond
		bo.Multiplier = 1
		bo.RandomizationFactor = 0
		return bo
	}
	t.Cleanup(func() { newSinkBackOff = orig })
}

type alwaysRetryableSink struct{ attempts int }

func (s *alwaysRetryableSink) Open(context.Context, plugin.Config) error { return nil }
func (s *alwaysRetryableSink) Write(context.Context, *logevent.Batch) error {
	s.attempts++
	return &plugin.SinkRetryableError{Err: errors.New("temporary failure")}
}
func (s *alwaysRetryableSink) Flush(context.Context) error { return nil }
func (s *alwaysRetryableSink) Close() error                { return nil }
func (s *alwaysRetryableSink) Name() string                { return "always-retryable" }

type alwaysFatalSink struct{ attempts int }

func (s *alwaysFatalSink) Open(context.Context, plugin.Config) error { return nil }
func (s *alwaysFatalSink) Write(context.Context, *logevent.Batch) error {
	s.attempts++
	return &plugin.SinkFatalError{Err: errors.New("permanently refused")}
}
func (s *alwaysFatalSink) Flush(context.Context) error { return nil }
func (s *alwaysFatalSink) Close() error                { return nil }
func (s *alwaysFatalSink) Name() string                { return "always-fatal" }

// flakySink fails retryably on its first failUntil writes, then succeeds.
type flakySink struct {
	attempts  int
	failUntil int
}

func (s *flakySink) Open(context.Context, plugin.Config) error { return nil }
func (s *flakySink) Write(context.Context, *logevent.Batch) error {
	s.attempts++
	if s.attempts <= s.failUntil {
		return &plugin.SinkRetryableError{Err: errors.New("temporary failure")}
	}
	return nil
}
func (s *flakySink) Flush(context.Context) error { return nil }
func (s *flakySink) Close() error                { return nil }
func (s *flakySink) Name() string                { return "flaky" }

func TestWriteWithRetryExhaustsThenDrops(t *testing.T) {
	withFastBackOff(t)

	p := newTestPipeline(50 * time.Millisecond)
	sink := &alwaysRetryableSink{}
	batch := makeBatch(3)

	p.writeWithRetry(context.Background(), sink, "test-sink", batch)

	if sink.attempts != maxSinkRetries {
		t.Fatalf("attempts = %d, want %d", sink.attempts, maxSinkRetries)
	}
	if got := p.counters.eventsDropped.Load(); got != 3 {
		t.Fatalf("eventsDropped = %d, want 3 (the exhausted batch's events)", got)
	}
	if got := p.counters.snapshotSinkErrors()["test-sink"]; got != int64(maxSinkRetries) {
		t.Fatalf("sinkWriteErrors[test-sink] = %d, want %d", got, maxSinkRetries)
	}
	if p.state.get() != StateRunning {
		t.Fatalf("state = %v, want running (exhausting retries drops the batch, it does not fail the pipeline)", p.state.get())
	}
}

func TestWriteWithRetryFatalFailsPipelineWithoutRetrying(t *testing.T) {
	p := newTestPipeline(50 * time.Millisecond)
	sink := &alwaysFatalSink{}
	batch := makeBatch(2)

	p.writeWithRetry(context.Background(), sink, "test-sink", batch)

	if sink.attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (a fatal error must not be retried)", sink.attempts)
	}
	if p.state.get() != StateFailed {
		t.Fatalf("state = %v, want failed", p.state.get())
	}
	if got := p.counters.eventsDropped.Load(); got != 0 {
		t.Fatalf("eventsDropped = %d, want 0 (the fatal path fails the pipeline, it does not count the batch dropped)", got)
	}
}

func TestWriteWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	withFastBackOff(t)

	p := newTestPipeline(50 * time.Millisecond)
	sink := &flakySink{failUntil: 2}
	batch := makeBatch(4)

	p.writeWithRetry(context.Background(), sink, "test-sink", batch)

	if sink.attempts != 3 {
		t.Fatalf("attempts = %d, want 3 (two failures then a success)", sink.attempts)
	}
	if got := p.counters.eventsDropped.Load(); got != 0 {
		t.Fatalf("eventsDropped = %d, want 0 (batch eventually delivered)", got)
	}
	if got := p.counters.snapshotSinkErrors()["test-sink"]; got != 2 {
		t.Fatalf("sinkWriteErrors[test-sink] = %d, want 2", got)
	}
}
