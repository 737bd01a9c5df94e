package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

// maxSinkRetries and the backoff bounds are normative per SPEC_FULL.md
// §7: base 500ms, cap 30s, max 5 attempts per batch.
const (
	maxSinkRetries  = 5
	sinkBackoffBase = 500 * time.Millisecond
	sinkBackoffCap  = 30 * time.Second
)

// newSinkBackOff builds the retry schedule for a single batch write. A
// package-level var so tests can substitute a faster schedule without
// changing the normative production constants above.
var newSinkBackOff = func() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = sinkBackoffBase
	bo.MaxInterval = sinkBackoffCap
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	return bo
}

// runSinkTask drains one sink's queue and writes each batch, retrying
// SinkRetryableError with bounded exponential backoff. A SinkFatalError
// fails the whole pipeline; exhausting retries drops the batch's events.
func (p *Pipeline) runSinkTask(ctx context.Context, snk plugin.Sink, name string, q *sinkQueue) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.fail(StateRunning, fmt.Sprintf("sink %s panicked: %v", name, r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-q.ch:
			if !ok {
				return
			}
			p.writeWithRetry(ctx, snk, name, batch)
		}
	}
}

func (p *Pipeline) writeWithRetry(ctx context.Context, snk plugin.Sink, name string, batch *logevent.Batch) {
	bo := newSinkBackOff()

	attempts := 0
	for {
		writeCtx, cancel := context.WithTimeout(ctx, p.cfg.WriteTimeout)
		err := snk.Write(writeCtx, batch)
		cancel()
		attempts++

		if err == nil {
			return
		}

		var retryable *plugin.SinkRetryableError
		var fatal *plugin.SinkFatalError
		switch {
		case errors.As(err, &fatal):
			p.fail(StateRunning, fmt.Sprintf("sink %s: fatal write error: %v", name, err))
			return
		case errors.As(err, &retryable) || errors.Is(writeCtx.Err(), context.DeadlineExceeded):
			p.counters.addSinkWriteError(name)
			if attempts >= maxSinkRetries {
				p.counters.eventsDropped.Add(int64(batch.Len()))
				p.logger.Error("sink retries exhausted; dropping batch", "sink", name, "attempts", attempts)
				return
			}
			wait := bo.NextBackOff()
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
		default:
			// An undeclared error type is treated as fatal: the taxonomy
			// requires every sink error to be classified.
			p.fail(StateRunning, fmt.Sprintf("sink %s: unclassified write error: %v", name, err))
			return
		}
	}
}
