package pipeline

import (
	"context"
	"time"

	"github.com/logflow-dev/logflow/pkg/logevent"
)

// runBatcher reads processed events from out and groups them into
// batches, emitting one when it holds batch_size events or batch_timeout
// has elapsed since the first event of the current batch, whichever
// comes first. Adapted from the teacher's BufferedSink buffer-swap +
// timer-reset loop, lifted out of the sink into a pipeline-level stage so
// every sink fans out from the same batch instance.
func runBatcher(ctx context.Context, pipelineName string, out <-chan *logevent.LogEvent, batchSize int, batchTimeout time.Duration, emit func(*logevent.Batch)) {
	timer := time.NewTimer(batchTimeout)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}
	timerRunning := false

	var buf []*logevent.LogEvent

	flush := func() {
		if len(buf) == 0 {
			return
		}
		emit(logevent.NewBatch(pipelineName, buf))
		buf = nil
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case evt, ok := <-out:
			if !ok {
				flush()
				return
			}
			if len(buf) == 0 {
				timer.Reset(batchTimeout)
				timerRunning = true
			}
			buf = append(buf, evt)
			if len(buf) >= batchSize {
				if timerRunning && !timer.Stop() {
					<-timer.C
				}
				timerRunning = false
				flush()
			}

		case <-timer.C:
			timerRunning = false
			// An empty timeout tick never emits — only possible if flush
			// already drained buf between the tick firing and being read.
			flush()
		}
	}
}
