package pipeline

import (
	"context"

	"github.com/logflow-dev/logflow/pkg/logevent"
)

// sinkQueue is the bounded, per-sink channel of batches awaiting write,
// with the overflow policy applied at push time. Adapted from the
// mailbox overflow strategies in the teacher's actor package, generalized
// from single messages to batches and extended with the drop_new
// variant.
type sinkQueue struct {
	ch       chan *logevent.Batch
	policy   OverflowPolicy
	counters *counters
}

func newSinkQueue(capacity int, policy OverflowPolicy, c *counters) *sinkQueue {
	return &sinkQueue{
		ch:       make(chan *logevent.Batch, capacity),
		policy:   policy,
		counters: c,
	}
}

// push offers batch to the queue, applying the configured overflow
// policy when the queue is full. Returns false only when ctx is
// cancelled while blocking.
func (q *sinkQueue) push(ctx context.Context, batch *logevent.Batch) bool {
	select {
	case q.ch <- batch:
		return true
	default:
	}

	switch q.policy {
	case OverflowDropNew:
		q.counters.eventsDropped.Add(int64(batch.Len()))
		return true
	case OverflowDropOldest:
		select {
		case oldest := <-q.ch:
			q.counters.eventsDropped.Add(int64(oldest.Len()))
		default:
			// raced with the consumer draining the queue; nothing to drop
		}
		select {
		case q.ch <- batch:
		case <-ctx.Done():
			return false
		}
		return true
	default: // OverflowBlock
		select {
		case q.ch <- batch:
			return true
		case <-ctx.Done():
			return false
		}
	}
}

func (q *sinkQueue) close() {
	close(q.ch)
}
