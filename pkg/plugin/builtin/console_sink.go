package builtin

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func init() {
	plugin.RegisterSink("console", func() plugin.Sink { return &ConsoleSink{} })
}

// ConsoleSink writes one JSON line per event to stdout, grounded on
// stream.ConsoleSink's json.Encoder-over-os.Stdout shape.
type ConsoleSink struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) Open(context.Context, plugin.Config) error {
	s.encoder = json.NewEncoder(os.Stdout)
	return nil
}

func (s *ConsoleSink) Write(_ context.Context, batch *logevent.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch.Events() {
		if err := s.encoder.Encode(eventToMap(evt)); err != nil {
			return &plugin.SinkRetryableError{Err: err}
		}
	}
	return nil
}

func (s *ConsoleSink) Flush(context.Context) error { return nil }
func (s *ConsoleSink) Close() error                { return nil }
