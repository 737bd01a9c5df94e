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
	plugin.RegisterSink("file", func() plugin.Sink { return &FileSink{} })
}

// FileSink appends one JSON line per event to a file, grounded on
// stream.FileSink's config shape — filled in with a real os.File append
// in place of the teacher's "Would write" placeholder.
type FileSink struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Open(_ context.Context, cfg plugin.Config) error {
	path := cfg.GetString("path", "/tmp/logflow-output.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &plugin.OpenError{Plugin: "file", Err: err}
	}
	s.path = path
	s.file = f
	return nil
}

func (s *FileSink) Write(_ context.Context, batch *logevent.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(s.file)
	for _, evt := range batch.Events() {
		if err := enc.Encode(eventToMap(evt)); err != nil {
			return &plugin.SinkRetryableError{Err: err}
		}
	}
	return nil
}

func (s *FileSink) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Sync()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
