package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

// countingSource emits `total` synthetic events as fast as emit accepts
// them, then returns.
type countingSource struct {
	total int
	mu    sync.Mutex
	stats plugin.SourceStats
}

func (s *countingSource) Open(context.Context, plugin.Config) error { return nil }
func (s *countingSource) Start(ctx context.Context, emit plugin.EmitFunc) error {
	for i := 0; i < s.total; i++ {
		evt := logevent.New("counting", "")
		evt.Set("i", int64(i))
		if err := emit(ctx, evt); err != nil {
			return nil
		}
		s.mu.Lock()
		s.stats.EventsEmitted++
		s.mu.Unlock()
	}
	return nil
}
func (s *countingSource) Stop(context.Context) error { return nil }
func (s *countingSource) Name() string                { return "counting" }
func (s *countingSource) Type() string                { return "test-counting" }
func (s *countingSource) Stats() plugin.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// collectingSink records every event it receives.
type collectingSink struct {
	mu     sync.Mutex
	events []*logevent.LogEvent
}

func (s *collectingSink) Open(context.Context, plugin.Config) error { return nil }
func (s *collectingSink) Write(_ context.Context, batch *logevent.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch.Events()...)
	return nil
}
func (s *collectingSink) Flush(context.Context) error { return nil }
func (s *collectingSink) Close() error                { return nil }
func (s *collectingSink) Name() string                { return "collecting" }
func (s *collectingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func registerTestPlugins(t *testing.T, sourceTotal int) (*countingSource, *collectingSink) {
	t.Helper()
	src := &countingSource{total: sourceTotal}
	sink := &collectingSink{}
	srcType := "test-counting-" + t.Name()
	sinkType := "test-collecting-" + t.Name()
	plugin.RegisterSource(srcType, func() plugin.Source { return src })
	plugin.RegisterSink(sinkType, func() plugin.Sink { return sink })
	t.Cleanup(func() {})
	return src, sink
}

func TestPipelineEndToEndDelivery(t *testing.T) {
	src, sink := registerTestPlugins(t, 50)
	srcType := "test-counting-" + t.Name()
	sinkType := "test-collecting-" + t.Name()

	cfg := Config{
		Name:         "e2e",
		Sources:      []PluginRecord{{Name: "s1", Type: srcType, Config: plugin.Config{}}},
		Sinks:        []PluginRecord{{Name: "k1", Type: sinkType, Config: plugin.Config{}}},
		BatchSize:    10,
		BatchTimeout: 50 * time.Millisecond,
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < src.total && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := sink.count(); got != src.total {
		t.Fatalf("sink received %d events, want %d", got, src.total)
	}
}

func TestPipelineStartIdempotent(t *testing.T) {
	_, _ = registerTestPlugins(t, 1)
	srcType := "test-counting-" + t.Name()
	sinkType := "test-collecting-" + t.Name()

	cfg := Config{
		Name:    "idempotent",
		Sources: []PluginRecord{{Name: "s1", Type: srcType}},
		Sinks:   []PluginRecord{{Name: "k1", Type: sinkType}},
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := p.Start(ctx); err != nil {
		t.Fatalf("second Start should be a no-op, got error: %v", err)
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("second Stop should be a no-op, got error: %v", err)
	}
}

func TestPipelineRejectsUnknownPluginType(t *testing.T) {
	cfg := Config{
		Name:    "bad",
		Sources: []PluginRecord{{Name: "s1", Type: "no-such-source-type"}},
		Sinks:   []PluginRecord{{Name: "k1", Type: "no-such-sink-type"}},
	}
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected ConfigError for unknown plugin type")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Name: "x"}
	cfg.ApplyDefaults()
	if cfg.BatchSize != 100 {
		t.Fatalf("BatchSize default = %d, want 100", cfg.BatchSize)
	}
	if cfg.OverflowPolicy != OverflowBlock {
		t.Fatalf("OverflowPolicy default = %q, want block", cfg.OverflowPolicy)
	}
	if cfg.QIngest != 1000 {
		t.Fatalf("QIngest default = %d, want 1000 (10x batch_size)", cfg.QIngest)
	}
}
