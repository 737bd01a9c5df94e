package plugin

import (
	"context"
	"testing"

	"github.com/logflow-dev/logflow/pkg/logevent"
)

type noopProcessor struct{}

func (noopProcessor) Open(Config) error { return nil }
func (noopProcessor) Process(_ context.Context, evt *logevent.LogEvent) ([]*logevent.LogEvent, error) {
	return []*logevent.LogEvent{evt}, nil
}
func (noopProcessor) Close() error { return nil }

func TestRegisterAndNewProcessor(t *testing.T) {
	RegisterProcessor("test-noop-registry", func() Processor { return noopProcessor{} })

	p, err := NewProcessor("test-noop-registry")
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	if p == nil {
		t.Fatalf("expected non-nil processor")
	}
}

func TestNewProcessorUnknownType(t *testing.T) {
	_, err := NewProcessor("does-not-exist")
	if err == nil {
		t.Fatalf("expected ConfigError for unknown type")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	RegisterProcessor("test-dup-registry", func() Processor { return noopProcessor{} })
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	RegisterProcessor("test-dup-registry", func() Processor { return noopProcessor{} })
}
