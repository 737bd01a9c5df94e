package builtin

import (
	"context"
	"testing"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func TestEnrichLookupMatch(t *testing.T) {
	p := &EnrichProcessor{}
	err := p.Open(plugin.Config{
		"mode":         "lookup",
		"source_field": "event_id",
		"target_field": "event_description",
		"lookup_table": map[string]any{"4625": "Failed logon attempt"},
		"default_value": "Unknown",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	evt := logevent.New("test", "")
	evt.Set("event_id", "4625")
	out, err := p.Process(context.Background(), evt)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if v, _ := out[0].GetString("event_description"); v != "Failed logon attempt" {
		t.Fatalf("event_description = %q, want 'Failed logon attempt'", v)
	}
}

func TestEnrichLookupDefaultValue(t *testing.T) {
	p := &EnrichProcessor{}
	err := p.Open(plugin.Config{
		"mode":          "lookup",
		"source_field":  "event_id",
		"target_field":  "event_description",
		"lookup_table":  map[string]any{"4625": "Failed logon attempt"},
		"default_value": "Unknown",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	evt := logevent.New("test", "")
	evt.Set("event_id", "9999")
	out, _ := p.Process(context.Background(), evt)
	if v, _ := out[0].GetString("event_description"); v != "Unknown" {
		t.Fatalf("event_description = %q, want fallback 'Unknown'", v)
	}
}

func TestEnrichUnknownModeIsConfigError(t *testing.T) {
	p := &EnrichProcessor{}
	if err := p.Open(plugin.Config{"mode": "not-a-mode"}); err == nil {
		t.Fatalf("expected ConfigError for unknown enrich mode")
	}
}
