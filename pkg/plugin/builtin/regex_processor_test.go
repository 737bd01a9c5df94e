package builtin

import (
	"context"
	"testing"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func TestRegexProcessorNamedCaptures(t *testing.T) {
	p := &RegexProcessor{}
	err := p.Open(plugin.Config{"pattern": `^(?P<level>\w+): (?P<msg>.*)$`})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	evt := logevent.New("test", "ERROR: disk full")
	out, err := p.Process(context.Background(), evt)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if v, _ := out[0].GetString("level"); v != "ERROR" {
		t.Fatalf("level = %q, want ERROR", v)
	}
	if v, _ := out[0].GetString("msg"); v != "disk full" {
		t.Fatalf("msg = %q, want 'disk full'", v)
	}
}

func TestRegexProcessorFirstMatchWins(t *testing.T) {
	p := &RegexProcessor{}
	err := p.Open(plugin.Config{"patterns": []any{
		`^(?P<kind>NEVER_MATCHES)$`,
		`^(?P<kind>\w+)$`,
		`^(?P<kind>also_matches)$`,
	}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	evt := logevent.New("test", "also_matches")
	out, _ := p.Process(context.Background(), evt)
	if v, _ := out[0].GetString("kind"); v != "also_matches" {
		t.Fatalf("kind = %q, want also_matches (second pattern should win)", v)
	}
}

func TestGrokStandardPatterns(t *testing.T) {
	p := &GrokProcessor{}
	err := p.Open(plugin.Config{"pattern": `%{LOGLEVEL:level} %{GREEDYDATA:message}`})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	evt := logevent.New("test", "ERROR disk is full")
	out, err := p.Process(context.Background(), evt)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if v, _ := out[0].GetString("level"); v != "ERROR" {
		t.Fatalf("level = %q, want ERROR", v)
	}
	if v, _ := out[0].GetString("message"); v != "disk is full" {
		t.Fatalf("message = %q", v)
	}
}

func TestGrokTypedCapture(t *testing.T) {
	p := &GrokProcessor{}
	err := p.Open(plugin.Config{"pattern": `count=%{INT:count:int}`})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	evt := logevent.New("test", "count=42")
	out, err := p.Process(context.Background(), evt)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	v, ok := out[0].Get("count")
	if !ok {
		t.Fatalf("expected count field to be set")
	}
	if v != int64(42) {
		t.Fatalf("count = %v (%T), want int64(42)", v, v)
	}
}

func TestGrokUnknownPatternIsConfigError(t *testing.T) {
	p := &GrokProcessor{}
	err := p.Open(plugin.Config{"pattern": `%{NOT_A_REAL_PATTERN:x}`})
	if err == nil {
		t.Fatalf("expected ConfigError for unknown grok pattern")
	}
}
