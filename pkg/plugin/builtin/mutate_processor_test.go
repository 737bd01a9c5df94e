package builtin

import (
	"context"
	"testing"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func TestMutateEmptyConfigIsIdentity(t *testing.T) {
	p := &MutateProcessor{}
	if err := p.Open(plugin.Config{}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	evt := logevent.New("test", "")
	evt.Set("a", "b")
	out, err := p.Process(context.Background(), evt)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if v, _ := out[0].GetString("a"); v != "b" {
		t.Fatalf("identity mutate changed field a: %q", v)
	}
}

func TestMutateOrderingRenameThenAddOverwrites(t *testing.T) {
	p := &MutateProcessor{}
	err := p.Open(plugin.Config{
		"rename_fields": map[string]any{"a": "b"},
		"add_fields":    map[string]any{"b": "X"},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	evt := logevent.New("test", "")
	evt.Set("a", "Y")
	out, err := p.Process(context.Background(), evt)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if v, _ := out[0].GetString("b"); v != "X" {
		t.Fatalf("expected add_fields to run after rename and win, got b=%q", v)
	}
}

func TestMutateFixedOrderConvertThenCase(t *testing.T) {
	p := &MutateProcessor{}
	err := p.Open(plugin.Config{
		"convert_fields":   map[string]any{"name": "string"},
		"uppercase_fields": []any{"name"},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	evt := logevent.New("test", "")
	evt.Set("name", "ada")
	out, err := p.Process(context.Background(), evt)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if v, _ := out[0].GetString("name"); v != "ADA" {
		t.Fatalf("name = %q, want ADA", v)
	}
}

func TestMutateStripFields(t *testing.T) {
	p := &MutateProcessor{}
	if err := p.Open(plugin.Config{"strip_fields": []any{"name"}}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	evt := logevent.New("test", "")
	evt.Set("name", "  ada  ")
	out, _ := p.Process(context.Background(), evt)
	if v, _ := out[0].GetString("name"); v != "ada" {
		t.Fatalf("name = %q, want trimmed 'ada'", v)
	}
}

func TestMutateRemoveFields(t *testing.T) {
	p := &MutateProcessor{}
	if err := p.Open(plugin.Config{"remove_fields": []any{"secret"}}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	evt := logevent.New("test", "")
	evt.Set("secret", "x")
	out, _ := p.Process(context.Background(), evt)
	if _, ok := out[0].Get("secret"); ok {
		t.Fatalf("expected secret field to be removed")
	}
}
