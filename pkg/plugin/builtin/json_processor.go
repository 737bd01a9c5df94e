package builtin

import (
	"context"
	"encoding/json"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func init() {
	plugin.RegisterProcessor("json", func() plugin.Processor { return &JSONProcessor{} })
}

// JSONProcessor parses JSON out of a source field, per SPEC_FULL.md §4.2.
type JSONProcessor struct {
	field            string
	targetField      string
	preserveOriginal bool
	ignoreErrors     bool
}

func (p *JSONProcessor) Open(cfg plugin.Config) error {
	p.field = cfg.GetString("field", "raw_data")
	p.targetField = cfg.GetString("target_field", "")
	p.preserveOriginal = cfg.GetBool("preserve_original", false)
	p.ignoreErrors = cfg.GetBool("ignore_errors", false)
	return nil
}

func (p *JSONProcessor) Process(_ context.Context, evt *logevent.LogEvent) ([]*logevent.LogEvent, error) {
	raw, err := p.readField(evt)
	if err != nil || raw == "" {
		if p.ignoreErrors {
			return []*logevent.LogEvent{evt}, nil
		}
		return nil, &plugin.ProcessorError{Processor: "json", Err: errEmptyOrMissingField(p.field)}
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		if p.ignoreErrors {
			return []*logevent.LogEvent{evt}, nil
		}
		return nil, &plugin.ProcessorError{Processor: "json", Err: err}
	}

	if p.targetField == "" {
		// Merge parsed object into top-level fields. Parsed value wins
		// on key collision (SPEC_FULL.md §9, Open Question 1).
		if obj, ok := parsed.(map[string]any); ok {
			for k, v := range obj {
				evt.Set(k, v)
			}
		} else {
			evt.Set("value", parsed)
		}
	} else {
		evt.Set(p.targetField, parsed)
	}

	if !p.preserveOriginal && p.field != "raw_data" {
		evt.Delete(p.field)
	}

	return []*logevent.LogEvent{evt}, nil
}

func (p *JSONProcessor) readField(evt *logevent.LogEvent) (string, error) {
	if p.field == "raw_data" {
		return evt.RawData, nil
	}
	v, ok := evt.Get(p.field)
	if !ok {
		return "", nil
	}
	return logevent.ToString(v), nil
}

func (p *JSONProcessor) Close() error { return nil }

type fieldError string

func (e fieldError) Error() string { return string(e) }

func errEmptyOrMissingField(field string) error {
	return fieldError("field " + field + " is empty or missing")
}
