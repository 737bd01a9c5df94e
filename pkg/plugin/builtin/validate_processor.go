package builtin

import (
	"context"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func init() {
	plugin.RegisterProcessor("validate", func() plugin.Processor { return &ValidateProcessor{} })
}

// ValidateProcessor checks an event's fields (or a sub-field) against a
// JSON Schema document. A supplemental processor, not one of the six
// normative built-ins in SPEC_FULL.md §4.2, added per the Domain Stack
// expansion.
type ValidateProcessor struct {
	schema     *gojsonschema.Schema
	field      string
	dropOnFail bool
}

func (p *ValidateProcessor) Open(cfg plugin.Config) error {
	p.field = cfg.GetString("field", "")
	p.dropOnFail = cfg.GetBool("drop_on_fail", true)

	inline := cfg.GetMap("schema")
	schemaFile := cfg.GetString("schema_file", "")

	var loader gojsonschema.JSONLoader
	switch {
	case inline != nil:
		loader = gojsonschema.NewGoLoader(inline)
	case schemaFile != "":
		loader = gojsonschema.NewReferenceLoader("file://" + schemaFile)
	default:
		return &plugin.ConfigError{Plugin: "validate", Msg: "one of 'schema' or 'schema_file' is required"}
	}

	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return &plugin.ConfigError{Plugin: "validate", Msg: "invalid schema: " + err.Error()}
	}
	p.schema = schema
	return nil
}

func (p *ValidateProcessor) Process(_ context.Context, evt *logevent.LogEvent) ([]*logevent.LogEvent, error) {
	var data any = evt.Fields
	if p.field != "" {
		v, ok := evt.Get(p.field)
		if !ok {
			if p.dropOnFail {
				return nil, nil
			}
			return nil, &plugin.ProcessorError{Processor: "validate", Err: fmt.Errorf("field %q missing", p.field)}
		}
		data = v
	}

	result, err := p.schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, &plugin.ProcessorError{Processor: "validate", Err: err}
	}
	if !result.Valid() {
		if p.dropOnFail {
			return nil, nil
		}
		return nil, &plugin.ProcessorError{Processor: "validate", Err: fmt.Errorf("schema validation failed: %v", result.Errors())}
	}
	return []*logevent.LogEvent{evt}, nil
}

func (p *ValidateProcessor) Close() error { return nil }
