package builtin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func init() {
	plugin.RegisterProcessor("mutate", func() plugin.Processor { return &MutateProcessor{} })
}

// MutateProcessor applies structural field edits in the fixed order
// mandated by SPEC_FULL.md §4.2: rename, convert, upper/lowercase, strip,
// add, remove. With an empty config it is the identity transform.
type MutateProcessor struct {
	renameFields    map[string]string
	convertFields   map[string]string
	uppercaseFields []string
	lowercaseFields []string
	stripFields     []string
	addFields       map[string]any
	removeFields    []string
}

func (p *MutateProcessor) Open(cfg plugin.Config) error {
	p.renameFields = cfg.GetStringMap("rename_fields")
	p.convertFields = cfg.GetStringMap("convert_fields")
	p.uppercaseFields = cfg.GetStringSlice("uppercase_fields")
	p.lowercaseFields = cfg.GetStringSlice("lowercase_fields")
	p.stripFields = cfg.GetStringSlice("strip_fields")
	p.addFields = cfg.GetMap("add_fields")
	p.removeFields = cfg.GetStringSlice("remove_fields")

	for field, target := range p.convertFields {
		switch target {
		case "int", "float", "string", "bool":
		default:
			return &plugin.ConfigError{Plugin: "mutate", Msg: fmt.Sprintf("convert_fields[%s]: unsupported target type %q", field, target)}
		}
	}
	return nil
}

func (p *MutateProcessor) Process(_ context.Context, evt *logevent.LogEvent) ([]*logevent.LogEvent, error) {
	for oldName, newName := range p.renameFields {
		if v, ok := evt.Get(oldName); ok {
			evt.Delete(oldName)
			evt.Set(newName, v)
		}
	}

	for field, target := range p.convertFields {
		if v, ok := evt.Get(field); ok {
			converted, err := convertValue(v, target)
			if err != nil {
				return nil, &plugin.ProcessorError{Processor: "mutate", Err: err}
			}
			evt.Set(field, converted)
		}
	}

	for _, field := range p.uppercaseFields {
		if s, ok := evt.GetString(field); ok {
			evt.Set(field, strings.ToUpper(s))
		}
	}
	for _, field := range p.lowercaseFields {
		if s, ok := evt.GetString(field); ok {
			evt.Set(field, strings.ToLower(s))
		}
	}

	for _, field := range p.stripFields {
		if s, ok := evt.GetString(field); ok {
			evt.Set(field, strings.TrimSpace(s))
		}
	}

	for field, value := range p.addFields {
		evt.Set(field, value)
	}

	for _, field := range p.removeFields {
		evt.Delete(field)
	}

	return []*logevent.LogEvent{evt}, nil
}

func convertValue(v any, target string) (any, error) {
	switch target {
	case "string":
		return logevent.ToString(v), nil
	case "int":
		switch vv := v.(type) {
		case int64:
			return vv, nil
		case float64:
			return int64(vv), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(vv), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to int: %w", vv, err)
			}
			return n, nil
		case bool:
			if vv {
				return int64(1), nil
			}
			return int64(0), nil
		default:
			return nil, fmt.Errorf("cannot convert %T to int", v)
		}
	case "float":
		switch vv := v.(type) {
		case float64:
			return vv, nil
		case int64:
			return float64(vv), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(vv), 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to float: %w", vv, err)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("cannot convert %T to float", v)
		}
	case "bool":
		switch vv := v.(type) {
		case bool:
			return vv, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(vv))
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to bool: %w", vv, err)
			}
			return b, nil
		default:
			return nil, fmt.Errorf("cannot convert %T to bool", v)
		}
	default:
		return nil, fmt.Errorf("unsupported conversion target %q", target)
	}
}

func (p *MutateProcessor) Close() error { return nil }
