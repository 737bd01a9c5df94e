// Package builtin registers the normative built-in processors every
// LogFlow deployment needs: json, filter, regex, grok, mutate, enrich,
// plus the supplemental validate processor.
package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
	"github.com/logflow-dev/logflow/pkg/plugin/builtin/filter"
)

func init() {
	plugin.RegisterProcessor("filter", func() plugin.Processor { return &FilterProcessor{} })
}

// FilterProcessor evaluates a boolean expression over event fields and
// drops events for which it is false. See SPEC_FULL.md §4.2.
type FilterProcessor struct {
	mode   string // "all" or "any"
	negate bool
	exprs  []filter.Expr
}

// Open compiles every newline-separated clause of `condition` up front;
// a malformed clause is a ConfigError, rejected before the pipeline
// starts.
func (p *FilterProcessor) Open(cfg plugin.Config) error {
	condition, err := cfg.RequireString("condition")
	if err != nil {
		return err
	}
	p.mode = cfg.GetString("mode", "all")
	if p.mode != "all" && p.mode != "any" {
		return &plugin.ConfigError{Plugin: "filter", Msg: fmt.Sprintf("invalid mode %q, want all or any", p.mode)}
	}
	p.negate = cfg.GetBool("negate", false)

	for _, line := range strings.Split(condition, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		expr, err := filter.Parse(line)
		if err != nil {
			return &plugin.ConfigError{Plugin: "filter", Msg: err.Error()}
		}
		p.exprs = append(p.exprs, expr)
	}
	if len(p.exprs) == 0 {
		return &plugin.ConfigError{Plugin: "filter", Msg: "condition must contain at least one clause"}
	}
	return nil
}

// Process passes the event through unchanged if the compiled condition
// evaluates true, otherwise drops it (returns no events).
func (p *FilterProcessor) Process(_ context.Context, evt *logevent.LogEvent) ([]*logevent.LogEvent, error) {
	result, err := p.evaluateAll(evt)
	if err != nil {
		return nil, &plugin.ProcessorError{Processor: "filter", Err: err}
	}
	if p.negate {
		result = !result
	}
	if !result {
		return nil, nil
	}
	return []*logevent.LogEvent{evt}, nil
}

func (p *FilterProcessor) evaluateAll(evt *logevent.LogEvent) (bool, error) {
	switch p.mode {
	case "any":
		for _, expr := range p.exprs {
			ok, err := filter.Evaluate(expr, evt)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default: // "all"
		for _, expr := range p.exprs {
			ok, err := filter.Evaluate(expr, evt)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
}

func (p *FilterProcessor) Close() error { return nil }
