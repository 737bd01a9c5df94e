package builtin

import (
	"context"
	"regexp"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func init() {
	plugin.RegisterProcessor("regex", func() plugin.Processor { return &RegexProcessor{} })
}

// RegexProcessor applies one or more named-capture patterns to a field;
// the first pattern to match wins, per SPEC_FULL.md §4.2.
type RegexProcessor struct {
	field        string
	targetField  string
	patterns     []*regexp.Regexp
	ignoreErrors bool
}

func (p *RegexProcessor) Open(cfg plugin.Config) error {
	p.field = cfg.GetString("field", "raw_data")
	p.targetField = cfg.GetString("target_field", "")
	p.ignoreErrors = cfg.GetBool("ignore_errors", true)

	patterns := cfg.GetStringSlice("patterns")
	if single := cfg.GetString("pattern", ""); single != "" {
		patterns = append(patterns, single)
	}
	if len(patterns) == 0 {
		return &plugin.ConfigError{Plugin: "regex", Msg: "at least one of 'pattern' or 'patterns' is required"}
	}
	for _, pat := range patterns {
		compiled, err := regexp.Compile(pat)
		if err != nil {
			return &plugin.ConfigError{Plugin: "regex", Msg: "invalid pattern: " + err.Error()}
		}
		p.patterns = append(p.patterns, compiled)
	}
	return nil
}

func (p *RegexProcessor) Process(_ context.Context, evt *logevent.LogEvent) ([]*logevent.LogEvent, error) {
	input := p.readField(evt)

	for _, re := range p.patterns {
		match := re.FindStringSubmatch(input)
		if match == nil {
			continue
		}
		writeCaptures(evt, re.SubexpNames(), match, p.targetField)
		return []*logevent.LogEvent{evt}, nil
	}

	if p.ignoreErrors {
		return []*logevent.LogEvent{evt}, nil
	}
	return nil, &plugin.ProcessorError{Processor: "regex", Err: errNoPatternMatched}
}

func (p *RegexProcessor) readField(evt *logevent.LogEvent) string {
	if p.field == "raw_data" {
		return evt.RawData
	}
	v, _ := evt.Get(p.field)
	return logevent.ToString(v)
}

func (p *RegexProcessor) Close() error { return nil }

var errNoPatternMatched = fieldError("no pattern matched")

// writeCaptures writes every named capture group into evt, optionally
// namespaced under targetField.
func writeCaptures(evt *logevent.LogEvent, names []string, match []string, targetField string) {
	for i, name := range names {
		if name == "" || i >= len(match) {
			continue
		}
		path := name
		if targetField != "" {
			path = targetField + "." + name
		}
		evt.Set(path, match[i])
	}
}
