package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func init() {
	plugin.RegisterProcessor("grok", func() plugin.Processor { return &GrokProcessor{} })
}

// grokFieldRef references a %{PATTERN:name:type} capture by its sanitized
// Go regexp group name, its original dotted field path, and the
// requested scalar type for post-match conversion.
type grokFieldRef struct {
	groupName string
	fieldPath string
	fieldType string
}

// GrokProcessor is the grok built-in: semantically a regex matcher over a
// catalogue of named sub-patterns expanded at Open time, per
// SPEC_FULL.md §4.2.
type GrokProcessor struct {
	field        string
	targetField  string
	ignoreErrors bool
	compiled     []*regexp.Regexp
	refs         []map[string]grokFieldRef // per-pattern groupName -> ref
}

var grokRefPattern = regexp.MustCompile(`%\{(\w+)(?::([\w.\[\]-]+))?(?::(\w+))?\}`)

func (p *GrokProcessor) Open(cfg plugin.Config) error {
	p.field = cfg.GetString("field", "raw_data")
	p.targetField = cfg.GetString("target_field", "")
	p.ignoreErrors = cfg.GetBool("ignore_errors", true)

	catalog := make(map[string]string, len(standardGrokPatterns))
	for k, v := range standardGrokPatterns {
		catalog[k] = v
	}
	for k, v := range cfg.GetStringMap("pattern_definitions") {
		catalog[k] = v
	}

	patterns := cfg.GetStringSlice("patterns")
	if single := cfg.GetString("pattern", ""); single != "" {
		patterns = append(patterns, single)
	}
	if len(patterns) == 0 {
		return &plugin.ConfigError{Plugin: "grok", Msg: "at least one of 'pattern' or 'patterns' is required"}
	}

	for _, raw := range patterns {
		expanded, refs, err := expandGrokPattern(raw, catalog, 0)
		if err != nil {
			return &plugin.ConfigError{Plugin: "grok", Msg: err.Error()}
		}
		re, err := regexp.Compile(expanded)
		if err != nil {
			return &plugin.ConfigError{Plugin: "grok", Msg: "compiled pattern invalid: " + err.Error()}
		}
		p.compiled = append(p.compiled, re)
		p.refs = append(p.refs, refs)
	}
	return nil
}

// expandGrokPattern rewrites %{PATTERN:name:type} references into Go
// regexp syntax: a named group (?P<sanitized>...) when a field name is
// given, a non-capturing group otherwise. Catalogue references without a
// field name (used only to compose other patterns) are expanded inline,
// recursively, with a depth guard against cyclic definitions.
func expandGrokPattern(src string, catalog map[string]string, depth int) (string, map[string]grokFieldRef, error) {
	if depth > 20 {
		return "", nil, fmt.Errorf("grok: pattern expansion exceeded recursion depth (cyclic definition?)")
	}
	refs := make(map[string]grokFieldRef)
	var expandErr error
	seq := 0

	result := grokRefPattern.ReplaceAllStringFunc(src, func(tok string) string {
		m := grokRefPattern.FindStringSubmatch(tok)
		patternName, fieldPath, fieldType := m[1], m[2], m[3]

		def, ok := catalog[patternName]
		if !ok {
			if expandErr == nil {
				expandErr = fmt.Errorf("grok: unknown pattern %%{%s}", patternName)
			}
			return tok
		}
		innerExpanded, innerRefs, err := expandGrokPattern(def, catalog, depth+1)
		if err != nil {
			if expandErr == nil {
				expandErr = err
			}
			return tok
		}
		for name, ref := range innerRefs {
			refs[name] = ref
		}

		if fieldPath == "" {
			return "(?:" + innerExpanded + ")"
		}
		seq++
		groupName := fmt.Sprintf("f%d_%s", seq, sanitizeGroupName(fieldPath))
		refs[groupName] = grokFieldRef{groupName: groupName, fieldPath: fieldPath, fieldType: fieldType}
		return "(?P<" + groupName + ">" + innerExpanded + ")"
	})

	if expandErr != nil {
		return "", nil, expandErr
	}
	return result, refs, nil
}

func sanitizeGroupName(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r == '.' || r == '-' || r == '[' || r == ']' {
			sb.WriteByte('_')
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (p *GrokProcessor) Process(_ context.Context, evt *logevent.LogEvent) ([]*logevent.LogEvent, error) {
	input := p.readField(evt)

	for i, re := range p.compiled {
		match := re.FindStringSubmatch(input)
		if match == nil {
			continue
		}
		names := re.SubexpNames()
		refs := p.refs[i]
		for idx, groupName := range names {
			if groupName == "" || idx >= len(match) {
				continue
			}
			ref, ok := refs[groupName]
			if !ok {
				continue
			}
			value, err := convertGrokValue(match[idx], ref.fieldType)
			if err != nil {
				continue // leave field unset rather than fail the whole match
			}
			path := ref.fieldPath
			if p.targetField != "" {
				path = p.targetField + "." + path
			}
			evt.Set(path, value)
		}
		return []*logevent.LogEvent{evt}, nil
	}

	if p.ignoreErrors {
		return []*logevent.LogEvent{evt}, nil
	}
	return nil, &plugin.ProcessorError{Processor: "grok", Err: errNoPatternMatched}
}

func convertGrokValue(raw, fieldType string) (any, error) {
	switch fieldType {
	case "int":
		return strconv.ParseInt(raw, 10, 64)
	case "float":
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

func (p *GrokProcessor) readField(evt *logevent.LogEvent) string {
	if p.field == "raw_data" {
		return evt.RawData
	}
	v, _ := evt.Get(p.field)
	return logevent.ToString(v)
}

func (p *GrokProcessor) Close() error { return nil }
