// Package logevent defines the canonical record that flows through a
// LogFlow pipeline and the ordered batches handed to sinks.
package logevent

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LogEvent is the canonical record passed between sources, processors and
// sinks. Once admitted to a processor chain, ID, Timestamp and Source are
// guaranteed non-empty.
type LogEvent struct {
	ID        uuid.UUID
	Timestamp time.Time
	Source    string
	RawData   string

	Fields   map[string]any
	Metadata map[string]string
	Tags     map[string]struct{}
}

// New creates an event stamped with a fresh ID and the given source name.
// Timestamp defaults to now; callers that know the true event time should
// set it afterwards.
func New(source string, rawData string) *LogEvent {
	return &LogEvent{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		RawData:   rawData,
		Fields:    make(map[string]any),
		Metadata:  make(map[string]string),
		Tags:      make(map[string]struct{}),
	}
}

// Clone returns a deep copy so a processor that hands back "a new event"
// never aliases the original's maps.
func (e *LogEvent) Clone() *LogEvent {
	clone := &LogEvent{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Source:    e.Source,
		RawData:   e.RawData,
		Fields:    deepCopyMap(e.Fields),
		Metadata:  make(map[string]string, len(e.Metadata)),
		Tags:      make(map[string]struct{}, len(e.Tags)),
	}
	for k, v := range e.Metadata {
		clone.Metadata[k] = v
	}
	for k := range e.Tags {
		clone.Tags[k] = struct{}{}
	}
	return clone
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return deepCopyMap(vv)
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return vv
	}
}

// Get resolves a dotted path against Fields. A path that traverses a
// non-mapping value is a miss, not an error, matching the ingestion
// contract: missing fields compare unequal to everything.
func (e *LogEvent) Get(path string) (any, bool) {
	return getPath(e.Fields, path)
}

// GetString is a convenience accessor returning "" on miss or type
// mismatch.
func (e *LogEvent) GetString(path string) (string, bool) {
	v, ok := e.Get(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set writes a value at a dotted path, creating intermediate
// map[string]any nodes as needed. Writing through a non-mapping
// intermediate replaces it with a fresh mapping — mutate/enrich/json all
// rely on Set being permissive this way.
func (e *LogEvent) Set(path string, value any) {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	setPath(e.Fields, path, value)
}

// Delete removes the value at a dotted path, if present.
func (e *LogEvent) Delete(path string) {
	parts := strings.Split(path, ".")
	cur := e.Fields
	for i, p := range parts {
		if i == len(parts)-1 {
			delete(cur, p)
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
}

func getPath(fields map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = fields
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[p]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func setPath(fields map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := fields
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = value
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
}

// AddTag marks the event with a classification tag.
func (e *LogEvent) AddTag(tag string) {
	if e.Tags == nil {
		e.Tags = make(map[string]struct{})
	}
	e.Tags[tag] = struct{}{}
}

// HasTag reports whether the event carries the given tag.
func (e *LogEvent) HasTag(tag string) bool {
	_, ok := e.Tags[tag]
	return ok
}

// TagList returns the tags as a slice, in no particular order.
func (e *LogEvent) TagList() []string {
	out := make([]string, 0, len(e.Tags))
	for t := range e.Tags {
		out = append(out, t)
	}
	return out
}

// ToString renders a field value as a string for comparisons/lookups that
// need a textual key, mirroring the loose coercion the filter and enrich
// processors both rely on.
func ToString(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(vv)
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(vv), 'f', -1, 32)
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	default:
		return ""
	}
}

// Batch is an ordered sequence of LogEvents from one pipeline, handed to
// every sink read-only.
type Batch struct {
	PipelineName string
	events       []*LogEvent
}

// NewBatch wraps events produced in emission order.
func NewBatch(pipelineName string, events []*LogEvent) *Batch {
	return &Batch{PipelineName: pipelineName, events: events}
}

// Events returns the underlying event slice. Sinks must treat it as
// read-only; a sink that needs to mutate an event must Clone it first.
func (b *Batch) Events() []*LogEvent {
	return b.events
}

// Len reports the number of events in the batch.
func (b *Batch) Len() int {
	return len(b.events)
}
