package plugin

import (
	"fmt"
	"sync"
)

// SourceFactory constructs an unopened Source instance for a type-tag.
type SourceFactory func() Source

// ProcessorFactory constructs an unopened Processor instance for a
// type-tag.
type ProcessorFactory func() Processor

// SinkFactory constructs an unopened Sink instance for a type-tag.
type SinkFactory func() Sink

var (
	registryMu sync.RWMutex
	sources    = make(map[string]SourceFactory)
	processors = make(map[string]ProcessorFactory)
	sinks      = make(map[string]SinkFactory)
)

// RegisterSource adds a type-tag → factory mapping to the process-wide
// source registry. Called from built-in and user plugin package init()
// functions; panics on a duplicate tag since that is a programming error,
// never an operator mistake.
func RegisterSource(typeTag string, f SourceFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := sources[typeTag]; exists {
		panic(fmt.Sprintf("plugin: source type %q already registered", typeTag))
	}
	sources[typeTag] = f
}

// RegisterProcessor adds a type-tag → factory mapping to the process-wide
// processor registry.
func RegisterProcessor(typeTag string, f ProcessorFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := processors[typeTag]; exists {
		panic(fmt.Sprintf("plugin: processor type %q already registered", typeTag))
	}
	processors[typeTag] = f
}

// RegisterSink adds a type-tag → factory mapping to the process-wide sink
// registry.
func RegisterSink(typeTag string, f SinkFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := sinks[typeTag]; exists {
		panic(fmt.Sprintf("plugin: sink type %q already registered", typeTag))
	}
	sinks[typeTag] = f
}

// NewSource constructs a source by type-tag. An unknown tag is an
// operator-time ConfigError, unlike the panic in RegisterSource.
func NewSource(typeTag string) (Source, error) {
	registryMu.RLock()
	f, ok := sources[typeTag]
	registryMu.RUnlock()
	if !ok {
		return nil, &ConfigError{Msg: fmt.Sprintf("unknown source type %q", typeTag)}
	}
	return f(), nil
}

// NewProcessor constructs a processor by type-tag.
func NewProcessor(typeTag string) (Processor, error) {
	registryMu.RLock()
	f, ok := processors[typeTag]
	registryMu.RUnlock()
	if !ok {
		return nil, &ConfigError{Msg: fmt.Sprintf("unknown processor type %q", typeTag)}
	}
	return f(), nil
}

// NewSink constructs a sink by type-tag.
func NewSink(typeTag string) (Sink, error) {
	registryMu.RLock()
	f, ok := sinks[typeTag]
	registryMu.RUnlock()
	if !ok {
		return nil, &ConfigError{Msg: fmt.Sprintf("unknown sink type %q", typeTag)}
	}
	return f(), nil
}
