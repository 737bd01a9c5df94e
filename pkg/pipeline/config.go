// Package pipeline implements the three-stage concurrent data path that
// connects a pipeline's sources, processor chain and sinks: bounded
// queues, batching, backpressure, lifecycle and metrics.
package pipeline

import (
	"fmt"
	"time"

	"github.com/logflow-dev/logflow/pkg/plugin"
)

// OverflowPolicy governs what happens when a sink queue is full.
type OverflowPolicy string

const (
	OverflowBlock      OverflowPolicy = "block"
	OverflowDropOldest OverflowPolicy = "drop_oldest"
	OverflowDropNew    OverflowPolicy = "drop_new"
)

// PluginRecord is the declarative {name, type, config} triple for one
// source, processor or sink instance within a pipeline.
type PluginRecord struct {
	Name   string
	Type   string
	Config plugin.Config
}

// Config is the in-memory pipeline configuration record, matching the
// schema in SPEC_FULL.md §6. It is the contract boundary: the YAML
// loader in pkg/config produces one of these, but any caller may build
// one directly.
type Config struct {
	Name       string
	Sources    []PluginRecord
	Processors []PluginRecord
	Sinks      []PluginRecord

	BatchSize      int
	BatchTimeout   time.Duration
	OverflowPolicy OverflowPolicy

	// Workers is the processor driver fan-out (default 1 — a single
	// sequential chain). >1 declares no ordering guarantee across
	// sources/workers, FIFO within one worker, per §4.3.
	Workers int

	QIngest int // default 10 * BatchSize
	QOut    int // default 4 * BatchSize
	QSink   int // default 2

	StopGrace    time.Duration // default 30s
	WriteTimeout time.Duration // default 10s
}

// ApplyDefaults fills in every unset tuning knob with the spec's default.
func (c *Config) ApplyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 5 * time.Second
	}
	if c.OverflowPolicy == "" {
		c.OverflowPolicy = OverflowBlock
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QIngest <= 0 {
		c.QIngest = 10 * c.BatchSize
	}
	if c.QOut <= 0 {
		c.QOut = 4 * c.BatchSize
	}
	if c.QSink <= 0 {
		c.QSink = 2
	}
	if c.StopGrace <= 0 {
		c.StopGrace = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
}

// Validate rejects a config that can never produce a running pipeline:
// missing name, no sources, no sinks, or an invalid overflow_policy. A
// ConfigError here fails load_pipeline before any plugin is constructed.
// Plugin type-tags are not checked here; an unknown type is rejected by
// New when it constructs the plugins.
func (c *Config) Validate() error {
	if c.Name == "" {
		return &plugin.ConfigError{Msg: "pipeline name must not be empty"}
	}
	if len(c.Sources) == 0 {
		return &plugin.ConfigError{Plugin: c.Name, Msg: "pipeline must declare at least one source"}
	}
	if len(c.Sinks) == 0 {
		return &plugin.ConfigError{Plugin: c.Name, Msg: "pipeline must declare at least one sink"}
	}
	switch c.OverflowPolicy {
	case OverflowBlock, OverflowDropOldest, OverflowDropNew:
	default:
		return &plugin.ConfigError{Plugin: c.Name, Msg: fmt.Sprintf("invalid overflow_policy %q", c.OverflowPolicy)}
	}
	return nil
}
