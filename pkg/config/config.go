// Package config loads pipeline definitions from YAML documents into
// pipeline.Config/pipeline.PluginRecord values. It is a convenience
// binding, not the normative interface: the Engine and Pipeline types
// accept already-typed config records regardless of how the caller
// produced them. Grounded on the teacher's pkg/config/config.go
// (os.ReadFile + yaml.Unmarshal, then Validate) and v2_config.go's
// os.ExpandEnv pass for secrets like broker addresses and DSNs.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/logflow-dev/logflow/pkg/pipeline"
)

// pluginRecordYAML mirrors the §6 plugin record shape: {name, type, config}.
type pluginRecordYAML struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

// documentYAML mirrors the §6 pipeline configuration schema.
type documentYAML struct {
	Name           string             `yaml:"name"`
	Sources        []pluginRecordYAML `yaml:"sources"`
	Processors     []pluginRecordYAML `yaml:"processors"`
	Sinks          []pluginRecordYAML `yaml:"sinks"`
	BatchSize      int                `yaml:"batch_size"`
	BatchTimeout   float64            `yaml:"batch_timeout"`
	OverflowPolicy string             `yaml:"overflow_policy"`
	Workers        int                `yaml:"workers"`
	QIngest        int                `yaml:"q_ingest"`
	QOut           int                `yaml:"q_out"`
	QSink          int                `yaml:"q_sink"`
	StopGrace      float64            `yaml:"stop_grace"`
	WriteTimeout   float64            `yaml:"write_timeout"`
}

// LoadFile reads and parses one pipeline document from path.
func LoadFile(path string) (pipeline.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses one pipeline document from raw YAML bytes, expanding
// ${VAR}/$VAR environment references before unmarshalling.
func Parse(data []byte) (pipeline.Config, error) {
	expanded := os.ExpandEnv(string(data))

	var doc documentYAML
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return pipeline.Config{}, fmt.Errorf("config: parse: %w", err)
	}

	cfg := pipeline.Config{
		Name:           doc.Name,
		Sources:        toRecords(doc.Sources),
		Processors:     toRecords(doc.Processors),
		Sinks:          toRecords(doc.Sinks),
		BatchSize:      doc.BatchSize,
		OverflowPolicy: pipeline.OverflowPolicy(doc.OverflowPolicy),
		Workers:        doc.Workers,
		QIngest:        doc.QIngest,
		QOut:           doc.QOut,
		QSink:          doc.QSink,
	}
	if doc.BatchTimeout > 0 {
		cfg.BatchTimeout = secondsToDuration(doc.BatchTimeout)
	}
	if doc.StopGrace > 0 {
		cfg.StopGrace = secondsToDuration(doc.StopGrace)
	}
	if doc.WriteTimeout > 0 {
		cfg.WriteTimeout = secondsToDuration(doc.WriteTimeout)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	return cfg, nil
}

// LoadDir parses every *.yaml/*.yml file directly under dir into a
// pipeline.Config, one entry per file. Sub-directories are not
// traversed.
func LoadDir(dir string) ([]pipeline.Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("config: read dir %s: %w", dir, err)
	}

	var configs []pipeline.Config
	for _, ent := range entries {
		if ent.IsDir() || !hasYAMLExt(ent.Name()) {
			continue
		}
		cfg, err := LoadFile(dir + "/" + ent.Name())
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func hasYAMLExt(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func toRecords(recs []pluginRecordYAML) []pipeline.PluginRecord {
	out := make([]pipeline.PluginRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, pipeline.PluginRecord{
			Name:   r.Name,
			Type:   r.Type,
			Config: r.Config,
		})
	}
	return out
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
