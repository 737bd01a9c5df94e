package plugin

import "fmt"

// ConfigError rejects a plugin record at load time: unknown type, bad
// regex, malformed filter expression, missing required key.
type ConfigError struct {
	Plugin string
	Msg    string
}

func (e *ConfigError) Error() string {
	if e.Plugin == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Plugin, e.Msg)
}

// OpenError means a source couldn't reach its external resource, or a
// sink couldn't connect, during Open. The pipeline transitions to failed.
type OpenError struct {
	Plugin string
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Plugin, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// TransientSourceError is a read/decode failure on a single record; the
// source counts it and continues.
type TransientSourceError struct {
	Err error
}

func (e *TransientSourceError) Error() string { return "transient source error: " + e.Err.Error() }
func (e *TransientSourceError) Unwrap() error { return e.Err }

// ProcessorError is raised by a processor on a single event. Whether the
// event passes through unchanged or is dropped is decided by the
// ignore_errors config knob at the call site, not by this type.
type ProcessorError struct {
	Processor string
	Err       error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor %s: %v", e.Processor, e.Err)
}

func (e *ProcessorError) Unwrap() error { return e.Err }

// SinkRetryableError signals a transient write failure (timeout, 5xx,
// connection reset): the pipeline retries with bounded exponential
// backoff before giving up on the batch.
type SinkRetryableError struct {
	Err error
}

func (e *SinkRetryableError) Error() string { return "retryable sink error: " + e.Err.Error() }
func (e *SinkRetryableError) Unwrap() error { return e.Err }

// SinkFatalError signals a permanent write failure (auth, permanent
// refusal): the pipeline transitions to failed.
type SinkFatalError struct {
	Err error
}

func (e *SinkFatalError) Error() string { return "fatal sink error: " + e.Err.Error() }
func (e *SinkFatalError) Unwrap() error { return e.Err }
