// Package simerr implements the error taxonomy of spec.md §7:
// ConfigError and TraceError abort setup; ProtocolError is fatal during a
// run; CapacityBackpressure is explicitly not modeled as an error (see
// scheduler.CanAdmit); TimingViolation is an assertion-level invariant,
// modeled as a panic in internal/checker rather than an error value, since
// the spec calls it unreachable by construction.
package simerr

import "fmt"

// ConfigError reports a problem discovered while loading or validating a
// Config: an unknown enum value, contradictory watermarks, an
// address-mapping that doesn't cover the memory size, or a MemSpec/decoder
// disagreement. All ConfigErrors are fatal at construction.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Msg)
}

// NewConfigError builds a ConfigError, formatting Msg like fmt.Sprintf.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// TraceError reports a malformed trace line: bad grammar, a data-length
// mismatch, or an unsupported command. Fatal on encounter.
type TraceError struct {
	File string
	Line uint64
	Msg  string
}

func (e *TraceError) Error() string {
	return fmt.Sprintf("trace error: %s:%d: %s", e.File, e.Line, e.Msg)
}

// NewTraceError builds a TraceError, formatting Msg like fmt.Sprintf.
func NewTraceError(file string, line uint64, format string, args ...any) *TraceError {
	return &TraceError{File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// ProtocolError reports an unsupported command for the configured MemSpec,
// e.g. REFPB issued against a standard that lacks per-bank refresh. Fatal.
type ProtocolError struct {
	Command string
	Msg     string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %s", e.Command, e.Msg)
}

// NewProtocolError builds a ProtocolError, formatting Msg like fmt.Sprintf.
func NewProtocolError(cmd, format string, args ...any) *ProtocolError {
	return &ProtocolError{Command: cmd, Msg: fmt.Sprintf(format, args...)}
}
