// Package diag collects warnings and errors produced while loading,
// checking and emitting designs and renders them in either a plain text
// or a machine-readable JSON form.
package diag

import (
	"encoding/json"
	"fmt"
	"io"
)

// Reporter writes diagnostics to a stream and keeps severity counts.
// A nil Reporter discards everything, so callers do not need to guard
// each report site.
type Reporter struct {
	w        io.Writer
	format   string
	errors   int
	warnings int
}

// NewReporter creates a reporter writing to w. format is "text" or
// "json"; anything else falls back to text.
func NewReporter(w io.Writer, format string) *Reporter {
	if format != "json" {
		format = "text"
	}
	return &Reporter{w: w, format: format}
}

// Warningf reports a non-fatal diagnostic.
func (r *Reporter) Warningf(format string, args ...interface{}) {
	if r == nil {
		return
	}
	r.warnings++
	r.emit("warning", fmt.Sprintf(format, args...))
}

// Errorf reports an error diagnostic. The caller decides whether the
// run continues; the reporter only records and prints.
func (r *Reporter) Errorf(format string, args ...interface{}) {
	if r == nil {
		return
	}
	r.errors++
	r.emit("error", fmt.Sprintf(format, args...))
}

// HasErrors reports whether any error diagnostics were recorded.
func (r *Reporter) HasErrors() bool {
	return r != nil && r.errors > 0
}

// ErrorCount returns the number of error diagnostics recorded.
func (r *Reporter) ErrorCount() int {
	if r == nil {
		return 0
	}
	return r.errors
}

// WarningCount returns the number of warning diagnostics recorded.
func (r *Reporter) WarningCount() int {
	if r == nil {
		return 0
	}
	return r.warnings
}

func (r *Reporter) emit(severity, msg string) {
	if r.w == nil {
		return
	}
	if r.format == "json" {
		entry := struct {
			Severity string `json:"severity"`
			Message  string `json:"message"`
		}{severity, msg}
		data, err := json.Marshal(entry)
		if err != nil {
			return
		}
		fmt.Fprintf(r.w, "%s\n", data)
		return
	}
	fmt.Fprintf(r.w, "%s: %s\n", severity, msg)
}
