// Package diag renders the severity-tagged diagnostics described in
// spec.md §7: every warning, error, abort and terminal line is prefixed with
// one of four tokens so that downstream tooling can grep the transcript
// without parsing prose. Plain progress lines written by Infof carry no
// token.
package diag

import (
	"fmt"
	"io"
)

// Severity is one of the four tokens spec.md §7 names for diagnostic lines.
type Severity string

const (
	// SeverityAbort marks a fatal condition that ends the bootstrap attempt.
	SeverityAbort Severity = "ABORT"
	// SeverityError marks a structural problem the Orchestrator treats as
	// fatal for the current candidate but not necessarily for the run.
	SeverityError Severity = "!! APFS ERROR !!"
	// SeverityWarning marks a per-slot or leniency-covered problem that does
	// not stop the pipeline (spec.md §7: block-0 and descriptor-slot warnings).
	SeverityWarning Severity = "!! APFS WARNING !!"
	// SeverityInfo is the END token that End writes at the start of the
	// terminal line of a run. Lines written by Infof carry no token.
	SeverityInfo Severity = "END"
)

// Logger writes severity-tagged diagnostic lines to an output and error
// sink, the way the teacher's CLI splits user-facing output from warnings.
type Logger struct {
	out io.Writer
	err io.Writer
}

// New returns a Logger writing informational lines to out and
// warnings/errors/aborts to errw.
func New(out, errw io.Writer) *Logger {
	return &Logger{out: out, err: errw}
}

func (l *Logger) Infof(format string, args ...any) {
	fmt.Fprintf(l.out, "%s\n", fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	fmt.Fprintf(l.err, "%s %s\n", SeverityWarning, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	fmt.Fprintf(l.err, "%s %s\n", SeverityError, fmt.Sprintf(format, args...))
}

func (l *Logger) Abortf(format string, args ...any) {
	fmt.Fprintf(l.err, "%s %s\n", SeverityAbort, fmt.Sprintf(format, args...))
}

// End emits the terminal marker line. msg is typically a terminal-state
// name ("success", "unimplemented: non-contiguous descriptor area", ...).
func (l *Logger) End(msg string) {
	fmt.Fprintf(l.out, "%s: %s\n", SeverityInfo, msg)
}
