package diag

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/encoding/charmap"
)

// Reporter is the emission surface shared by the coordinating Sink and the
// per-task Recorder. Components that only produce diagnostics (writers,
// consistency checks, worker tasks) accept a Reporter so they do not care
// whether they run in the coordinator or inside a pool task.
//
// Warning, Error and Critical return a non-nil error only when the record
// escalates under warning-is-error mode; callers must propagate it.
type Reporter interface {
	Debug2(msg string, opts ...EmitOption)
	Debug(msg string, opts ...EmitOption)
	Verbose(msg string, opts ...EmitOption)
	Info(msg string, opts ...EmitOption)
	Warning(msg string, opts ...EmitOption) error
	Error(msg string, opts ...EmitOption) error
	Critical(msg string, opts ...EmitOption) error
}

// EscalatedWarning is returned instead of printing when warning-is-error
// mode converts a warning into a failure. Its text is exactly the line
// that would have been written (uncolored).
type EscalatedWarning struct {
	Text string
}

func (e *EscalatedWarning) Error() string { return e.Text }

// ErrPendingActive is returned when a pending-warnings scope is entered
// while another one is still open. Scopes do not nest.
var ErrPendingActive = errors.New("diag: pending warnings scope already active")

// Sink is the single authority for all status and warning text leaving a
// build. It owns the two output streams, the verbosity threshold, the
// suppression ruleset, the escalation flag, the warning counter and the
// (at most one) active pending buffer.
//
// All state is guarded by one mutex so that replaying records collected in
// worker tasks can interleave safely with coordinator emission, including
// during a pending-warnings window.
type Sink struct {
	mu sync.Mutex

	status  io.Writer
	warning io.Writer

	verbosity   int
	suppress    []string
	warnIsError bool
	color       bool
	suffix      string
	encoding    *charmap.Charmap

	warncount     int
	pending       []Record
	pendingActive bool
}

// New creates a sink writing status output to status and warnings to
// warning. Defaults: verbosity 0, color off, source suffix ".md".
func New(status, warning io.Writer) *Sink {
	return &Sink{status: status, warning: warning, suffix: ".md"}
}

// WithVerbosity sets the status verbosity (0..3).
func (s *Sink) WithVerbosity(v int) *Sink {
	s.verbosity = v
	return s
}

// WithSuppressRules sets the suppression ruleset.
func (s *Sink) WithSuppressRules(rules []string) *Sink {
	s.suppress = rules
	return s
}

// WithWarningIsError enables escalation of warnings to failures.
func (s *Sink) WithWarningIsError(on bool) *Sink {
	s.warnIsError = on
	return s
}

// WithColor enables ANSI colorization of formatted lines.
func (s *Sink) WithColor(on bool) *Sink {
	s.color = on
	return s
}

// WithSourceSuffix sets the suffix appended to docnames in locations.
func (s *Sink) WithSourceSuffix(suffix string) *Sink {
	s.suffix = suffix
	return s
}

// WithEncoding declares the character repertoire of the destination
// streams. Code points the map cannot encode are substituted with '?'
// instead of failing the emission.
func (s *Sink) WithEncoding(cm *charmap.Charmap) *Sink {
	s.encoding = cm
	return s
}

// Reset clears the warning counter at the start of a build invocation.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warncount = 0
}

// WarningCount returns the number of non-suppressed warning-or-above
// records emitted since the last Reset.
func (s *Sink) WarningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warncount
}

// Decorate colorizes text when color is enabled, for callers composing
// partially-colored lines (progress headers and the like).
func (s *Sink) Decorate(name, text string) string {
	if !s.color {
		return text
	}
	return Colorize(name, text)
}

func (s *Sink) Debug2(msg string, opts ...EmitOption) {
	_ = s.emit(newRecord(LevelDebug2, msg, opts))
}

func (s *Sink) Debug(msg string, opts ...EmitOption) {
	_ = s.emit(newRecord(LevelDebug, msg, opts))
}

func (s *Sink) Verbose(msg string, opts ...EmitOption) {
	_ = s.emit(newRecord(LevelVerbose, msg, opts))
}

func (s *Sink) Info(msg string, opts ...EmitOption) {
	_ = s.emit(newRecord(LevelInfo, msg, opts))
}

func (s *Sink) Warning(msg string, opts ...EmitOption) error {
	return s.emit(newRecord(LevelWarning, msg, opts))
}

func (s *Sink) Error(msg string, opts ...EmitOption) error {
	return s.emit(newRecord(LevelError, msg, opts))
}

func (s *Sink) Critical(msg string, opts ...EmitOption) error {
	return s.emit(newRecord(LevelCritical, msg, opts))
}

// PendingWarnings runs fn with warning buffering active. Warnings emitted
// inside the scope are withheld and flushed in emission order when the
// scope ends, exactly once. Suppression, counting and escalation are
// applied at flush time. Scopes do not nest; a nested call fails with
// ErrPendingActive without running fn.
//
// fn's error takes precedence over a flush escalation error.
func (s *Sink) PendingWarnings(fn func() error) error {
	s.mu.Lock()
	if s.pendingActive {
		s.mu.Unlock()
		return ErrPendingActive
	}
	s.pendingActive = true
	s.mu.Unlock()

	fnErr := fn()
	flushErr := s.flushPending()
	if fnErr != nil {
		return fnErr
	}
	return flushErr
}

func (s *Sink) flushPending() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buffered := s.pending
	s.pending = nil
	s.pendingActive = false

	var first error
	for _, rec := range buffered {
		if err := s.deliverLocked(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Replay emits records captured by a worker-task Recorder through this
// sink, preserving the task's internal order. It stops at the first
// escalation error, matching the abort semantics of direct emission.
func (s *Sink) Replay(records []Record) error {
	for _, rec := range records {
		if err := s.emit(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) emit(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingActive && rec.Level >= LevelWarning {
		s.pending = append(s.pending, rec)
		return nil
	}
	return s.deliverLocked(rec)
}

func (s *Sink) deliverLocked(rec Record) error {
	if rec.Type != "" && IsSuppressed(rec.Type, rec.Subtype, s.suppress) {
		return nil
	}
	if rec.Level >= LevelWarning {
		s.warncount++
	}

	line := s.format(rec)

	if s.warnIsError && rec.Level == LevelWarning {
		return &EscalatedWarning{Text: line}
	}

	var w io.Writer
	if rec.Level >= LevelWarning {
		w = s.warning
	} else {
		if rec.Level < minVisible(s.verbosity) {
			return nil
		}
		w = s.status
	}

	out := line
	if name := s.colorName(rec); name != "" {
		out = Colorize(name, out)
	}
	out = s.sanitize(out)

	if rec.NoNewline {
		_, _ = io.WriteString(w, out)
	} else {
		_, _ = io.WriteString(w, out+"\n")
	}
	return nil
}

// format renders the uncolored line: location prefix, level tag for the
// warning family, then the message.
func (s *Sink) format(rec Record) string {
	var b strings.Builder
	b.WriteString(rec.Location.prefix(s.suffix))
	if rec.Level >= LevelWarning {
		fmt.Fprintf(&b, "%s: ", rec.Level)
	}
	b.WriteString(rec.Message)
	return b.String()
}

func (s *Sink) colorName(rec Record) string {
	if !s.color {
		return ""
	}
	if rec.Color != "" {
		return rec.Color
	}
	return defaultColors[rec.Level]
}

// sanitize substitutes code points the destination encoding cannot
// represent. Emission never fails on encoding.
func (s *Sink) sanitize(text string) string {
	if s.encoding == nil {
		return text
	}
	var b strings.Builder
	for _, r := range text {
		if _, ok := s.encoding.EncodeRune(r); ok {
			b.WriteRune(r)
		} else {
			b.WriteRune('?')
		}
	}
	return b.String()
}
