package diag

import "sync"

// Recorder captures diagnostic records raised inside a worker task so the
// coordinator can replay them through the real Sink after the task
// completes. A Recorder never prints, never counts and never escalates;
// all of that happens on replay.
//
// Each task gets its own Recorder, which keeps that task's messages in
// emission order. No ordering is defined across tasks.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Records returns the captured records in emission order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

func (r *Recorder) capture(level Level, msg string, opts []EmitOption) {
	rec := newRecord(level, msg, opts)
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

func (r *Recorder) Debug2(msg string, opts ...EmitOption) { r.capture(LevelDebug2, msg, opts) }

func (r *Recorder) Debug(msg string, opts ...EmitOption) { r.capture(LevelDebug, msg, opts) }

func (r *Recorder) Verbose(msg string, opts ...EmitOption) { r.capture(LevelVerbose, msg, opts) }

func (r *Recorder) Info(msg string, opts ...EmitOption) { r.capture(LevelInfo, msg, opts) }

func (r *Recorder) Warning(msg string, opts ...EmitOption) error {
	r.capture(LevelWarning, msg, opts)
	return nil
}

func (r *Recorder) Error(msg string, opts ...EmitOption) error {
	r.capture(LevelError, msg, opts)
	return nil
}

func (r *Recorder) Critical(msg string, opts ...EmitOption) error {
	r.capture(LevelCritical, msg, opts)
	return nil
}

var (
	_ Reporter = (*Sink)(nil)
	_ Reporter = (*Recorder)(nil)
)
