// Package metrics provides build observability through a Recorder
// interface. Components receive a Recorder by injection and default to
// NoopRecorder, so metrics cost nothing unless a real implementation is
// wired in.
package metrics

import "time"

// Recorder receives build lifecycle measurements.
type Recorder interface {
	BuildStarted(buildID string)
	BuildCompleted(buildID string, succeeded bool, duration time.Duration)
	DocumentsWritten(n int)
	WarningsEmitted(n int)
}

// NoopRecorder is the default Recorder; every method is a no-op.
type NoopRecorder struct{}

func (NoopRecorder) BuildStarted(string)                       {}
func (NoopRecorder) BuildCompleted(string, bool, time.Duration) {}
func (NoopRecorder) DocumentsWritten(int)                      {}
func (NoopRecorder) WarningsEmitted(int)                       {}

var _ Recorder = NoopRecorder{}
