// Package metrics exposes build and dev-server observability hooks.
package metrics

import "time"

// Outcome labels a finished build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
	OutcomeDryRun   Outcome = "dry_run"
)

// ArtifactStatus labels what happened to a single output file.
type ArtifactStatus string

const (
	ArtifactBuilt   ArtifactStatus = "built"
	ArtifactSkipped ArtifactStatus = "skipped"
	ArtifactFailed  ArtifactStatus = "failed"
)

// Recorder defines observability hooks for site builds and the dev server.
// Implementations must tolerate nil receivers.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome Outcome)
	ObserveRenderDuration(template string, d time.Duration)
	IncArtifact(kind string, status ArtifactStatus)
	IncRebuildTrigger(source string)
	SetLiveReloadClients(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration)          {}
func (NoopRecorder) IncBuildOutcome(Outcome)                     {}
func (NoopRecorder) ObserveRenderDuration(string, time.Duration) {}
func (NoopRecorder) IncArtifact(string, ArtifactStatus)          {}
func (NoopRecorder) IncRebuildTrigger(string)                    {}
func (NoopRecorder) SetLiveReloadClients(int)                    {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
