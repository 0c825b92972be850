// Package history records site build runs so the CLI can show what was built,
// when and how long it took.
package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound indicates that no build run matches the requested id.
var ErrRunNotFound = errors.New("history: run not found")

// Run summarises one generator invocation.
type Run struct {
	ID            uuid.UUID
	Command       string
	StartedAt     time.Time
	Duration      time.Duration
	Posts         int
	PagesBuilt    int
	PagesSkipped  int
	AssetsBuilt   int
	AssetsSkipped int
	FeedsWritten  int
	DryRun        bool
	Error         string
}

// Succeeded reports whether the run finished without an error.
func (r Run) Succeeded() bool {
	return strings.TrimSpace(r.Error) == ""
}

// Repository persists build runs.
type Repository interface {
	Record(ctx context.Context, run Run) (Run, error)
	Get(ctx context.Context, id uuid.UUID) (Run, error)
	Recent(ctx context.Context, limit int) ([]Run, error)
	Prune(ctx context.Context, keep int) (int, error)
}

// DefaultRecentLimit is used when Recent receives a non-positive limit.
const DefaultRecentLimit = 10

func prepare(run Run, now func() time.Time) Run {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = now()
	}
	run.StartedAt = run.StartedAt.UTC()
	run.Command = strings.TrimSpace(run.Command)
	return run
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}
