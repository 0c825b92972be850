// Package scheduler runs site rebuilds on a timer and at the publish date of
// future-dated posts while the development server is running.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

const (
	// TagRebuild marks the periodic rebuild job.
	TagRebuild = "rebuild"
	// TagPublish marks one-off jobs created for future-dated posts.
	TagPublish = "publish"

	ReasonInterval = "interval"
	ReasonPublish  = "publish"
)

// ErrTaskRequired is returned by New when no task is supplied.
var ErrTaskRequired = errors.New("scheduler: task is required")

// Task rebuilds the site. reason is ReasonInterval or ReasonPublish.
type Task func(ctx context.Context, reason string) error

// JobInfo describes a scheduled job.
type JobInfo struct {
	Name    string
	Tags    []string
	NextRun time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the internal clock, used mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Scheduler wraps gocron. Jobs share one concurrency slot so a publish
// rebuild never overlaps the periodic one.
type Scheduler struct {
	cron   gocron.Scheduler
	task   Task
	logger interfaces.Logger
	now    func() time.Time

	mu  sync.Mutex
	ctx context.Context
}

// New creates a stopped scheduler.
func New(task Task, opts ...Option) (*Scheduler, error) {
	if task == nil {
		return nil, ErrTaskRequired
	}
	cron, err := gocron.NewScheduler(gocron.WithLimitConcurrentJobs(1, gocron.LimitModeWait))
	if err != nil {
		return nil, fmt.Errorf("scheduler: create gocron scheduler: %w", err)
	}
	s := &Scheduler{
		cron:   cron,
		task:   task,
		logger: logging.NoOp(),
		now:    time.Now,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// EveryInterval schedules the periodic rebuild, replacing any previous one.
// A non-positive interval removes it.
func (s *Scheduler) EveryInterval(interval time.Duration) error {
	s.cron.RemoveByTags(TagRebuild)
	if interval <= 0 {
		return nil
	}
	_, err := s.cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run, ReasonInterval, ""),
		gocron.WithName("blog.site.rebuild"),
		gocron.WithTags(TagRebuild),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduler: schedule rebuild: %w", err)
	}
	s.logger.Info("scheduler.rebuild.scheduled", "interval", interval.String())
	return nil
}

// PlanPublications replaces the publish jobs with one per post dated in the
// future. Drafts are ignored. It returns the number of jobs scheduled.
func (s *Scheduler) PlanPublications(collection *posts.Collection) (int, error) {
	s.cron.RemoveByTags(TagPublish)
	if collection == nil {
		return 0, nil
	}

	now := s.now()
	scheduled := 0
	var errs []error
	for _, post := range collection.All() {
		if post.Draft || !post.Date.After(now) {
			continue
		}
		_, err := s.cron.NewJob(
			gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(post.Date)),
			gocron.NewTask(s.run, ReasonPublish, post.Path),
			gocron.WithName("blog.post.publish:"+post.Path),
			gocron.WithTags(TagPublish, post.Path),
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("scheduler: schedule publish %s: %w", post.Path, err))
			continue
		}
		scheduled++
		s.logger.Debug("scheduler.publish.scheduled", "path", post.Path, "at", post.Date.Format(time.RFC3339))
	}
	return scheduled, errors.Join(errs...)
}

// Start begins running jobs. Tasks receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("scheduler.started", "jobs", len(s.cron.Jobs()))
}

// Stop shuts gocron down, waiting for a running task to finish.
func (s *Scheduler) Stop() error {
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("scheduler: shutdown: %w", err)
	}
	s.logger.Info("scheduler.stopped")
	return nil
}

// Jobs lists the scheduled jobs ordered by next run.
func (s *Scheduler) Jobs() []JobInfo {
	jobs := s.cron.Jobs()
	out := make([]JobInfo, 0, len(jobs))
	for _, job := range jobs {
		next, _ := job.NextRun()
		out = append(out, JobInfo{Name: job.Name(), Tags: job.Tags(), NextRun: next})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NextRun.Equal(out[j].NextRun) {
			return out[i].Name < out[j].Name
		}
		return out[i].NextRun.Before(out[j].NextRun)
	})
	return out
}

func (s *Scheduler) run(reason, path string) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	logger := s.logger
	if path != "" {
		logger = logging.WithFields(logger, map[string]any{"path": path})
	}
	logger.Info("scheduler.task.start", "reason", reason)
	started := time.Now()
	if err := s.task(ctx, reason); err != nil {
		logger.Error("scheduler.task.failed", "reason", reason, "error", err)
		return
	}
	logger.Info("scheduler.task.done", "reason", reason, "duration_ms", time.Since(started).Milliseconds())
}
