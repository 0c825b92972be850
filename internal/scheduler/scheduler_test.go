package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-blog/internal/posts"
)

type recorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *recorder) task(_ context.Context, reason string) error {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
	return nil
}

func (r *recorder) count(reason string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.reasons {
		if got == reason {
			n++
		}
	}
	return n
}

func TestNewRequiresTask(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrTaskRequired)
}

func TestPlanPublicationsSchedulesFuturePosts(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := &recorder{}
	s, err := New(rec.task, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	collection := mustCollection(t, []*posts.Post{
		{Path: "/past", Title: "Past", Date: now.Add(-time.Hour)},
		{Path: "/future", Title: "Future", Date: now.Add(48 * time.Hour)},
		{Path: "/later", Title: "Later", Date: now.Add(24 * time.Hour)},
		{Path: "/draft", Title: "Draft", Date: now.Add(time.Hour), Draft: true},
	})

	scheduled, err := s.PlanPublications(collection)
	require.NoError(t, err)
	assert.Equal(t, 2, scheduled)

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	names := []string{jobs[0].Name, jobs[1].Name}
	assert.ElementsMatch(t, []string{"blog.post.publish:/later", "blog.post.publish:/future"}, names)
	assert.Contains(t, jobs[0].Tags, TagPublish)

	// Planning again replaces the previous publish jobs.
	scheduled, err = s.PlanPublications(mustCollection(t, nil))
	require.NoError(t, err)
	assert.Equal(t, 0, scheduled)
	assert.Empty(t, s.Jobs())
}

func TestPlanPublicationsNilCollection(t *testing.T) {
	s, err := New((&recorder{}).task)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	n, err := s.PlanPublications(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPublishJobRunsAtPostDate(t *testing.T) {
	rec := &recorder{}
	s, err := New(rec.task)
	require.NoError(t, err)

	collection := mustCollection(t, []*posts.Post{
		{Path: "/soon", Title: "Soon", Date: time.Now().Add(150 * time.Millisecond)},
	})
	n, err := s.PlanPublications(collection)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	s.Start(context.Background())
	t.Cleanup(func() { _ = s.Stop() })

	require.Eventually(t, func() bool { return rec.count(ReasonPublish) == 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestEveryIntervalRunsAndReplaces(t *testing.T) {
	rec := &recorder{}
	s, err := New(rec.task)
	require.NoError(t, err)

	require.NoError(t, s.EveryInterval(time.Hour))
	require.NoError(t, s.EveryInterval(50*time.Millisecond))
	require.Len(t, s.Jobs(), 1)

	s.Start(context.Background())
	t.Cleanup(func() { _ = s.Stop() })

	require.Eventually(t, func() bool { return rec.count(ReasonInterval) >= 2 }, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, s.EveryInterval(0))
	assert.Empty(t, s.Jobs())
}

func TestTasksSkippedAfterContextCancel(t *testing.T) {
	rec := &recorder{}
	s, err := New(rec.task)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
	t.Cleanup(func() { _ = s.Stop() })

	s.run(ReasonInterval, "")
	assert.Zero(t, rec.count(ReasonInterval))
}

func mustCollection(t *testing.T, items []*posts.Post) *posts.Collection {
	t.Helper()
	collection, err := posts.NewCollection(items)
	require.NoError(t, err)
	return collection
}
