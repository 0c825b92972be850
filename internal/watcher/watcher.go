// Package watcher turns fsnotify events under the content, template and
// static directories into debounced batches that trigger site rebuilds.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// DefaultDebounce groups editor save bursts into one rebuild.
const DefaultDebounce = 200 * time.Millisecond

// ErrNoPaths is returned by Run when nothing was added to the watcher.
var ErrNoPaths = errors.New("watcher: no paths to watch")

// EventType represents the type of file change.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventRenamed
)

// String returns the string representation of the EventType.
func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one file change after filtering.
type Event struct {
	Type EventType
	Path string
}

// Filter reports whether a path should produce events.
type Filter func(path string) bool

// Handler receives a debounced batch of changes. Batches are deduplicated by
// path and sorted.
type Handler func(ctx context.Context, events []Event) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a batch is delivered.
func WithDebounce(delay time.Duration) Option {
	return func(w *Watcher) {
		if delay > 0 {
			w.delay = delay
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithFilter appends a filter. Every filter must accept a path.
func WithFilter(filter Filter) Option {
	return func(w *Watcher) {
		if filter != nil {
			w.filters = append(w.filters, filter)
		}
	}
}

// Watcher watches directory trees recursively.
type Watcher struct {
	fsw     *fsnotify.Watcher
	delay   time.Duration
	logger  interfaces.Logger
	filters []Filter

	mu       sync.Mutex
	handlers []Handler
	roots    []string
}

// New creates a watcher backed by fsnotify.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	w := &Watcher{
		fsw:    fsw,
		delay:  DefaultDebounce,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// OnChange registers a batch handler.
func (w *Watcher) OnChange(handler Handler) {
	if handler == nil {
		return
	}
	w.mu.Lock()
	w.handlers = append(w.handlers, handler)
	w.mu.Unlock()
}

// AddRecursive watches root and every directory below it. Hidden directories
// are skipped. A missing root is ignored so optional directories can be
// passed unconditionally.
func (w *Watcher) AddRecursive(root string) error {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.Debug("watcher.path.missing", "path", root)
		return nil
	}
	if err != nil {
		return fmt.Errorf("watcher: stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return w.add(root)
	}
	w.mu.Lock()
	w.roots = append(w.roots, root)
	w.mu.Unlock()
	return w.addTree(root)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.add(path)
	})
}

func (w *Watcher) add(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("watcher: add %s: %w", path, err)
	}
	w.logger.Debug("watcher.path.added", "path", path)
	return nil
}

// Roots returns the directories registered through AddRecursive.
func (w *Watcher) Roots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// Run processes events until ctx is cancelled, then closes the underlying
// fsnotify watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	if len(w.fsw.WatchList()) == 0 {
		return ErrNoPaths
	}

	batches := make(chan []Event, 1)
	deb := newDebouncer(w.delay, func(events []Event) {
		select {
		case batches <- events:
		case <-ctx.Done():
		}
	})
	defer deb.stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case events := <-batches:
				w.dispatch(ctx, events)
			}
		}
	}()

	w.logger.Info("watcher.started", "paths", len(w.fsw.WatchList()), "debounce_ms", w.delay.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			w.logger.Info("watcher.stopped")
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				wg.Wait()
				return nil
			}
			if event, keep := w.translate(ev); keep {
				deb.add(event)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				wg.Wait()
				return nil
			}
			w.logger.Warn("watcher.error", "error", err)
		}
	}
}

func (w *Watcher) translate(ev fsnotify.Event) (Event, bool) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !isHidden(filepath.Base(ev.Name)) {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watcher.path.add_failed", "path", ev.Name, "error", err)
			}
			return Event{}, false
		}
	}
	if !w.accepts(ev.Name) {
		return Event{}, false
	}

	eventType := EventModified
	switch {
	case ev.Has(fsnotify.Create):
		eventType = EventCreated
	case ev.Has(fsnotify.Write):
		eventType = EventModified
	case ev.Has(fsnotify.Remove):
		eventType = EventDeleted
	case ev.Has(fsnotify.Rename):
		eventType = EventRenamed
	case ev.Has(fsnotify.Chmod):
		return Event{}, false
	}
	return Event{Type: eventType, Path: ev.Name}, true
}

func (w *Watcher) accepts(path string) bool {
	for _, filter := range w.filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

func (w *Watcher) dispatch(ctx context.Context, events []Event) {
	w.mu.Lock()
	handlers := append([]Handler(nil), w.handlers...)
	w.mu.Unlock()

	w.logger.Debug("watcher.batch", "events", len(events))
	for _, handler := range handlers {
		if err := handler(ctx, events); err != nil {
			w.logger.Error("watcher.handler.failed", "events", len(events), "error", err)
		}
	}
}

// debouncer collects events and flushes them once no new event arrived
// for delay.
type debouncer struct {
	delay   time.Duration
	flushFn func([]Event)

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]Event
}

func newDebouncer(delay time.Duration, flush func([]Event)) *debouncer {
	return &debouncer{
		delay:   delay,
		flushFn: flush,
		pending: make(map[string]Event),
	}
}

func (d *debouncer) add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[event.Path] = event
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	events := make([]Event, 0, len(d.pending))
	for _, event := range d.pending {
		events = append(events, event)
	}
	d.pending = make(map[string]Event)
	d.mu.Unlock()

	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	d.flushFn(events)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
