package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

type testMessage struct{}

func (testMessage) Type() string { return "blog.test.message" }

func (testMessage) Validate() error { return nil }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "blog.test.invalid" }

func (invalidMessage) Validate() error {
	return errors.New("invalid")
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []string
	fields  map[string]any
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, level+":"+msg)
}

func (l *recordingLogger) Trace(msg string, _ ...any) { l.record("trace", msg) }
func (l *recordingLogger) Debug(msg string, _ ...any) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.record("error", msg) }
func (l *recordingLogger) Fatal(msg string, _ ...any) { l.record("fatal", msg) }

func (l *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fields == nil {
		l.fields = map[string]any{}
	}
	for k, v := range fields {
		l.fields[k] = v
	}
	return l
}

func (l *recordingLogger) WithContext(context.Context) interfaces.Logger { return l }

func TestHandlerExecuteSuccess(t *testing.T) {
	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked")
	}
}

func TestHandlerValidationShortCircuitsExecution(t *testing.T) {
	called := false
	h := NewHandler[invalidMessage](func(ctx context.Context, msg invalidMessage) error {
		called = true
		return nil
	})

	err := h.Execute(context.Background(), invalidMessage{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when validation fails")
	}
}

func TestHandlerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	err := h.Execute(ctx, testMessage{})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when context is cancelled")
	}
}

func TestHandlerWrapsExecutionError(t *testing.T) {
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return errors.New("boom")
	})

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected wrapped execution error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if !goerrors.HasCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category to propagate, got %v", err)
	}
}

func TestHandlerCategorisesPostErrors(t *testing.T) {
	notFound := NewHandler[testMessage](func(context.Context, testMessage) error {
		return fmt.Errorf("generator: %w: /missing", posts.ErrNotFound)
	})
	if err := notFound.Execute(context.Background(), testMessage{}); !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for missing post, got %v", err)
	}

	duplicate := NewHandler[testMessage](func(context.Context, testMessage) error {
		return fmt.Errorf("load: %w", posts.ErrDuplicatePath)
	})
	if err := duplicate.Execute(context.Background(), testMessage{}); !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category for duplicate path, got %v", err)
	}
}

func TestHandlerHonoursTimeoutOption(t *testing.T) {
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
			return nil
		}
	}, WithTimeout[testMessage](10*time.Millisecond))

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for timeout, got %v", err)
	}
}

func TestHandlerLogsWithFieldsAndTelemetry(t *testing.T) {
	logger := &recordingLogger{}
	var captured TelemetryInfo
	h := NewHandler[testMessage](
		func(context.Context, testMessage) error { return nil },
		WithLogger[testMessage](logger),
		WithOperation[testMessage]("site.build"),
		WithMessageFields(func(testMessage) map[string]any {
			return map[string]any{"dry_run": true}
		}),
		WithTelemetry(func(_ context.Context, _ testMessage, info TelemetryInfo) {
			captured = info
		}),
	)

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured.Status != TelemetryStatusSuccess {
		t.Fatalf("expected success telemetry, got %s", captured.Status)
	}
	if captured.Command != "blog.test.message" || captured.Operation != "site.build" {
		t.Fatalf("unexpected telemetry identity: %+v", captured)
	}
	if logger.fields["dry_run"] != true || logger.fields["operation"] != "site.build" {
		t.Fatalf("expected message fields on logger, got %v", logger.fields)
	}
}

func TestDefaultTelemetryLogsOutcome(t *testing.T) {
	logger := &recordingLogger{}
	telemetry := DefaultTelemetry[testMessage](logger)

	telemetry(context.Background(), testMessage{}, TelemetryInfo{Status: TelemetryStatusSuccess})
	telemetry(context.Background(), testMessage{}, TelemetryInfo{Status: TelemetryStatusFailed, Error: errors.New("x")})
	telemetry(context.Background(), testMessage{}, TelemetryInfo{Status: TelemetryStatusContextError, Error: context.Canceled})

	want := []string{"info:command.execute.success", "error:command.execute.failed", "error:command.execute.context_error"}
	if len(logger.entries) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), logger.entries)
	}
	for i := range want {
		if logger.entries[i] != want[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, want[i], logger.entries[i])
		}
	}
}

func TestCommandLoggerFallsBackToNoOp(t *testing.T) {
	if CommandLogger(nil, "") == nil {
		t.Fatal("expected a logger")
	}
}

func TestHandlerWithoutTimeoutHasNoDeadline(t *testing.T) {
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		if _, ok := ctx.Deadline(); ok {
			return errors.New("unexpected deadline")
		}
		return nil
	}, WithTimeout[testMessage](0))

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
