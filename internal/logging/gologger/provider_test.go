package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-blog/internal/logging"
)

func TestNewProviderCreatesLogger(t *testing.T) {
	for _, format := range Formats {
		p, err := NewProvider(Config{
			Level:  "debug",
			Format: format,
		})
		if err != nil {
			t.Fatalf("NewProvider(%s) returned error: %v", format, err)
		}

		logger := p.GetLogger("blog.generator")
		if logger == nil {
			t.Fatal("expected logger, got nil")
		}
		logger.Debug("adapter.initialised", "format", format)
	}
}

func TestNewProviderRejectsUnknownFormat(t *testing.T) {
	if _, err := NewProvider(Config{Format: "xml"}); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestNilProviderReturnsNoOp(t *testing.T) {
	var p *Provider
	logger := p.GetLogger("blog")
	logger.Info("dropped")
}

func TestAdapterDelegatesToUnderlyingLogger(t *testing.T) {
	stub := &stubLogger{}
	adapted := wrap(stub)

	adapted.Trace("trace", "key", "value")
	adapted.Debug("debug")
	adapted.Info("info")
	adapted.Warn("warn")
	adapted.Error("error")
	adapted.Fatal("fatal")

	fields := map[string]any{"route": "/hello"}
	child := adapted.(*adapter).WithFields(fields)
	if child == nil {
		t.Fatal("expected WithFields to return logger")
	}

	fields["route"] = "/changed"
	if len(stub.fields) != 1 {
		t.Fatalf("expected fields to be recorded once, got %d", len(stub.fields))
	}
	if stub.fields[0]["route"] != "/hello" {
		t.Fatalf("expected fields to be cloned, got %v", stub.fields[0]["route"])
	}

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	adapted.WithContext(ctx)
	if len(stub.contexts) != 1 || stub.contexts[0] != ctx {
		t.Fatalf("expected context propagation, got %#v", stub.contexts)
	}

	wantCalls := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	if len(stub.calls) != len(wantCalls) {
		t.Fatalf("expected %d calls, got %d", len(wantCalls), len(stub.calls))
	}
	for i, want := range wantCalls {
		if stub.calls[i] != want {
			t.Fatalf("call %d: expected %q, got %q", i, want, stub.calls[i])
		}
	}
}

func TestWithContextCopiesBlogFields(t *testing.T) {
	stub := &stubLogger{}
	adapted := wrap(stub)

	ctx := logging.ContextWithFields(context.Background(), map[string]any{"trigger": "watch"})
	adapted.WithContext(ctx)

	if len(stub.contexts) != 1 {
		t.Fatalf("expected context propagation, got %d", len(stub.contexts))
	}
	if len(stub.fields) != 1 || stub.fields[0]["trigger"] != "watch" {
		t.Fatalf("expected context fields copied, got %#v", stub.fields)
	}
}

func TestCompactDropsBlankFocus(t *testing.T) {
	got := compact([]string{" blog.generator ", "", "  "})
	if len(got) != 1 || got[0] != "blog.generator" {
		t.Fatalf("unexpected focus %v", got)
	}
}

func TestNormalizeLevel(t *testing.T) {
	if got := normalizeLevel("WARNING"); got != glog.Warn {
		t.Fatalf("expected warn level, got %q", got)
	}
	if got := normalizeLevel("chatty"); got != "" {
		t.Fatalf("expected unknown level to be ignored, got %q", got)
	}
}

type stubLogger struct {
	calls    []string
	fields   []map[string]any
	contexts []context.Context
}

var _ glog.Logger = (*stubLogger)(nil)
var _ glog.FieldsLogger = (*stubLogger)(nil)

func (s *stubLogger) Trace(string, ...any) { s.calls = append(s.calls, "trace") }
func (s *stubLogger) Debug(string, ...any) { s.calls = append(s.calls, "debug") }
func (s *stubLogger) Info(string, ...any)  { s.calls = append(s.calls, "info") }
func (s *stubLogger) Warn(string, ...any)  { s.calls = append(s.calls, "warn") }
func (s *stubLogger) Error(string, ...any) { s.calls = append(s.calls, "error") }
func (s *stubLogger) Fatal(string, ...any) { s.calls = append(s.calls, "fatal") }

func (s *stubLogger) WithContext(ctx context.Context) glog.Logger {
	s.contexts = append(s.contexts, ctx)
	return s
}

func (s *stubLogger) WithFields(fields map[string]any) glog.Logger {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.fields = append(s.fields, copied)
	return s
}
