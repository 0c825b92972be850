package logging

import (
	"context"
	"testing"

	"github.com/goliatone/go-blog/pkg/interfaces"
)

type recordingLogger struct {
	fields   []map[string]any
	contexts []context.Context
}

func (r *recordingLogger) Trace(string, ...any) {}
func (r *recordingLogger) Debug(string, ...any) {}
func (r *recordingLogger) Info(string, ...any)  {}
func (r *recordingLogger) Warn(string, ...any)  {}
func (r *recordingLogger) Error(string, ...any) {}
func (r *recordingLogger) Fatal(string, ...any) {}

func (r *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	r.fields = append(r.fields, copied)
	return r
}

func (r *recordingLogger) WithContext(ctx context.Context) interfaces.Logger {
	r.contexts = append(r.contexts, ctx)
	return r
}

type stubProvider struct {
	requested []string
	logger    interfaces.Logger
}

func (s *stubProvider) GetLogger(name string) interfaces.Logger {
	s.requested = append(s.requested, name)
	return s.logger
}

func TestModuleLoggerFallsBackToNoOp(t *testing.T) {
	logger := ModuleLogger(nil, "blog.test")
	if _, ok := logger.(noopLogger); !ok {
		t.Fatalf("expected noopLogger fallback, got %T", logger)
	}
	logger = logger.WithContext(context.Background())
	logger = WithFields(logger, map[string]any{"foo": "bar"})
	logger.Debug("noop")
}

func TestModuleLoggerUsesProviderAndAnnotatesFields(t *testing.T) {
	rec := &recordingLogger{}
	provider := &stubProvider{logger: rec}

	logger := ModuleLogger(provider, generatorModule)

	if len(provider.requested) != 1 || provider.requested[0] != generatorModule {
		t.Fatalf("expected module %s, got %v", generatorModule, provider.requested)
	}
	if len(rec.fields) != 1 {
		t.Fatalf("expected module fields to be applied once, got %d", len(rec.fields))
	}
	if got, ok := rec.fields[0]["module"]; !ok || got != generatorModule {
		t.Fatalf("expected module field %s, got %v", generatorModule, rec.fields[0]["module"])
	}

	logger.Info("with provider")
}

func TestModuleLoggerDefaultsToRootModule(t *testing.T) {
	rec := &recordingLogger{}
	provider := &stubProvider{logger: rec}

	_ = ModuleLogger(provider, "")

	if len(provider.requested) != 1 || provider.requested[0] != rootModule {
		t.Fatalf("expected default module %s, got %v", rootModule, provider.requested)
	}
	if rec.fields[0]["module"] != rootModule {
		t.Fatalf("expected module field %s, got %v", rootModule, rec.fields[0]["module"])
	}
}

func TestNamedModuleLoggers(t *testing.T) {
	cases := map[string]func(interfaces.LoggerProvider) interfaces.Logger{
		markdownModule:  MarkdownLogger,
		generatorModule: GeneratorLogger,
		serverModule:    ServerLogger,
		watcherModule:   WatcherLogger,
		schedulerModule: SchedulerLogger,
		commandsModule:  CommandsLogger,
	}
	for module, fn := range cases {
		provider := &stubProvider{logger: &recordingLogger{}}
		_ = fn(provider)
		if len(provider.requested) == 0 || provider.requested[0] != module {
			t.Fatalf("expected %s request, got %v", module, provider.requested)
		}
	}
}

func TestWithPostContextSkipsEmptyValues(t *testing.T) {
	rec := &recordingLogger{}
	_ = WithPostContext(rec, "/hello", "  ", "render")

	if len(rec.fields) != 1 {
		t.Fatalf("expected a single WithFields call, got %d", len(rec.fields))
	}
	fields := rec.fields[0]
	if fields[fieldPostPath] != "/hello" || fields[fieldOperation] != "render" {
		t.Fatalf("unexpected fields %#v", fields)
	}
	if _, ok := fields[fieldSourcePath]; ok {
		t.Fatalf("expected empty source path to be skipped")
	}
}

func TestContextFieldsMerge(t *testing.T) {
	ctx := ContextWithFields(context.Background(), map[string]any{"a": 1})
	ctx = ContextWithFields(ctx, map[string]any{"b": 2})

	fields := ContextFields(ctx)
	if fields["a"] != 1 || fields["b"] != 2 {
		t.Fatalf("expected merged fields, got %#v", fields)
	}
	fields["a"] = 99
	if ContextFields(ctx)["a"] != 1 {
		t.Fatalf("expected ContextFields to return a copy")
	}
}

func TestContextWithFieldsOverrides(t *testing.T) {
	ctx := ContextWithFields(context.Background(), map[string]any{"trigger": "cli"})
	ctx = ContextWithFields(ctx, map[string]any{"trigger": "watch"})
	if got := ContextFields(ctx)["trigger"]; got != "watch" {
		t.Fatalf("expected later field to win, got %v", got)
	}
	if ContextFields(context.Background()) != nil {
		t.Fatalf("expected nil fields on a bare context")
	}
}

func TestFromContextBindsLogger(t *testing.T) {
	rec := &recordingLogger{}
	ctx := ContextWithFields(context.Background(), map[string]any{"trigger": "watch"})

	_ = FromContext(ctx, rec)
	if len(rec.contexts) != 1 || ContextFields(rec.contexts[0])["trigger"] != "watch" {
		t.Fatalf("expected logger bound to annotated context, got %v", rec.contexts)
	}
	if FromContext(ctx, nil) == nil {
		t.Fatalf("expected a no-op logger for nil input")
	}
}

func TestWithFieldsCopiesInput(t *testing.T) {
	rec := &recordingLogger{}
	fields := map[string]any{"route": "/hello"}
	_ = WithFields(rec, fields)
	fields["route"] = "/changed"
	if rec.fields[0]["route"] != "/hello" {
		t.Fatalf("expected WithFields to copy its input")
	}
}
