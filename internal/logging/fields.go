package logging

import (
	"context"
	"maps"

	"github.com/goliatone/go-blog/pkg/interfaces"
)

type fieldsKey struct{}

// ContextWithFields annotates ctx with logging fields. Fields already on ctx
// are kept unless overridden.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil || len(fields) == 0 {
		return ctx
	}
	return context.WithValue(ctx, fieldsKey{}, mergeFields(fieldsFrom(ctx), fields))
}

// ContextFields returns a copy of the fields attached to ctx.
func ContextFields(ctx context.Context) map[string]any {
	return mergeFields(fieldsFrom(ctx))
}

// WithFields attaches fields when logger implements interfaces.FieldsLogger
// and returns it unchanged otherwise.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	fl, ok := logger.(interfaces.FieldsLogger)
	if !ok {
		return logger
	}
	return fl.WithFields(mergeFields(fields))
}

// FromContext binds logger to ctx so providers that read context fields,
// like the console provider, include them.
func FromContext(ctx context.Context, logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		logger = NoOp()
	}
	if ctx == nil {
		return logger
	}
	return logger.WithContext(ctx)
}

func fieldsFrom(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).(map[string]any)
	return fields
}

// mergeFields copies sets left to right into a new map. It returns nil when
// every set is empty.
func mergeFields(sets ...map[string]any) map[string]any {
	size := 0
	for _, set := range sets {
		size += len(set)
	}
	if size == 0 {
		return nil
	}
	out := make(map[string]any, size)
	for _, set := range sets {
		maps.Copy(out, set)
	}
	return out
}
