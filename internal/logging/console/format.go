package console

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// collectFields merges persistent, context and call-site fields. Later sets
// win. Call-site args are key/value pairs; a value without a usable key is
// stored as arg<N>.
func collectFields(persistent, fromCtx map[string]any, args []any) map[string]any {
	out := make(map[string]any, len(persistent)+len(fromCtx)+len(args)/2)
	maps.Copy(out, persistent)
	maps.Copy(out, fromCtx)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			out["arg"+strconv.Itoa(i/2)] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok || key == "" {
			key = "arg" + strconv.Itoa(i/2)
		}
		out[key] = args[i+1]
	}
	return out
}

func writeFields(b *strings.Builder, fields map[string]any, keyStyle func(string) string) {
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		b.WriteByte(' ')
		b.WriteString(keyStyle(key + "="))
		b.WriteString(formatValue(fields[key]))
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return quote(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return v.String()
	case error:
		return quote(v.Error())
	case fmt.Stringer:
		return quote(v.String())
	case bool:
		return strconv.FormatBool(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	default:
		return quote(fmt.Sprint(v))
	}
}

func quote(value string) string {
	if value == "" {
		return `""`
	}
	if strings.ContainsFunc(value, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(value)
	}
	return value
}
