package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type format int

const (
	formatJSON format = iota
	formatText
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

type handlerOptions struct {
	level  slog.Leveler
	out    lineSink
	format format
	order  []string
}

// handler renders records as flat key/value lines. Group names become
// dotted key prefixes and durations are written in milliseconds.
type handler struct {
	opts   *handlerOptions
	pre    []field
	prefix string
}

type field struct {
	key string
	val any
}

type fields map[string]any

func (f fields) setDefault(key string, val any) {
	if s, ok := val.(string); ok && s == "" {
		return
	}
	if _, ok := f[key]; !ok {
		f[key] = val
	}
}

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func newHandler(opts handlerOptions) *handler {
	if opts.level == nil {
		opts.level = slog.LevelInfo
	}
	if opts.order == nil {
		opts.order = defaultKeyOrder
	}
	return &handler{opts: &opts}
}

func (h *handler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.opts.level.Level()
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	f := make(fields, 16+len(h.pre))
	f["ts"] = r.Time.UTC().Format(tsLayout)
	f["level"] = levelName(r.Level)
	for _, p := range h.pre {
		f[p.key] = p.val
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(h.prefix, a, func(fd field) { f[fd.key] = fd.val })
		return true
	})
	appendMeta(ctx, f)

	if f.str("event") == "" {
		f["event"] = "unknown"
		if r.Message != "" {
			f["event"] = r.Message
		}
	} else if r.Message != "" {
		f.setDefault("msg", r.Message)
	}
	f.setDefault("component", "app")
	normalizeEnums(f)
	for k, v := range f {
		if v == nil || v == "" {
			delete(f, k)
		}
	}

	var line []byte
	if h.opts.format == formatJSON {
		var err error
		if line, err = encodeJSON(f, h.opts.order); err != nil {
			return err
		}
	} else {
		line = encodeText(f, h.opts.order)
	}
	return h.opts.out.Write(append(line, '\n'))
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.pre = slices.Clone(h.pre)
	for _, a := range attrs {
		flatten(h.prefix, a, func(fd field) { clone.pre = append(clone.pre, fd) })
	}
	return &clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func flatten(prefix string, a slog.Attr, emit func(field)) {
	a.Value = a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			flatten(key, child, emit)
		}
		return
	}
	if key == "" {
		return
	}
	if fd, ok := plainValue(key, a.Value); ok {
		emit(fd)
	}
}

// plainValue converts v into a JSON friendly value; durations move to a
// "_ms" key.
func plainValue(key string, v slog.Value) (field, bool) {
	switch v.Kind() {
	case slog.KindString:
		return field{key, strings.TrimSpace(v.String())}, true
	case slog.KindBool:
		return field{key, v.Bool()}, true
	case slog.KindInt64:
		return field{key, v.Int64()}, true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return field{key, int64(u)}, true
		}
		return field{key, v.Uint64()}, true
	case slog.KindFloat64:
		return field{key, v.Float64()}, true
	case slog.KindDuration:
		return field{durationKey(key), RoundMS(v.Duration()).Milliseconds()}, true
	case slog.KindTime:
		return field{key, v.Time().UTC().Format(time.RFC3339Nano)}, true
	}
	switch x := v.Any().(type) {
	case nil:
		return field{}, false
	case error:
		return field{key, SanitizeLimit(x.Error(), 512)}, true
	case time.Duration:
		return field{durationKey(key), RoundMS(x).Milliseconds()}, true
	case fmt.Stringer:
		return field{key, x.String()}, true
	default:
		return field{key, fmt.Sprint(x)}, true
	}
}

func durationKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	}
	return "ERROR"
}

// orderedKeys lists keys from order first, then the rest alphabetically.
func orderedKeys(f fields, order []string) []string {
	keys := make([]string, 0, len(f))
	seen := make(map[string]bool, len(f))
	for _, k := range order {
		if _, ok := f[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(f)-len(keys))
	for k := range f {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func encodeJSON(f fields, order []string) ([]byte, error) {
	line := []byte{'{'}
	for i, k := range orderedKeys(f, order) {
		v, err := json.Marshal(f[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			line = append(line, ',')
		}
		line = strconv.AppendQuote(line, k)
		line = append(line, ':')
		line = append(line, v...)
	}
	return append(line, '}'), nil
}

func encodeText(f fields, order []string) []byte {
	var line []byte
	for i, k := range orderedKeys(f, order) {
		if i > 0 {
			line = append(line, ' ')
		}
		line = append(line, k...)
		line = append(line, '=')
		s := fmt.Sprint(f[k])
		if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
			line = strconv.AppendQuote(line, s)
		} else {
			line = append(line, s...)
		}
	}
	return line
}
