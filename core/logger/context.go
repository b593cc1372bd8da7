package logger

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

type ctxKey int

const (
	metaKey ctxKey = iota
	loggerKey
)

// Meta is the correlation data attached to every line logged with a context
// that carries it.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
	TraceID  string
}

// WithMeta stores m in ctx, replacing any previous metadata.
func WithMeta(ctx context.Context, m Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, metaKey, m)
}

// MetaFrom returns the metadata stored in ctx.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey).(Meta)
	return m
}

// WithUpdate records the identifiers of a Telegram update and derives its RID.
func WithUpdate(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	m := MetaFrom(ctx)
	m.UpdateID, m.UserID, m.ChatID = updateID, userID, chatID
	m.RID = UpdateRID(updateID, chatID, userID)
	return WithMeta(ctx, m)
}

// WithHandler records the handler serving the current update.
func WithHandler(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	m := MetaFrom(ctx)
	m.Handler = name
	return WithMeta(ctx, m)
}

// WithTrace records the id of a background operation such as a refresh cycle.
func WithTrace(ctx context.Context, traceID string) context.Context {
	m := MetaFrom(ctx)
	m.TraceID = traceID
	return WithMeta(ctx, m)
}

// UpdateRID encodes update, chat and user ids as dot separated base36.
func UpdateRID(updateID int, chatID, userID int64) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(int64(updateID), 36))
	b.WriteByte('.')
	b.WriteString(strconv.FormatInt(chatID, 36))
	b.WriteByte('.')
	b.WriteString(strconv.FormatInt(userID, 36))
	return b.String()
}

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return L
}

// appendMeta fills fields that the record itself did not set.
func appendMeta(ctx context.Context, f fields) {
	m := MetaFrom(ctx)
	f.setDefault("rid", m.RID)
	f.setDefault("trace_id", m.TraceID)
	f.setDefault("handler", m.Handler)
	if m.UpdateID != 0 {
		f.setDefault("update_id", int64(m.UpdateID))
	}
	if m.UserID != 0 {
		f.setDefault("user_id", m.UserID)
	}
	if m.ChatID != 0 {
		f.setDefault("chat_id", m.ChatID)
	}
}
