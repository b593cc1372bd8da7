// Package logger provides the process-wide structured logger. Lines carry a
// stable key order, update and trace metadata taken from the context, and a
// component attribute set by the child loggers below.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/combogate/core/buildinfo"
	coreconfig "github.com/m3rciful/combogate/core/config"
)

var (
	mu          sync.Mutex
	initialized bool
	closed      bool
	out         *asyncWriter
	closers     []io.Closer

	level       slog.LevelVar
	debugSample = newSampler(1, 50)
	traceAll    bool

	// L is the root logger. Prefer a component logger or FromContext.
	L *slog.Logger

	// DB logs database and redis connectivity.
	DB *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// TWire logs handler and route registration.
	TWire *slog.Logger
	// Store logs state persistence.
	Store *slog.Logger
	// Refresh logs content refresh cycles.
	Refresh *slog.Logger
	// Pay logs invoice creation and polling.
	Pay *slog.Logger
	// App logs process lifecycle.
	App *slog.Logger
)

func init() {
	L = slog.Default()
	deriveComponents()
}

// Init installs the configured handler as the slog default. Calls after the
// first successful one are no-ops.
func Init(cfg *coreconfig.Config) error {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return nil
	}

	s := settingsFrom(cfg)
	sinks, cl := openSinks(s)
	level.Set(s.level)
	debugSample.Set(s.sampleKeep, s.sampleOf)
	traceAll = envFlag("LOG_TRACE") || envFlag("TRACE")

	out = newAsyncWriter(sinks)
	closers = cl
	L = slog.New(newHandler(handlerOptions{
		level:  &level,
		out:    out,
		format: s.format,
		order:  s.order,
	}))
	slog.SetDefault(L)
	deriveComponents()
	initialized = true

	App.LogAttrs(context.Background(), slog.LevelInfo, "startup",
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Revision()),
		slog.String("build_time", buildinfo.Date),
		slog.String("profile", s.profile),
	)
	return nil
}

func deriveComponents() {
	DB = Component("db")
	TG = Component("tg")
	TWire = Component("tg.wire")
	Store = Component("store")
	Refresh = Component("refresh")
	Pay = Component("payment")
	App = Component("app")
}

// Shutdown drains buffered lines and closes file sinks. It is safe to call
// more than once.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if out != nil {
		errs = append(errs, out.Close())
	}
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Component returns a child of L tagged with the component name.
func Component(name string) *slog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return L
	}
	return L.With("component", name)
}

// Log writes one event. A nil logger falls back to the one carried by ctx.
func Log(ctx context.Context, l *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if l == nil {
		l = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	l.LogAttrs(ctx, lvl, "", attrs...)
}

// Debug logs a debug event for component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

// Info logs an info event for component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

// Warn logs a warning event for component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

// Error logs an error event for component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, Component(component), slog.LevelError, event, attrs...)
}

// DebugSampled reports whether a high volume debug event should be written.
// LOG_TRACE=1 disables sampling.
func DebugSampled() bool {
	return traceAll || debugSample.Allow()
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
