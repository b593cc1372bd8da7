package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/m3rciful/combogate/core/logger"
	"github.com/m3rciful/combogate/core/telegram/format"
	"github.com/m3rciful/combogate/internal/metrics"
	"github.com/m3rciful/combogate/internal/state"
)

// DefaultSchedule is the refresh period of the plain-text source.
const DefaultSchedule = "@every 24h"

// DateLayout formats the {date} placeholder.
const DateLayout = "02.01.2006"

const (
	updatedTemplate      = "✅ **Combo updated** {date}\nSource: {source}"
	fetchFailedTemplate  = "⚠️ **Combo refresh failed** {date}\nSource: {source}\nError: `{error}`"
	unconfiguredTemplate = "ℹ️ Auto refresh is off: no source URL is set.\nUse /seturl <url> to enable it."
)

// Outcome classifies a refresh cycle.
type Outcome string

const (
	OutcomeUpdated            Outcome = "updated"
	OutcomeUnchanged          Outcome = "unchanged"
	OutcomeEmpty              Outcome = "empty"
	OutcomeFetchFailed        Outcome = "fetch_failed"
	OutcomeUnconfigured       Outcome = "unconfigured"
	OutcomeReminderSuppressed Outcome = "reminder_suppressed"
)

// Report describes one refresh cycle.
type Report struct {
	TraceID  string
	Outcome  Outcome
	Source   string
	Notified bool
	Err      error
	Took     time.Duration
}

// AdminNotifier delivers MarkdownV2 text to the administrator.
type AdminNotifier interface {
	NotifyAdmin(ctx context.Context, text string) error
}

// Store is the part of the state controller the scheduler needs.
type Store interface {
	Snapshot() state.GlobalContentState
	UpdateContentIfChanged(ctx context.Context, content string) (bool, error)
}

// Options configure a Scheduler.
type Options struct {
	Store    Store
	Source   Source
	Notifier AdminNotifier
	// Schedule decides the next run; nil means DefaultSchedule.
	Schedule   cron.Schedule
	RunOnStart bool
	Clock      Clock
	Location   *time.Location
}

// Scheduler refreshes the stored content from the configured source URL.
// Periodic and manual cycles never overlap.
type Scheduler struct {
	store    Store
	source   Source
	notifier AdminNotifier
	schedule cron.Schedule
	onStart  bool
	clock    Clock
	loc      *time.Location

	cycleMu sync.Mutex
	// reminder epoch: the content value the unconfigured reminder was sent for
	reminded    bool
	remindedFor string

	runMu   sync.Mutex
	done    chan struct{}
	started bool
}

// ParseSchedule parses a cron spec or descriptor such as "@every 3h".
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSchedule
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("refresh: parse schedule %q: %w", spec, err)
	}
	return sched, nil
}

// NewScheduler validates opts and applies defaults.
func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Store == nil {
		return nil, errors.New("refresh: store is required")
	}
	if opts.Source == nil {
		return nil, errors.New("refresh: source is required")
	}
	if opts.Notifier == nil {
		return nil, errors.New("refresh: notifier is required")
	}
	s := &Scheduler{
		store:    opts.Store,
		source:   opts.Source,
		notifier: opts.Notifier,
		schedule: opts.Schedule,
		onStart:  opts.RunOnStart,
		clock:    opts.Clock,
		loc:      opts.Location,
	}
	if s.schedule == nil {
		s.schedule = cron.Every(24 * time.Hour)
	}
	if s.clock == nil {
		s.clock = SystemClock()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s, nil
}

// Start launches Run in a background goroutine. Wait blocks until it returns.
func (s *Scheduler) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.Run(ctx)
	}()
}

// Wait blocks until a started scheduler has stopped.
func (s *Scheduler) Wait() {
	s.runMu.Lock()
	done := s.done
	s.runMu.Unlock()
	if done != nil {
		<-done
	}
}

// Run executes cycles on the schedule until ctx is done. An in-flight cycle
// is finished before returning; its fetch is bounded by the source timeout.
func (s *Scheduler) Run(ctx context.Context) {
	logger.Refresh.Info("refresh scheduler started",
		slog.String("event", "refresh.start"),
		slog.Bool("run_on_start", s.onStart),
	)
	defer logger.Refresh.Info("refresh scheduler stopped", slog.String("event", "refresh.stop"))

	if s.onStart {
		s.cycle(ctx, "start")
	}
	for {
		now := s.clock.Now()
		next := s.schedule.Next(now)
		logger.Refresh.Debug("next refresh scheduled",
			slog.String("event", "refresh.schedule"),
			slog.Time("next_run", next),
		)
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(next.Sub(now)):
		}
		if ctx.Err() != nil {
			return
		}
		s.cycle(ctx, "schedule")
	}
}

// Trigger runs one cycle on admin request.
func (s *Scheduler) Trigger(ctx context.Context) Report {
	return s.cycle(ctx, "manual")
}

// RunOnce runs one cycle without a trigger label.
func (s *Scheduler) RunOnce(ctx context.Context) Report {
	return s.cycle(ctx, "once")
}

func (s *Scheduler) cycle(ctx context.Context, trigger string) Report {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	traceID := uuid.NewString()
	ctx = logger.WithTrace(ctx, traceID)
	log := logger.Refresh.With(slog.String("trace_id", traceID), slog.String("trigger", trigger))

	start := time.Now()
	rep := s.attempt(ctx, log)
	rep.TraceID = traceID
	rep.Took = time.Since(start)
	metrics.RefreshCycles.WithLabelValues(string(rep.Outcome), trigger).Inc()

	attrs := []slog.Attr{
		slog.String("event", "refresh.cycle"),
		slog.String("outcome", string(rep.Outcome)),
		slog.Bool("notified", rep.Notified),
		slog.Duration("duration", logger.RoundMS(rep.Took)),
	}
	level := slog.LevelInfo
	if rep.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("err", rep.Err.Error()))
	}
	log.LogAttrs(ctx, level, "refresh cycle finished", attrs...)
	return rep
}

func (s *Scheduler) attempt(ctx context.Context, log *slog.Logger) Report {
	snap := s.store.Snapshot()
	if snap.SourceURL == "" {
		return s.remind(ctx, log, snap.Content)
	}
	s.reminded = false
	rep := Report{Source: snap.SourceURL}

	text, err := s.source.Fetch(ctx, snap.SourceURL)
	if err != nil {
		rep.Outcome = OutcomeFetchFailed
		rep.Err = err
		rep.Notified = s.notify(ctx, log, format.Render(fetchFailedTemplate, format.Vars{
			"date":   s.today(),
			"source": snap.SourceURL,
			"error":  err.Error(),
		}))
		return rep
	}

	text = trimContent(text)
	if text == "" {
		log.Warn("source returned empty content",
			slog.String("event", "refresh.fetch"),
			slog.String("source", snap.SourceURL),
		)
		rep.Outcome = OutcomeEmpty
		rep.Err = ErrEmptyContent
		return rep
	}

	changed, err := s.store.UpdateContentIfChanged(ctx, text)
	if !changed {
		rep.Outcome = OutcomeUnchanged
		return rep
	}
	if err != nil {
		// kept in memory; the next successful save persists it
		rep.Err = err
	}
	rep.Outcome = OutcomeUpdated
	rep.Notified = s.notify(ctx, log, format.Render(updatedTemplate, format.Vars{
		"date":   s.today(),
		"source": snap.SourceURL,
	}))
	return rep
}

func (s *Scheduler) remind(ctx context.Context, log *slog.Logger, content string) Report {
	if s.reminded && s.remindedFor == content {
		return Report{Outcome: OutcomeReminderSuppressed}
	}
	rep := Report{Outcome: OutcomeUnconfigured}
	if s.notify(ctx, log, format.EscapeSpans(unconfiguredTemplate)) {
		s.reminded = true
		s.remindedFor = content
		rep.Notified = true
	}
	return rep
}

func (s *Scheduler) notify(ctx context.Context, log *slog.Logger, text string) bool {
	if err := s.notifier.NotifyAdmin(ctx, text); err != nil {
		log.Error("admin notification failed",
			slog.String("event", "refresh.notify"),
			slog.String("err", err.Error()),
		)
		return false
	}
	return true
}

func (s *Scheduler) today() string {
	return s.clock.Now().In(s.loc).Format(DateLayout)
}
