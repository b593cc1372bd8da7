// Package sender runs outbound Bot API calls on a small worker pool so update
// handlers return without waiting on Telegram. Transient network failures,
// server errors and flood waits are retried within a per-job deadline.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/combogate/core/logger"
	"github.com/m3rciful/combogate/core/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("sender: dispatcher closed")
	// ErrFull is returned by Enqueue when the queue has no room.
	ErrFull = errors.New("sender: queue full")
)

// Options sizes the pool. Zero values pick defaults.
type Options struct {
	QueueSize int
	Workers   int
	// Retries is the number of extra attempts after the first.
	Retries int
	Backoff time.Duration
	// Deadline bounds one job including its retries and flood waits.
	Deadline time.Duration
	// Observe is told the outcome of every finished job.
	Observe func(action string, err error)
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher is a bounded queue drained by a fixed set of workers.
type Dispatcher struct {
	opts   Options
	policy netutil.Policy
	jobs   chan job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	failures atomic.Uint64
}

// New starts the workers.
func New(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Deadline <= 0 {
		opts.Deadline = 15 * time.Second
	}
	d := &Dispatcher{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
		policy: netutil.Policy{
			Attempts:  opts.Retries + 1,
			BaseDelay: opts.Backoff,
			Retryable: Retryable,
			After:     FloodWait,
		},
	}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go d.work()
	}
	return d
}

// Enqueue schedules run. It never blocks; a full queue is reported as ErrFull
// so the caller can send inline instead.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("sender: nil job")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrFull
	}
}

// Failures counts jobs that gave up.
func (d *Dispatcher) Failures() uint64 {
	return d.failures.Load()
}

// Close rejects new jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	// a job outlives the update that queued it
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), d.opts.Deadline)
	defer cancel()

	attrs := []slog.Attr{slog.String("action", j.action), slog.String("endpoint", j.endpoint)}
	policy := d.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Debug(ctx, "tg.sender", "send.retry", append(attrs,
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("err_code", Kind(err)),
		)...)
	}

	start := time.Now()
	attempts := 0
	err := policy.Do(ctx, func(context.Context, int) error {
		attempts++
		return j.run()
	})
	attrs = append(attrs, slog.Int("attempts", attempts), slog.Duration("duration", logger.RoundMS(time.Since(start))))
	if d.opts.Observe != nil {
		d.opts.Observe(j.action, err)
	}
	if err != nil {
		d.failures.Add(1)
		logger.Warn(ctx, "tg.sender", "send.fail", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", Kind(err)),
		)...)
		return
	}
	logger.Debug(ctx, "tg.sender", "send.ok", append(attrs, slog.String("status", "ok"))...)
}

// Retryable reports whether a Bot API call may succeed when repeated.
func Retryable(err error) bool {
	switch Kind(err) {
	case "timeout", "network", "flood", "api_5xx":
		return true
	}
	return false
}

// FloodWait returns the wait Telegram asked for in a 429 reply.
func FloodWait(err error) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return 0
}

// Kind classifies err for logs and retry decisions.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return "flood"
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return "flood"
		case apiErr.Code >= 500:
			return "api_5xx"
		case apiErr.Code >= 400:
			return "api_4xx"
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if netutil.ShouldRetry(err) {
		return "network"
	}
	return "other"
}
