package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/combogate/core/logger"
	tghelpers "github.com/m3rciful/combogate/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ThrottleOptions configures Throttle.
type ThrottleOptions struct {
	Interval time.Duration
	// Exclude lists update kinds, as returned by Kind, that are never throttled.
	Exclude []string
	// OnLimited runs instead of the handler for a throttled update.
	OnLimited tele.HandlerFunc
	Now       func() time.Time
}

// Throttle drops updates that arrive within Interval of the previous one
// from the same user.
func Throttle(opts ThrottleOptions) tele.MiddlewareFunc {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	skip := make(map[string]bool, len(opts.Exclude))
	for _, k := range opts.Exclude {
		skip[k] = true
	}
	var (
		mu    sync.Mutex
		seen  = make(map[int64]time.Time)
		swept time.Time
	)

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 || skip[Kind(c.Update())] {
				return next(c)
			}

			t := now()
			mu.Lock()
			last, ok := seen[user.ID]
			limited := ok && t.Sub(last) < opts.Interval
			if !limited {
				seen[user.ID] = t
			}
			// entries older than the interval can no longer limit anyone
			if t.Sub(swept) > time.Minute {
				for id, at := range seen {
					if t.Sub(at) >= opts.Interval {
						delete(seen, id)
					}
				}
				swept = t
			}
			mu.Unlock()

			if !limited {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "update.throttled",
				slog.String("status", "rate_limited"),
				slog.Duration("since_last", t.Sub(last)),
			)
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}
