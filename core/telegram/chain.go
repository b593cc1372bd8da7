package telegram

import (
	coreconfig "github.com/m3rciful/combogate/core/config"
	"github.com/m3rciful/combogate/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares is the standard global chain, outermost first. The
// throttle is left out when no interval is configured. onLimited may be nil
// to drop throttled updates silently.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	chain := []Middleware{
		{Name: "recover", Use: middleware.Recover},
		{Name: "trace", Use: middleware.Trace},
	}
	if d := cfg.RateLimit.Interval(); d > 0 {
		chain = append(chain, Middleware{Name: "throttle", Use: middleware.Throttle(middleware.ThrottleOptions{
			Interval:  d,
			Exclude:   cfg.RateLimit.ExcludeUpdates,
			OnLimited: onLimited,
		})})
	}
	return append(chain, Middleware{Name: "replies", Use: middleware.CountReplies})
}
