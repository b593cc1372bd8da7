// Package middleware holds the update wrappers shared by every route:
// panic recovery, per-user throttling, logging context and reply counting.
package middleware

import (
	"log/slog"

	"github.com/m3rciful/combogate/core/logger"
	"github.com/m3rciful/combogate/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/combogate/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Kind names the update type the way rate_limit.exclude_updates does.
func Kind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return "callback"
	case u.Message != nil:
		return "message"
	case u.Query != nil:
		return "inline_query"
	}
	return "other"
}

// Trace attaches the logging context to the update and writes a sampled
// debug line describing it.
func Trace(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		if logger.DebugSampled() {
			upd := c.Update()
			attrs := []slog.Attr{slog.String("kind", Kind(upd))}
			if ch := c.Chat(); ch != nil {
				attrs = append(attrs, slog.String("chat_type", string(ch.Type)))
			}
			if u := c.Sender(); u != nil && u.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
			}
			if upd.Callback != nil {
				key, payload := callbacks.ParseCallbackData(upd.Callback)
				attrs = append(attrs,
					slog.String("cb_key", logger.SanitizeLimit(key, 64)),
					slog.String("payload", logger.SanitizeLimit(payload, 128)),
				)
			} else if text := c.Text(); text != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(text, 128)))
			}
			logger.Debug(ctx, "tg", "update.received", attrs...)
		}
		return next(c)
	}
}
