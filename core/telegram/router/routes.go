package router

import (
	"log/slog"

	tg "github.com/m3rciful/combogate/core/telegram"
	"github.com/m3rciful/combogate/core/telegram/callbacks"
	"github.com/m3rciful/combogate/core/telegram/middleware"
	"github.com/m3rciful/combogate/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// Prompts is the part of a state manager the text route needs.
type Prompts interface {
	Active(userID int64) bool
	Dispatch(c tele.Context) error
}

// Options configures Routes.
type Options struct {
	// AdminID guards admin commands; OnAdminReject answers everyone else.
	AdminID       int64
	OnAdminReject tele.HandlerFunc
	// Prompts receives plain text from users with a pending question.
	Prompts  Prompts
	Fallback ui.FallbackProvider
}

// Routes builds one route per command plus the callback, text and media
// routes. Global middleware is installed separately on the bot.
func Routes(reg *tg.Registry, opts Options) []tg.Route {
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds)+3)
	guard := middleware.AdminOnly(opts.AdminID, opts.OnAdminReject)
	for key, cmd := range cmds {
		h := cmd.Handler
		if cmd.AdminOnly {
			h = guard(h)
		}
		routes = append(routes, tg.Route{Endpoint: key, Handler: commandHandler(handlerName("", key), h)})
	}
	routes = append(routes,
		tg.Route{Endpoint: tele.OnCallback, Handler: callbackHandler(reg, opts)},
		tg.Route{Endpoint: tele.OnText, Handler: textHandler(reg, guard, opts)},
		tg.Route{Endpoint: tele.OnMedia, Handler: mediaHandler(opts)},
	)
	return routes
}

func commandHandler(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return run(c, name, h)
	}
}

func callbackHandler(reg *tg.Registry, opts Options) tele.HandlerFunc {
	return func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		key, _ := callbacks.ParseCallbackData(cb)
		attrs := []slog.Attr{slog.String("cb_key", key)}
		h, ok := reg.Callback(key)
		if ok {
			// stop the client spinner; the not-found handler answers itself
			_ = c.Respond()
		} else {
			h = reg.CallbackNotFound()
			if opts.Fallback != nil {
				h = opts.Fallback.UnknownCallback()
			}
			attrs = append(attrs, slog.String("cause", "not_found"))
		}
		return run(c, handlerName("callback", key), h, attrs...)
	}
}

// textHandler serves commands telebot did not match itself, such as
// "/Combo", then pending prompts, then the text fallback.
func textHandler(reg *tg.Registry, guard tele.MiddlewareFunc, opts Options) tele.HandlerFunc {
	return func(c tele.Context) error {
		if key, cmd, ok := reg.Command(firstWord(c.Text())); ok {
			h := cmd.Handler
			if cmd.AdminOnly {
				h = guard(h)
			}
			return run(c, handlerName("", key), h)
		}
		if u := c.Sender(); u != nil && opts.Prompts != nil && opts.Prompts.Active(u.ID) {
			return run(c, "prompt", opts.Prompts.Dispatch)
		}
		h := reg.TextFallback()
		if opts.Fallback != nil {
			h = opts.Fallback.UnknownText()
		}
		return run(c, "fallback.text", h)
	}
}

func mediaHandler(opts Options) tele.HandlerFunc {
	return func(c tele.Context) error {
		var h tele.HandlerFunc
		if opts.Fallback != nil {
			h = opts.Fallback.UnknownMedia()
		}
		return run(c, "fallback.media", h)
	}
}

func firstWord(text string) string {
	for i, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			return text[:i]
		}
	}
	return text
}
