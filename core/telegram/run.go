package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/combogate/core/config"
	"github.com/m3rciful/combogate/core/logger"
	tghelpers "github.com/m3rciful/combogate/core/telegram/helpers"
	"github.com/m3rciful/combogate/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route binds a handler to an endpoint accepted by tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// DispatcherOptions sizes the outbound pool the send helpers use.
	DispatcherOptions sender.Options

	Middlewares []Middleware
	Routes      []Route

	// OnStart runs after the handlers are installed and before updates
	// flow. An error aborts the run.
	OnStart func(ctx context.Context, rt Runtime) error
	// OnStop runs once the bot stopped. ctx may already be cancelled.
	OnStop func(ctx context.Context, rt Runtime) error
}

// Runtime is what lifecycle hooks get to work with.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *sender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot and serves updates until ctx is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("telegram: nil config")
	}
	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	started := time.Now()
	poller := NewPoller(cfg)
	bot, err := tele.NewBot(tele.Settings{
		URL:    cfg.Telegram.APIURL,
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: NewHTTPClient(cfg.Telegram.PollTimeout()),
		OnError: func(err error, _ tele.Context) {
			logger.TG.Error("unhandled error",
				slog.String("event", "bot.error"),
				slog.String("err", logger.Redact(err.Error())),
			)
		},
	})
	if err != nil {
		return fmt.Errorf("telegram: new bot: %s", logger.Redact(err.Error()))
	}

	attrs := []any{
		slog.String("event", "bot.ready"),
		slog.String("username", bot.Me.Username),
		slog.String("mode", cfg.Telegram.RunMode),
		slog.Duration("duration", logger.RoundMS(time.Since(started))),
	}
	if wh, ok := poller.(*tele.Webhook); ok {
		attrs = append(attrs, slog.String("listen", wh.Listen))
	} else {
		attrs = append(attrs, slog.Duration("poll_timeout", cfg.Telegram.PollTimeout()))
		dropWebhook(bot)
	}
	logger.TG.Info("bot ready", attrs...)

	dispatcher := sender.New(opts.DispatcherOptions)
	tghelpers.SetDispatcher(dispatcher)
	defer func() {
		dispatcher.Close()
		tghelpers.SetDispatcher(nil)
	}()

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	if err := PublishCommands(bot, reg, cfg.Telegram.AdminID); err != nil {
		logger.TG.Warn("command menu not published",
			slog.String("event", "register.menu"),
			slog.String("err", logger.Redact(err.Error())),
		)
	}

	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: reg}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
	case <-done:
	}
	logger.TG.Info("bot stopped", slog.String("event", "bot.stopped"))

	if opts.OnStop != nil {
		return opts.OnStop(ctx, rt)
	}
	return nil
}

// dropWebhook clears a webhook left over from an earlier webhook run, which
// would otherwise make getUpdates fail.
func dropWebhook(bot *tele.Bot) {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.TG.Warn("webhook not removed",
			slog.String("event", "webhook.remove"),
			slog.String("err", err.Error()),
		)
	}
}
