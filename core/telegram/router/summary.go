// Package router turns a Registry into telebot routes. Every handler call is
// summarized in one "handler.handled" line.
package router

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/combogate/core/logger"
	tghelpers "github.com/m3rciful/combogate/core/telegram/helpers"
	"github.com/m3rciful/combogate/core/telegram/middleware"
	"github.com/m3rciful/combogate/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// run calls h as handler name and logs the outcome.
func run(c tele.Context, name string, h tele.HandlerFunc, attrs ...slog.Attr) error {
	ctx := tghelpers.WithHandler(c, name)
	start := time.Now()
	var err error
	if h != nil {
		err = h(c)
	}

	replies := middleware.Replies(c)
	attrs = append(attrs,
		slog.String("status", status(h, err)),
		slog.Int("messages", replies.Messages),
		slog.Bool("kb", replies.Keyboard),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	lvl := slog.LevelInfo
	if err != nil {
		lvl = slog.LevelWarn
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errCode(err)),
		)
	}
	logger.Log(ctx, logger.TG, lvl, "handler.handled", attrs...)
	return err
}

func status(h tele.HandlerFunc, err error) string {
	switch {
	case h == nil:
		return "skip"
	case err != nil:
		return "fail"
	}
	return "ok"
}

func errCode(err error) string {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return "api_" + strconv.Itoa(apiErr.Code)
	}
	return sender.Kind(err)
}

// handlerName turns "/setcombo" into "setcombo" and a callback key into
// "callback.<key>".
func handlerName(prefix, key string) string {
	key = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "/"))
	if key == "" {
		key = "unknown"
	}
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
