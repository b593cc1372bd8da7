package helpers

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/combogate/core/logger"
	"github.com/m3rciful/combogate/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes replies through d; nil sends them inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// deliver queues send, or runs it inline when no dispatcher is set or the
// queue cannot take it.
func deliver(c tele.Context, action, endpoint string, send func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return send()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, send)
	if errors.Is(err, sender.ErrFull) || errors.Is(err, sender.ErrClosed) {
		logger.Warn(ctx, "tg.sender", "send.inline",
			slog.String("action", action),
			slog.String("cause", err.Error()),
		)
		return send()
	}
	return err
}

// SendText sends text without a parse mode.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	args := []interface{}{}
	if len(opts) > 0 && opts[0] != nil {
		args = append(args, opts[0])
	}
	return deliver(c, "send", "sendMessage", func() error {
		return c.Send(text, args...)
	})
}

// SendMDV2 sends MarkdownV2 text with an optional inline keyboard.
func SendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := markdownOptions(markup)
	return deliver(c, "send.md2", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// EditOrSendMDV2 rewrites the message a callback came from, or sends a new
// one for plain messages. Re-sending identical content is not an error.
func EditOrSendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := markdownOptions(markup)
	return deliver(c, "edit.md2", "editMessageText", func() error {
		err := c.EditOrSend(text, opts)
		if err != nil && strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return err
	})
}

func markdownOptions(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, DisableWebPagePreview: true}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}
