// Package helpers carries per-update state from middleware to handlers and
// delivers replies through the shared outbound dispatcher.
package helpers

import (
	"context"

	"github.com/m3rciful/combogate/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxKey = "combogate.ctx"

// BuildContext returns the logging context of the update, creating it on
// first use. Later calls within the same update return the same value.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxKey).(context.Context); ok {
		return ctx
	}
	var userID, chatID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	ctx := logger.WithUpdate(context.Background(), c.Update().ID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.TG)
	c.Set(ctxKey, ctx)
	return ctx
}

// WithHandler tags the update context with the handler serving it.
func WithHandler(c tele.Context, name string) context.Context {
	ctx := logger.WithHandler(BuildContext(c), name)
	c.Set(ctxKey, ctx)
	return ctx
}
