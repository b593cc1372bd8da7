package middleware

import tele "gopkg.in/telebot.v4"

const repliesKey = "combogate.replies"

// ReplyStats counts what a handler sent back for one update.
type ReplyStats struct {
	Messages int
	Keyboard bool
}

type countingContext struct {
	tele.Context
	stats *ReplyStats
}

func (c countingContext) record(err error, opts []interface{}) error {
	if err != nil {
		return err
	}
	c.stats.Messages++
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			c.stats.Keyboard = c.stats.Keyboard || (v != nil && v.ReplyMarkup != nil)
		case *tele.ReplyMarkup:
			c.stats.Keyboard = c.stats.Keyboard || v != nil
		}
	}
	return nil
}

func (c countingContext) Send(what interface{}, opts ...interface{}) error {
	return c.record(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what interface{}, opts ...interface{}) error {
	return c.record(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what interface{}, opts ...interface{}) error {
	return c.record(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return c.record(c.Context.EditOrSend(what, opts...), opts)
}

func (c countingContext) EditOrReply(what interface{}, opts ...interface{}) error {
	return c.record(c.Context.EditOrReply(what, opts...), opts)
}

// CountReplies wraps the context so Replies can report what was sent.
func CountReplies(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		stats := &ReplyStats{}
		c.Set(repliesKey, stats)
		return next(countingContext{Context: c, stats: stats})
	}
}

// Replies returns the counters of the current update.
func Replies(c tele.Context) ReplyStats {
	if s, ok := c.Get(repliesKey).(*ReplyStats); ok && s != nil {
		return *s
	}
	return ReplyStats{}
}
