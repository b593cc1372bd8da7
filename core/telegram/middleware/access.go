package middleware

import tele "gopkg.in/telebot.v4"

// AdminOnly passes updates from adminID through and hands every other one,
// including updates without a sender, to onReject.
func AdminOnly(adminID int64, onReject tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if u := c.Sender(); u != nil && adminID != 0 && u.ID == adminID {
				return next(c)
			}
			if onReject != nil {
				return onReject(c)
			}
			return nil
		}
	}
}
