package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// dataPrefix starts callback data produced by telebot's markup.Data.
const dataPrefix = "\f"

// ParseCallbackData splits a callback into its action key and payload.
// Routed callbacks carry Unique already; generic OnCallback updates keep the
// raw "\f<unique>|<payload>" encoding in Data.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, dataPrefix)
	key, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}

// CallbackPayload returns the payload of the current callback.
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}
