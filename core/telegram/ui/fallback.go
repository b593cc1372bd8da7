// Package ui declares what a bot answers when an update matches no route.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider supplies replies for unmatched updates.
type FallbackProvider interface {
	// UnknownText answers text that is neither a command nor an awaited reply.
	UnknownText() tele.HandlerFunc
	// UnknownMedia answers photos, documents and other attachments.
	UnknownMedia() tele.HandlerFunc
	// UnknownCallback answers buttons whose key is not registered.
	UnknownCallback() tele.HandlerFunc
}
