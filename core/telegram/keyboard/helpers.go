// Package keyboard builds inline keyboards from plain button descriptions.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is a link button when URL is set and a callback button keyed by
// Unique with Data as payload otherwise.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
	URL    string
}

// DefaultCancelText labels the cancel button when no label is given.
const DefaultCancelText = "❌ Cancel"

func (b InlineBtn) inline() tele.InlineButton {
	if b.URL != "" {
		return tele.InlineButton{Text: b.Text, URL: b.URL}
	}
	return tele.InlineButton{Text: b.Text, Unique: b.Unique, Data: b.Data}
}

// InlineButtonsRows lays out rows top to bottom, skipping empty rows.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	kb := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, b.inline())
		}
		kb = append(kb, line)
	}
	return &tele.ReplyMarkup{InlineKeyboard: kb}
}

// WithCancelRow appends a single cancel button under markup, which may be
// nil. An empty label uses DefaultCancelText.
func WithCancelRow(markup *tele.ReplyMarkup, action, label string) *tele.ReplyMarkup {
	if markup == nil {
		markup = &tele.ReplyMarkup{}
	}
	if label == "" {
		label = DefaultCancelText
	}
	btn := InlineBtn{Text: label, Unique: action}
	markup.InlineKeyboard = append(markup.InlineKeyboard, []tele.InlineButton{btn.inline()})
	return markup
}
