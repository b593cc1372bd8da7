// Package state tracks per-user conversation steps. A step is entered when
// the bot asks a question and left when the next plain message answers it.
package state

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// State names a conversation step. The zero value means nothing is pending.
type State string

// Idle is the state of a user without a pending step.
const Idle State = ""

// Session is the pending step of one user.
type Session struct {
	State   State
	Data    map[string]string
	Started time.Time
}

// Manager keeps sessions and routes answers to the handler of their state.
type Manager interface {
	// Begin replaces any pending session of the user.
	Begin(userID int64, st State, data map[string]string)
	// Current returns the pending session if it has not expired.
	Current(userID int64) (Session, bool)
	// Active reports whether the user has a pending, unexpired session.
	Active(userID int64) bool
	// End removes and returns the pending session.
	End(userID int64) (Session, bool)
	// Handle sets the handler that receives answers for st.
	Handle(st State, h tele.HandlerFunc)
	// Dispatch calls the handler of the sender's current state.
	Dispatch(c tele.Context) error
}
