package state

import (
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/m3rciful/combogate/core/logger"
	tghelpers "github.com/m3rciful/combogate/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ErrNoHandler is returned by Dispatch when the pending state has no handler.
var ErrNoHandler = errors.New("state: no handler for pending step")

// MemoryOptions configures NewMemoryManager.
type MemoryOptions struct {
	// TTL drops sessions older than this; zero keeps them until ended.
	TTL time.Duration
	Now func() time.Time
}

type memoryManager struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[int64]Session
	handlers map[State]tele.HandlerFunc
}

// NewMemoryManager keeps sessions in process memory. They do not survive a restart.
func NewMemoryManager(opts MemoryOptions) Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &memoryManager{
		ttl:      opts.TTL,
		now:      now,
		sessions: make(map[int64]Session),
		handlers: make(map[State]tele.HandlerFunc),
	}
}

func (m *memoryManager) Begin(userID int64, st State, data map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st == Idle {
		delete(m.sessions, userID)
		return
	}
	m.sessions[userID] = Session{State: st, Data: maps.Clone(data), Started: m.now()}
}

func (m *memoryManager) Current(userID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(userID)
}

func (m *memoryManager) Active(userID int64) bool {
	_, ok := m.Current(userID)
	return ok
}

func (m *memoryManager) End(userID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.lookup(userID)
	delete(m.sessions, userID)
	return s, ok
}

// lookup expects m.mu held and evicts an expired session.
func (m *memoryManager) lookup(userID int64) (Session, bool) {
	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, false
	}
	if m.ttl > 0 && m.now().Sub(s.Started) > m.ttl {
		delete(m.sessions, userID)
		return Session{}, false
	}
	return s, true
}

func (m *memoryManager) Handle(st State, h tele.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h == nil {
		delete(m.handlers, st)
		return
	}
	m.handlers[st] = h
}

func (m *memoryManager) Dispatch(c tele.Context) error {
	var userID int64
	if s := c.Sender(); s != nil {
		userID = s.ID
	}

	m.mu.Lock()
	sess, ok := m.lookup(userID)
	h := m.handlers[sess.State]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	logger.Debug(tghelpers.BuildContext(c), "tg", "state.dispatch",
		slog.Int64("user_id", userID),
		slog.String("state", string(sess.State)),
		slog.Duration("age", logger.RoundMS(m.now().Sub(sess.Started))),
	)
	if h == nil {
		return ErrNoHandler
	}
	return h(c)
}
