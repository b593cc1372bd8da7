package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type userContext struct {
	tele.Context
	id    int64
	store map[string]interface{}
}

func (u *userContext) Sender() *tele.User          { return &tele.User{ID: u.id} }
func (u *userContext) Chat() *tele.Chat            { return nil }
func (u *userContext) Update() tele.Update         { return tele.Update{ID: 3} }
func (u *userContext) Get(k string) interface{}    { return u.store[k] }
func (u *userContext) Set(k string, v interface{}) { u.store[k] = v }

func newUser(id int64) *userContext {
	return &userContext{id: id, store: map[string]interface{}{}}
}

func TestBeginEnd(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	data := map[string]string{"cmd": "seturl"}
	m.Begin(5, "asking", data)
	data["cmd"] = "changed"

	sess, ok := m.Current(5)
	require.True(t, ok)
	require.Equal(t, State("asking"), sess.State)
	require.Equal(t, "seturl", sess.Data["cmd"])
	require.False(t, m.Active(6))

	sess, ok = m.End(5)
	require.True(t, ok)
	require.Equal(t, "seturl", sess.Data["cmd"])
	require.False(t, m.Active(5))

	_, ok = m.End(5)
	require.False(t, ok)
}

func TestBeginIdleClears(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	m.Begin(5, "asking", nil)
	m.Begin(5, Idle, nil)
	require.False(t, m.Active(5))
}

func TestSessionsExpire(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := NewMemoryManager(MemoryOptions{TTL: time.Minute, Now: func() time.Time { return now }})
	m.Begin(5, "asking", nil)

	now = now.Add(time.Minute)
	require.True(t, m.Active(5))
	now = now.Add(time.Second)
	require.False(t, m.Active(5))
	_, ok := m.End(5)
	require.False(t, ok)
}

func TestDispatch(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	var got []int64
	m.Handle("asking", func(c tele.Context) error {
		got = append(got, c.Sender().ID)
		return nil
	})

	require.NoError(t, m.Dispatch(newUser(5)))
	require.Empty(t, got)

	m.Begin(5, "asking", nil)
	require.NoError(t, m.Dispatch(newUser(5)))
	require.Equal(t, []int64{5}, got)

	m.Begin(6, "other", nil)
	require.ErrorIs(t, m.Dispatch(newUser(6)), ErrNoHandler)

	m.Handle("asking", nil)
	require.ErrorIs(t, m.Dispatch(newUser(5)), ErrNoHandler)
}
