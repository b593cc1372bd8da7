package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type stubContext struct {
	tele.Context
	update tele.Update
	store  map[string]interface{}
	sent   int
}

func newStub(userID int64, upd tele.Update) *stubContext {
	if upd.Message == nil && upd.Callback == nil {
		upd.Message = &tele.Message{Text: "/start"}
	}
	sender := &tele.User{ID: userID}
	if upd.Message != nil {
		upd.Message.Sender = sender
	}
	if upd.Callback != nil {
		upd.Callback.Sender = sender
	}
	return &stubContext{update: upd, store: map[string]interface{}{}}
}

func (s *stubContext) Update() tele.Update { return s.update }
func (s *stubContext) Chat() *tele.Chat    { return nil }
func (s *stubContext) Text() string {
	if s.update.Message != nil {
		return s.update.Message.Text
	}
	return ""
}
func (s *stubContext) Sender() *tele.User {
	switch {
	case s.update.Callback != nil:
		return s.update.Callback.Sender
	case s.update.Message != nil:
		return s.update.Message.Sender
	}
	return nil
}
func (s *stubContext) Get(key string) interface{}      { return s.store[key] }
func (s *stubContext) Set(key string, v interface{})   { s.store[key] = v }
func (s *stubContext) Send(interface{}, ...interface{}) error {
	s.sent++
	return nil
}

func ok(tele.Context) error { return nil }

func TestThrottle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var limited int
	mw := Throttle(ThrottleOptions{
		Interval:  time.Second,
		Exclude:   []string{"callback"},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return now },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	require.NoError(t, h(newStub(1, tele.Update{})))
	require.NoError(t, h(newStub(1, tele.Update{})))
	require.NoError(t, h(newStub(2, tele.Update{})))
	require.NoError(t, h(newStub(1, tele.Update{Callback: &tele.Callback{}})))
	now = now.Add(1500 * time.Millisecond)
	require.NoError(t, h(newStub(1, tele.Update{})))

	require.Equal(t, 4, calls)
	require.Equal(t, 1, limited)
}

func TestAdminOnly(t *testing.T) {
	var rejected int
	h := AdminOnly(7, func(tele.Context) error { rejected++; return nil })(func(tele.Context) error {
		return errors.New("reached")
	})

	require.EqualError(t, h(newStub(7, tele.Update{})), "reached")
	require.NoError(t, h(newStub(8, tele.Update{})))
	require.Equal(t, 1, rejected)

	open := AdminOnly(0, nil)(func(tele.Context) error { return errors.New("reached") })
	require.NoError(t, open(newStub(0, tele.Update{})))
}

func TestRecover(t *testing.T) {
	h := Recover(func(tele.Context) error { panic("boom") })
	err := h(newStub(1, tele.Update{}))
	require.EqualError(t, err, "panic: boom")
}

func TestCountReplies(t *testing.T) {
	c := newStub(1, tele.Update{})
	h := CountReplies(func(c tele.Context) error {
		if err := c.Send("a"); err != nil {
			return err
		}
		return c.Send("b", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
	})
	require.NoError(t, h(c))
	require.Equal(t, ReplyStats{Messages: 2, Keyboard: true}, Replies(c))
	require.Equal(t, 2, c.sent)
	require.Equal(t, ReplyStats{}, Replies(newStub(1, tele.Update{})))
}

func TestTraceSetsContext(t *testing.T) {
	c := newStub(3, tele.Update{ID: 11})
	require.NoError(t, Trace(ok)(c))
	require.NotNil(t, c.Get("combogate.ctx"))
}

func TestKind(t *testing.T) {
	require.Equal(t, "callback", Kind(tele.Update{Callback: &tele.Callback{}}))
	require.Equal(t, "message", Kind(tele.Update{Message: &tele.Message{}}))
	require.Equal(t, "inline_query", Kind(tele.Update{Query: &tele.Query{}}))
	require.Equal(t, "other", Kind(tele.Update{}))
}
