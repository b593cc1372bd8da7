package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/combogate/core/logger"
	"github.com/m3rciful/combogate/core/netutil"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned while the notifier has no bot to send through.
var ErrNotBound = errors.New("bot: notifier is not bound to a running bot")

// Sender is the part of *tele.Bot the notifier needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier delivers MarkdownV2 messages to the administrator. It is created
// before the bot exists and bound once the runtime starts.
type Notifier struct {
	adminID int64
	policy  netutil.Policy

	mu     sync.RWMutex
	sender Sender
}

// NewNotifier returns an unbound notifier for adminID.
func NewNotifier(adminID int64) *Notifier {
	return &Notifier{
		adminID: adminID,
		policy: netutil.Policy{
			Attempts:  2,
			BaseDelay: time.Second,
			Retryable: netutil.ShouldRetry,
		},
	}
}

// Bind sets the sender; nil unbinds.
func (n *Notifier) Bind(s Sender) {
	n.mu.Lock()
	n.sender = s
	n.mu.Unlock()
}

// NotifyAdmin sends text to the administrator chat.
func (n *Notifier) NotifyAdmin(ctx context.Context, text string) error {
	n.mu.RLock()
	s := n.sender
	n.mu.RUnlock()
	if s == nil {
		return ErrNotBound
	}

	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2}
	err := n.policy.Do(ctx, func(context.Context, int) error {
		_, err := s.Send(tele.ChatID(n.adminID), text, opts)
		return err
	})
	if err != nil {
		logger.Warn(ctx, "tg", "admin.notify.failed",
			slog.Int64("admin_id", n.adminID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return err
	}
	logger.Debug(ctx, "tg", "admin.notify.sent", slog.Int64("admin_id", n.adminID))
	return nil
}
