// Package bot binds the combo service to the Telegram transport: it registers
// commands and callbacks, translates updates into combo events and renders
// responses as MarkdownV2 messages with inline keyboards.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/m3rciful/combogate/core/logger"
	tg "github.com/m3rciful/combogate/core/telegram"
	"github.com/m3rciful/combogate/core/telegram/callbacks"
	"github.com/m3rciful/combogate/core/telegram/commands"
	tghelpers "github.com/m3rciful/combogate/core/telegram/helpers"
	"github.com/m3rciful/combogate/core/telegram/keyboard"
	"github.com/m3rciful/combogate/core/telegram/router"
	tgstate "github.com/m3rciful/combogate/core/telegram/state"
	"github.com/m3rciful/combogate/core/telegram/ui"
	"github.com/m3rciful/combogate/internal/combo"
	"github.com/m3rciful/combogate/internal/metrics"

	tele "gopkg.in/telebot.v4"
)

const (
	// CancelAction is the callback key of the prompt cancel button.
	CancelAction = "cancel"

	// StateAwaiting marks a user whose next text message answers a prompt.
	StateAwaiting tgstate.State = "awaiting_input"

	awaitKey = "await_command"

	defaultCancelled = "Cancelled."
	defaultPromptTTL = 15 * time.Minute
)

// Handler is the service side of the adapter.
type Handler interface {
	Handle(ctx context.Context, ev combo.Event) combo.Response
}

// Options configures an Adapter.
type Options struct {
	Service Handler
	AdminID int64
	// FSM keeps pending prompts; nil uses an in-memory manager.
	FSM tgstate.Manager
	// PromptTTL bounds how long an unanswered prompt stays pending for the
	// in-memory manager. Zero means 15 minutes.
	PromptTTL time.Duration

	CancelButton string
	Cancelled    string
}

// Adapter routes Telegram updates to a Handler.
type Adapter struct {
	svc     Handler
	adminID int64
	fsm     tgstate.Manager

	cancelButton string
	cancelled    string
}

// New builds an Adapter.
func New(opts Options) *Adapter {
	fsm := opts.FSM
	if fsm == nil {
		ttl := opts.PromptTTL
		if ttl <= 0 {
			ttl = defaultPromptTTL
		}
		fsm = tgstate.NewMemoryManager(tgstate.MemoryOptions{TTL: ttl})
	}
	a := &Adapter{
		svc:          opts.Service,
		adminID:      opts.AdminID,
		fsm:          fsm,
		cancelButton: opts.CancelButton,
		cancelled:    opts.Cancelled,
	}
	if a.cancelled == "" {
		a.cancelled = defaultCancelled
	}
	fsm.Handle(StateAwaiting, a.answer)
	return a
}

// FSM exposes the prompt state manager.
func (a *Adapter) FSM() tgstate.Manager {
	return a.fsm
}

// Register adds every command and callback to reg and installs the fallbacks.
func (a *Adapter) Register(reg *tg.Registry) error {
	var errs []error
	for _, name := range combo.UserCommands {
		errs = append(errs, reg.RegisterCommand("/"+name, commands.Command{
			Handler:     a.command(name),
			Description: combo.Descriptions[name],
		}))
	}
	for _, name := range combo.AdminCommands {
		errs = append(errs, reg.RegisterCommand("/"+name, commands.Command{
			Handler:     a.command(name),
			Description: combo.Descriptions[name],
			AdminOnly:   true,
		}))
	}
	for _, name := range combo.Callbacks {
		errs = append(errs, reg.RegisterCallback(name, a.callback(name)))
	}
	errs = append(errs, reg.RegisterCallback(CancelAction, a.cancel))

	reg.SetCallbackNotFound(a.UnknownCallback())
	reg.SetTextFallback(a.UnknownText())
	return errors.Join(errs...)
}

// Routes builds the bot routes for everything registered in reg.
func (a *Adapter) Routes(reg *tg.Registry) []tg.Route {
	return router.Routes(reg, router.Options{
		AdminID:       a.adminID,
		OnAdminReject: a.rejectAdmin,
		Prompts:       a.fsm,
		Fallback:      a,
	})
}

var _ ui.FallbackProvider = (*Adapter)(nil)

// UnknownText answers free text outside a prompt with the help screen.
func (a *Adapter) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return a.dispatch(c, combo.CmdHelp, "", false)
	}
}

// UnknownMedia answers unexpected attachments with the help screen.
func (a *Adapter) UnknownMedia() tele.HandlerFunc {
	return a.UnknownText()
}

// UnknownCallback answers stale or foreign buttons.
func (a *Adapter) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		metrics.UpdatesHandled.WithLabelValues("unknown_callback", "skip").Inc()
		_ = c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		return nil
	}
}

func (a *Adapter) command(name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		// a new command abandons any pending prompt
		a.clearPrompt(senderID(c))
		_, payload := splitCommand(c.Text())
		return a.dispatch(c, name, payload, false)
	}
}

func (a *Adapter) callback(name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return a.dispatch(c, name, callbacks.CallbackPayload(c), true)
	}
}

func (a *Adapter) rejectAdmin(c tele.Context) error {
	name, _ := splitCommand(c.Text())
	return a.dispatch(c, name, "", false)
}

// answer receives the text that completes a pending prompt.
func (a *Adapter) answer(c tele.Context) error {
	sess, _ := a.fsm.End(senderID(c))
	name := sess.Data[awaitKey]
	if name == "" {
		return a.dispatch(c, combo.CmdHelp, "", false)
	}
	return a.dispatch(c, name, c.Text(), false)
}

func (a *Adapter) cancel(c tele.Context) error {
	a.clearPrompt(senderID(c))
	metrics.UpdatesHandled.WithLabelValues(CancelAction, "ok").Inc()
	return tghelpers.SendText(c, a.cancelled)
}

func (a *Adapter) clearPrompt(userID int64) {
	a.fsm.End(userID)
}

// dispatch runs one event through the service and renders the response.
func (a *Adapter) dispatch(c tele.Context, name, payload string, edit bool) error {
	ctx := tghelpers.BuildContext(c)
	ev := a.Event(c, name, payload)
	resp := a.svc.Handle(ctx, ev)

	markup := Markup(resp.Keyboard)
	if resp.Await != "" {
		a.fsm.Begin(ev.UserID, StateAwaiting, map[string]string{awaitKey: resp.Await})
		markup = keyboard.WithCancelRow(markup, CancelAction, a.cancelButton)
	}

	var err error
	if edit {
		err = tghelpers.EditOrSendMDV2(c, resp.Text, markup)
	} else {
		err = tghelpers.SendMDV2(c, resp.Text, markup)
	}
	route := combo.NormalizeCommand(name)
	metrics.UpdatesHandled.WithLabelValues(route, metrics.Result(err)).Inc()
	if err != nil {
		logger.Warn(ctx, "tg", "reply.failed",
			slog.String("command", route),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	return err
}

// Event converts an update into a combo event.
func (a *Adapter) Event(c tele.Context, name, payload string) combo.Event {
	userID := senderID(c)
	return combo.Event{
		UserID:  userID,
		IsAdmin: a.adminID != 0 && userID == a.adminID,
		Command: name,
		Payload: payload,
	}
}

// Markup converts a combo keyboard into telebot reply markup; nil stays nil.
func Markup(kb *combo.Keyboard) *tele.ReplyMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}
	rows := make([][]keyboard.InlineBtn, 0, len(kb.Rows))
	for _, r := range kb.Rows {
		btns := make([]keyboard.InlineBtn, 0, len(r))
		for _, b := range r {
			btns = append(btns, keyboard.InlineBtn{
				Text:   b.Text,
				Unique: b.Action,
				Data:   b.Data,
				URL:    b.URL,
			})
		}
		rows = append(rows, btns)
	}
	return keyboard.InlineButtonsRows(rows...)
}

func senderID(c tele.Context) int64 {
	if s := c.Sender(); s != nil {
		return s.ID
	}
	return 0
}

// splitCommand separates "/name args" at the first whitespace, newlines
// included, so multi-line arguments survive intact.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i:])
}
