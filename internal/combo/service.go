package combo

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/combogate/core/logger"
	"github.com/m3rciful/combogate/core/telegram/format"
	"github.com/m3rciful/combogate/internal/metrics"
	"github.com/m3rciful/combogate/internal/payment"
	"github.com/m3rciful/combogate/internal/refresh"
	"github.com/m3rciful/combogate/internal/state"
)

// Store is the state controller surface used by handlers.
type Store interface {
	Snapshot() state.GlobalContentState
	Subscribers() int
	SetActive(ctx context.Context, active bool) error
	SetContent(ctx context.Context, content string) error
	SetSourceURL(ctx context.Context, url string) error
	Grant(ctx context.Context, userID int64) (bool, error)
}

// Payments is the payment workflow surface used by handlers.
type Payments interface {
	Config() payment.Config
	IsEntitled(userID int64) bool
	CreateInvoice(ctx context.Context, userID int64) (payment.Checkout, error)
	PollInvoice(ctx context.Context, invoiceID int64) (payment.PollResult, error)
}

// Refresher runs a manual content refresh.
type Refresher interface {
	Trigger(ctx context.Context) refresh.Report
}

// Options configure a Service.
type Options struct {
	Store     Store
	Payments  Payments
	Refresher Refresher
	Texts     Texts
	Now       func() time.Time
	Location  *time.Location
}

// Service maps chat events to responses. It holds no per-user session state.
type Service struct {
	store     Store
	payments  Payments
	refresher Refresher
	texts     Texts
	now       func() time.Time
	loc       *time.Location
}

// NewService applies defaults to opts.
func NewService(opts Options) *Service {
	s := &Service{
		store:     opts.Store,
		payments:  opts.Payments,
		refresher: opts.Refresher,
		texts:     DefaultTexts().merge(opts.Texts),
		now:       opts.Now,
		loc:       opts.Location,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// Handle dispatches one event.
func (s *Service) Handle(ctx context.Context, ev Event) Response {
	cmd := NormalizeCommand(ev.Command)
	ev.Payload = strings.TrimSpace(ev.Payload)

	if isAdminCommand(cmd) && !ev.IsAdmin {
		logger.Warn(ctx, "app", "admin.denied",
			slog.Int64("user_id", ev.UserID),
			slog.String("command", cmd),
		)
		return s.text(s.texts.AdminOnly, nil)
	}

	switch cmd {
	case CmdStart:
		if strings.HasPrefix(ev.Payload, payment.PaidStartPrefix) {
			return s.paidReturn(ev)
		}
		return s.welcome(ev)
	case CmdHelp:
		return s.help(ev)
	case CmdCombo:
		return s.combo(ev)
	case CmdBuy:
		return s.buy(ctx, ev)
	case CmdCheck:
		return s.check(ctx, ev)
	case CmdStatus:
		return s.status(ev)
	case CmdAdmin:
		return s.adminPanel()
	case CmdOn, CmdOff:
		return s.setActive(ctx, cmd == CmdOn)
	case CmdSetCombo:
		return s.setCombo(ctx, ev)
	case CmdSetURL:
		return s.setURL(ctx, ev)
	case CmdRefresh:
		return s.refresh(ctx)
	case CmdGrant:
		return s.grant(ctx, ev)
	case CmdStats:
		return s.stats()
	case CmdPreview:
		return s.preview()
	}
	return s.help(ev)
}

func (s *Service) welcome(ev Event) Response {
	return s.text(s.texts.Welcome, s.menu(ev))
}

func (s *Service) help(ev Event) Response {
	return s.text(s.texts.Help, s.menu(ev))
}

func (s *Service) menu(ev Event) *Keyboard {
	if s.canSee(ev) {
		return keyboard(row(action(s.texts.ButtonCombo, CmdCombo)))
	}
	return keyboard(row(action(s.texts.ButtonCombo, CmdCombo), action(s.texts.ButtonBuy, CmdBuy)))
}

func (s *Service) canSee(ev Event) bool {
	if ev.IsAdmin {
		return true
	}
	if s.store.Snapshot().Active {
		return true
	}
	return s.payments.IsEntitled(ev.UserID)
}

func (s *Service) combo(ev Event) Response {
	if !s.canSee(ev) {
		return s.text(s.texts.Paywall, keyboard(row(action(s.texts.ButtonBuy, CmdBuy))))
	}
	return Response{Text: s.renderContent()}
}

// renderContent renders the header and the stored content; {date} inside the
// content is replaced with today's date.
func (s *Service) renderContent() string {
	vars := s.vars(nil)
	header := format.Render(s.texts.ComboHeader, vars)
	body := format.Render(s.store.Snapshot().Content, format.Vars{"date": vars["date"]})
	return header + "\n\n" + body
}

func (s *Service) buy(ctx context.Context, ev Event) Response {
	co, err := s.payments.CreateInvoice(ctx, ev.UserID)
	if err != nil {
		return s.text(s.texts.Unavailable, keyboard(row(action(s.texts.ButtonRetry, CmdBuy))))
	}
	id := strconv.FormatInt(co.InvoiceID, 10)
	return s.text(s.texts.Invoice, keyboard(
		row(link(s.plain(s.texts.ButtonPay), co.PayURL)),
		row(actionData(s.texts.ButtonCheck, CmdCheck, id)),
	), "invoice", id)
}

func (s *Service) check(ctx context.Context, ev Event) Response {
	invoiceID, err := strconv.ParseInt(ev.Payload, 10, 64)
	if err != nil || invoiceID <= 0 {
		return s.text(s.texts.BadInvoice, keyboard(row(action(s.texts.ButtonNew, CmdBuy))))
	}
	res, err := s.payments.PollInvoice(ctx, invoiceID)
	if err != nil {
		return s.text(s.texts.Unavailable, keyboard(row(actionData(s.texts.ButtonRetry, CmdCheck, ev.Payload))))
	}
	switch res.Status {
	case payment.StatusPaid:
		msg := s.texts.Paid
		if !res.Granted {
			msg = s.texts.Reconfirmed
		}
		return s.text(msg, keyboard(row(action(s.texts.ButtonCombo, CmdCombo))))
	case payment.StatusPending:
		return s.text(s.texts.Pending, keyboard(row(actionData(s.texts.ButtonCheck, CmdCheck, ev.Payload))))
	case payment.StatusExpired:
		return s.text(s.texts.Expired, keyboard(row(action(s.texts.ButtonNew, CmdBuy))))
	}
	return s.text(s.texts.OtherStatus, nil, "status", statusText(res.Status))
}

func (s *Service) paidReturn(ev Event) Response {
	if s.canSee(ev) {
		return s.text(s.texts.Reconfirmed, keyboard(row(action(s.texts.ButtonCombo, CmdCombo))))
	}
	return s.text(s.texts.PaidReturn, nil)
}

func (s *Service) status(ev Event) Response {
	access := "none"
	switch {
	case ev.IsAdmin:
		access = "admin"
	case s.payments.IsEntitled(ev.UserID):
		access = "lifetime"
	}
	return s.text(s.texts.Status, s.menu(ev),
		"access", access,
		"active", onOff(s.store.Snapshot().Active),
	)
}

func (s *Service) adminPanel() Response {
	snap := s.store.Snapshot()
	kb := keyboard(
		row(action(s.texts.ButtonOn, CmdOn), action(s.texts.ButtonOff, CmdOff)),
		row(action(s.texts.ButtonRefresh, CmdRefresh), action(s.texts.ButtonPreview, CmdPreview)),
		row(action(s.texts.ButtonStats, CmdStats)),
	)
	return s.text(s.texts.AdminPanel, kb,
		"active", onOff(snap.Active),
		"subscribers", strconv.Itoa(s.store.Subscribers()),
		"source", sourceText(snap.SourceURL),
	)
}

func (s *Service) setActive(ctx context.Context, active bool) Response {
	err := s.store.SetActive(ctx, active)
	msg := s.texts.ActiveOff
	if active {
		msg = s.texts.ActiveOn
	}
	logger.Info(ctx, "app", "admin.set_active", slog.Bool("active", active))
	return s.withSaveWarning(s.text(msg, nil), err)
}

func (s *Service) setCombo(ctx context.Context, ev Event) Response {
	if ev.Payload == "" {
		return Response{Text: format.EscapeSpans(s.texts.AskCombo), Await: CmdSetCombo}
	}
	err := s.store.SetContent(ctx, ev.Payload)
	if errors.Is(err, state.ErrEmptyContent) {
		return Response{Text: format.EscapeSpans(s.texts.AskCombo), Await: CmdSetCombo}
	}
	logger.Info(ctx, "app", "admin.set_content", slog.Int("bytes", len(ev.Payload)))
	resp := s.text(s.texts.ComboSaved, nil)
	resp.Text += "\n\n" + s.renderContent()
	return s.withSaveWarning(resp, err)
}

func (s *Service) setURL(ctx context.Context, ev Event) Response {
	if ev.Payload == "" {
		return Response{Text: format.EscapeSpans(s.texts.AskURL), Await: CmdSetURL}
	}
	if strings.EqualFold(ev.Payload, "off") {
		err := s.store.SetSourceURL(ctx, "")
		logger.Info(ctx, "app", "admin.set_source", slog.String("source", ""))
		return s.withSaveWarning(s.text(s.texts.URLCleared, nil), err)
	}
	u, err := url.Parse(ev.Payload)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Response{Text: format.EscapeSpans(s.texts.BadURL), Await: CmdSetURL}
	}
	err = s.store.SetSourceURL(ctx, u.String())
	logger.Info(ctx, "app", "admin.set_source", slog.String("source", u.Redacted()))
	return s.withSaveWarning(s.text(s.texts.URLSaved, nil, "source", u.String()), err)
}

func (s *Service) refresh(ctx context.Context) Response {
	rep := s.refresher.Trigger(ctx)
	outcome := strings.ReplaceAll(string(rep.Outcome), "_", " ")
	if rep.Err != nil {
		outcome += ": " + rep.Err.Error()
	}
	return s.text(s.texts.Refreshed, nil, "outcome", outcome)
}

func (s *Service) grant(ctx context.Context, ev Event) Response {
	userID, err := strconv.ParseInt(ev.Payload, 10, 64)
	if err != nil || userID <= 0 {
		return s.text(s.texts.GrantUsage, nil)
	}
	granted, err := s.store.Grant(ctx, userID)
	user := strconv.FormatInt(userID, 10)
	if !granted {
		return s.text(s.texts.AlreadyGrant, nil, "user", user)
	}
	metrics.Grants.WithLabelValues("admin").Inc()
	logger.Info(ctx, "app", "admin.grant", slog.Int64("target_user_id", userID))
	return s.withSaveWarning(s.text(s.texts.Granted, nil, "user", user), err)
}

func (s *Service) stats() Response {
	snap := s.store.Snapshot()
	return s.text(s.texts.Stats, nil,
		"subscribers", strconv.Itoa(s.store.Subscribers()),
		"active", onOff(snap.Active),
		"source", sourceText(snap.SourceURL),
		"length", strconv.Itoa(len([]rune(snap.Content))),
	)
}

func (s *Service) preview() Response {
	return Response{Text: s.renderContent()}
}

func (s *Service) withSaveWarning(resp Response, err error) Response {
	if err != nil {
		resp.Text += "\n\n" + format.EscapeSpans(s.texts.SaveFailed)
	}
	return resp
}

// text renders an authored template with the common vars plus key/value pairs.
func (s *Service) text(tmpl string, kb *Keyboard, kv ...string) Response {
	return Response{Text: format.Render(tmpl, s.vars(kv)), Keyboard: kb}
}

func (s *Service) vars(kv []string) format.Vars {
	cfg := s.payments.Config()
	vars := format.Vars{
		"date":  s.now().In(s.loc).Format(refresh.DateLayout),
		"price": cfg.Amount,
		"asset": cfg.Asset,
	}
	for i := 0; i+1 < len(kv); i += 2 {
		vars[kv[i]] = kv[i+1]
	}
	return vars
}

// plain substitutes common vars into button labels, which are not markdown.
func (s *Service) plain(tmpl string) string {
	cfg := s.payments.Config()
	return strings.NewReplacer("{price}", cfg.Amount, "{asset}", cfg.Asset).Replace(tmpl)
}

func statusText(st payment.InvoiceStatus) string {
	if st.IsUnknown() {
		return st.Raw()
	}
	return st.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func sourceText(u string) string {
	if u == "" {
		return "not set"
	}
	return u
}
