package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/combogate/core/logger"
	"github.com/m3rciful/combogate/core/netutil"
	"github.com/m3rciful/combogate/internal/metrics"
)

// PaidStartPrefix prefixes the /start payload of the paid button deep link.
const PaidStartPrefix = "paid_"

// Entitlements is the part of the state controller the workflow mutates.
type Entitlements interface {
	IsEntitled(userID int64) bool
	Grant(ctx context.Context, userID int64) (bool, error)
}

// Config fixes the price and presentation of every invoice.
type Config struct {
	Asset       string
	Amount      string
	Description string
	// BotUsername builds the paid button deep link; empty disables the button.
	BotUsername string
	AdminID     int64
}

// Checkout is a created invoice ready to be paid.
type Checkout struct {
	InvoiceID int64
	PayURL    string
}

// PollResult is the outcome of one poll. Granted is true only for the poll
// that created the entitlement.
type PollResult struct {
	InvoiceID int64
	Status    InvoiceStatus
	UserID    int64
	Granted   bool
}

// Workflow turns the provider invoice lifecycle into local entitlements.
// It keeps no per-invoice state, so polling is safe to repeat.
type Workflow struct {
	client Client
	store  Entitlements
	cfg    Config
	policy netutil.Policy
}

// Option customizes a Workflow.
type Option func(*Workflow)

// WithPolicy replaces the retry policy.
func WithPolicy(p netutil.Policy) Option {
	return func(w *Workflow) { w.policy = p }
}

// NewWorkflow wires the provider client to the entitlement store.
func NewWorkflow(client Client, store Entitlements, cfg Config, opts ...Option) *Workflow {
	w := &Workflow{
		client: client,
		store:  store,
		cfg:    cfg,
		policy: netutil.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.policy.Retryable == nil {
		w.policy.Retryable = retryable
	}
	return w
}

// Config returns the invoice settings.
func (w *Workflow) Config() Config { return w.cfg }

// IsEntitled reports whether the user may see gated content. The administrator always may.
func (w *Workflow) IsEntitled(userID int64) bool {
	if w.cfg.AdminID != 0 && userID == w.cfg.AdminID {
		return true
	}
	return w.store.IsEntitled(userID)
}

// CreateInvoice requests a fixed-price invoice carrying userID as payload.
func (w *Workflow) CreateInvoice(ctx context.Context, userID int64) (Checkout, error) {
	req := InvoiceRequest{
		Asset:       w.cfg.Asset,
		Amount:      w.cfg.Amount,
		Description: w.cfg.Description,
		Payload:     strconv.FormatInt(userID, 10),
	}
	if bot := strings.TrimPrefix(strings.TrimSpace(w.cfg.BotUsername), "@"); bot != "" {
		req.PaidBtnName = "callback"
		req.PaidBtnURL = fmt.Sprintf("https://t.me/%s?start=%s%d", bot, PaidStartPrefix, userID)
	}

	log := w.log(ctx)
	start := time.Now()
	var inv Invoice
	err := w.do(ctx, "createInvoice", func(ctx context.Context) error {
		var err error
		inv, err = w.client.CreateInvoice(ctx, req)
		return err
	})
	if err != nil {
		metrics.InvoicesCreated.WithLabelValues("failed").Inc()
		log.Error("invoice creation failed",
			slog.String("event", "invoice.create"),
			slog.Int64("user_id", userID),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
			slog.String("err", err.Error()),
		)
		return Checkout{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	metrics.InvoicesCreated.WithLabelValues("ok").Inc()
	log.Info("invoice created",
		slog.String("event", "invoice.create"),
		slog.Int64("user_id", userID),
		slog.Int64("invoice_id", inv.ID),
		slog.String("invoice_status", inv.Status.String()),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return Checkout{InvoiceID: inv.ID, PayURL: inv.PayURL}, nil
}

// PollInvoice fetches the invoice status. Only an explicit paid status with
// a well-formed payload grants the entitlement; everything else leaves state alone.
func (w *Workflow) PollInvoice(ctx context.Context, invoiceID int64) (PollResult, error) {
	log := w.log(ctx)
	res := PollResult{InvoiceID: invoiceID}

	var inv Invoice
	err := w.do(ctx, "getInvoices", func(ctx context.Context) error {
		var err error
		inv, err = w.client.GetInvoice(ctx, invoiceID)
		return err
	})
	if err != nil {
		metrics.InvoicePolls.WithLabelValues("error").Inc()
		log.Error("invoice poll failed",
			slog.String("event", "invoice.poll"),
			slog.Int64("invoice_id", invoiceID),
			slog.String("err", err.Error()),
		)
		return res, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	res.Status = inv.Status
	metrics.InvoicePolls.WithLabelValues(statusLabel(inv.Status)).Inc()

	if inv.Status != StatusPaid {
		log.Info("invoice polled",
			slog.String("event", "invoice.poll"),
			slog.Int64("invoice_id", invoiceID),
			slog.String("invoice_status", statusLabel(inv.Status)),
		)
		return res, nil
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(inv.Payload), 10, 64)
	if err != nil || userID <= 0 {
		log.Error("paid invoice carries malformed payload",
			slog.String("event", "invoice.poll"),
			slog.Int64("invoice_id", invoiceID),
			slog.String("payload", logger.SanitizeLimit(inv.Payload, 64)),
		)
		return res, fmt.Errorf("%w: payload %q", ErrMalformedResponse, inv.Payload)
	}
	res.UserID = userID

	granted, saveErr := w.store.Grant(ctx, userID)
	res.Granted = granted
	if granted {
		metrics.Grants.WithLabelValues("payment").Inc()
	}
	outcome := "reconfirmed"
	if granted {
		outcome = "granted"
	}
	attrs := []slog.Attr{
		slog.String("event", "invoice.poll"),
		slog.Int64("invoice_id", invoiceID),
		slog.String("invoice_status", "paid"),
		slog.Int64("user_id", userID),
		slog.String("outcome", outcome),
	}
	if saveErr != nil {
		attrs = append(attrs, slog.String("err", saveErr.Error()))
	}
	log.LogAttrs(ctx, slog.LevelInfo, "invoice paid", attrs...)
	return res, nil
}

func (w *Workflow) do(ctx context.Context, method string, fn func(context.Context) error) error {
	p := w.policy
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		w.log(ctx).Warn("provider call failed, retrying",
			slog.String("event", "payment.retry"),
			slog.String("method", method),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("err", err.Error()),
		)
	}
	return p.Do(ctx, func(ctx context.Context, _ int) error { return fn(ctx) })
}

func (w *Workflow) log(ctx context.Context) *slog.Logger {
	if l := logger.FromContext(ctx); l != nil && l != logger.L {
		return l.With("component", "payment")
	}
	return logger.Pay
}

// retryable skips replies that will not change on a second attempt.
func retryable(err error) bool {
	if errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrInvoiceNotFound) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

func statusLabel(s InvoiceStatus) string {
	if s.IsUnknown() {
		return "unknown"
	}
	return s.String()
}
