package payment

import (
	"errors"
	"fmt"
	"strings"
)

// InvoiceStatus is the provider lifecycle state of an invoice.
type InvoiceStatus struct {
	name string
	raw  string
}

var (
	StatusPending  = InvoiceStatus{name: "pending"}
	StatusPaid     = InvoiceStatus{name: "paid"}
	StatusExpired  = InvoiceStatus{name: "expired"}
	StatusFailed   = InvoiceStatus{name: "failed"}
	StatusRefunded = InvoiceStatus{name: "refunded"}
)

// Unknown preserves a status string the workflow does not understand.
func Unknown(raw string) InvoiceStatus {
	return InvoiceStatus{raw: raw}
}

// ParseStatus maps a provider status. "active" is the provider's name for pending.
func ParseStatus(raw string) InvoiceStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "active":
		return StatusPending
	case "paid":
		return StatusPaid
	case "expired":
		return StatusExpired
	case "failed":
		return StatusFailed
	case "refunded":
		return StatusRefunded
	}
	return Unknown(raw)
}

// IsUnknown reports whether the status fell outside the known set.
func (s InvoiceStatus) IsUnknown() bool { return s.name == "" }

// Raw returns the provider string for unknown statuses.
func (s InvoiceStatus) Raw() string { return s.raw }

func (s InvoiceStatus) String() string {
	if s.IsUnknown() {
		return "unknown(" + s.raw + ")"
	}
	return s.name
}

// Invoice is the provider object referenced by the workflow; it is never persisted.
type Invoice struct {
	ID      int64
	Status  InvoiceStatus
	Payload string
	PayURL  string
}

// InvoiceRequest describes a fixed-price invoice.
type InvoiceRequest struct {
	Asset       string
	Amount      string
	Description string
	Payload     string
	PaidBtnName string
	PaidBtnURL  string
}

var (
	// ErrMalformedResponse marks a provider reply that cannot be trusted.
	ErrMalformedResponse = errors.New("payment: malformed provider response")
	// ErrProviderUnavailable is returned once the retry budget is exhausted.
	ErrProviderUnavailable = errors.New("payment: provider unavailable")
	// ErrInvoiceNotFound is returned when the provider does not know the invoice.
	ErrInvoiceNotFound = errors.New("payment: invoice not found")
)

// APIError is a provider reply with ok=false or a non-2xx status.
type APIError struct {
	Method string
	Status int
	Code   int
	Name   string
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("payment: %s: provider error %d %s", e.Method, e.Code, e.Name)
	}
	return fmt.Sprintf("payment: %s: http status %d", e.Method, e.Status)
}

// Temporary reports whether retrying may help.
func (e *APIError) Temporary() bool {
	return e.Status == 0 || e.Status == 429 || e.Status >= 500
}
