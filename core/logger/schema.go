package logger

import "strings"

// enumFields normalizes values of keys that dashboards group by. A mapper
// returning false removes the key.
var enumFields = map[string]func(string) (string, bool){
	"status":         lookup(statusValues, true),
	"outcome":        lookup(outcomeValues, false),
	"invoice_status": invoiceStatus,
}

var statusValues = set("ok", "fail", "skip", "retry", "rate_limited", "cancelled")

var outcomeValues = set(
	"ok", "fail", "cancelled", "rate_limited",
	// refresh cycles
	"updated", "unchanged", "empty", "unconfigured", "reminder_suppressed", "fetch_failed",
	// payments
	"granted", "reconfirmed",
)

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// lookup lowercases the value; unknown values pass through when keep is set.
func lookup(known map[string]bool, keep bool) func(string) (string, bool) {
	return func(v string) (string, bool) {
		v = strings.ToLower(strings.TrimSpace(v))
		return v, known[v] || (keep && v != "")
	}
}

// invoiceStatus folds provider statuses onto paid, pending, expired and unknown.
func invoiceStatus(v string) (string, bool) {
	switch v = strings.ToLower(strings.TrimSpace(v)); v {
	case "":
		return "", false
	case "active", "pending":
		return "pending", true
	case "paid", "expired", "failed", "refunded":
		return v, true
	}
	return "unknown", true
}

func normalizeEnums(f fields) {
	for key, mapper := range enumFields {
		raw, ok := f[key].(string)
		if !ok {
			continue
		}
		if v, keep := mapper(raw); keep {
			f[key] = v
		} else {
			delete(f, key)
		}
	}
}

var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "msg", "status",
	"rid", "trace_id", "update_id", "user_id", "chat_id", "handler",
	"command", "cb_key", "outcome", "duration_ms",
	"messages", "kb", "count",
	"mode", "listen", "public_url", "username",
	"backend", "source", "trigger", "http_code", "bytes",
	"invoice_id", "invoice_status", "granted", "subscribers", "active", "next_run",
	"db", "host", "port",
	"err", "err_code", "cause", "retryable", "attempt", "attempts", "backoff_ms",
}
