package state

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/combogate/core/logger"
	"github.com/m3rciful/combogate/internal/metrics"
)

// ErrEmptyContent rejects blank content; the content field is never empty.
var ErrEmptyContent = errors.New("state: content must not be empty")

// Controller owns the in-memory document and its backend. Every mutation is
// applied and saved inside one critical section, so concurrent handlers never
// interleave a read-modify-write.
type Controller struct {
	mu      sync.Mutex
	backend Backend
	doc     Document
	now     func() time.Time

	// fresh is set when the backend held no document at open.
	fresh bool
	// dirty is set while the in-memory document has a change the backend
	// rejected.
	dirty bool
}

// Open loads the document from backend. Loading fails soft: a missing or
// unreadable document is replaced with DefaultDocument.
func Open(ctx context.Context, backend Backend) *Controller {
	c := &Controller{backend: backend, now: time.Now}
	start := time.Now()
	doc, err := backend.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		doc = DefaultDocument()
		c.fresh = true
		logger.Store.Info("state initialized with defaults",
			slog.String("event", "state.load"),
			slog.String("backend", backend.Name()),
			slog.String("outcome", "empty"),
		)
	case err != nil:
		doc = DefaultDocument()
		logger.Store.Error("state load failed, using defaults",
			slog.String("event", "state.load"),
			slog.String("backend", backend.Name()),
			slog.String("err", err.Error()),
		)
	default:
		logger.Store.Info("state loaded",
			slog.String("event", "state.load"),
			slog.String("backend", backend.Name()),
			slog.Int("subscribers", countEntitled(doc.Subscriptions)),
			slog.Bool("active", doc.Active),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	}
	if doc.Subscriptions == nil {
		doc.Subscriptions = map[int64]bool{}
	}
	c.doc = doc
	return c
}

// Fresh reports whether the backend had no stored document when the
// controller was opened. A document that failed to load is not fresh.
func (c *Controller) Fresh() bool { return c.fresh }

// Backend returns the persistence backend.
func (c *Controller) Backend() Backend { return c.backend }

// Snapshot returns the current global content state.
func (c *Controller) Snapshot() GlobalContentState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Global()
}

// Document returns a deep copy of the whole document.
func (c *Controller) Document() Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Clone()
}

// IsEntitled reports the stored entitlement; absence means false.
func (c *Controller) IsEntitled(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Subscriptions[userID]
}

// Subscribers counts users holding an entitlement.
func (c *Controller) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return countEntitled(c.doc.Subscriptions)
}

// SetActive toggles global activation.
func (c *Controller) SetActive(ctx context.Context, active bool) error {
	_, err := c.mutate(ctx, "set_active", func(d *Document) bool {
		if d.Active == active {
			return false
		}
		d.Active = active
		return true
	})
	return err
}

// SetContent replaces the content with admin supplied text.
func (c *Controller) SetContent(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	_, err := c.mutate(ctx, "set_content", func(d *Document) bool {
		if d.Content == content {
			return false
		}
		d.Content = content
		return true
	})
	return err
}

// SetSourceURL configures the refresh source; an empty url disables automation.
func (c *Controller) SetSourceURL(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	_, err := c.mutate(ctx, "set_source", func(d *Document) bool {
		if d.SourceURL == url {
			return false
		}
		d.SourceURL = url
		return true
	})
	return err
}

// Grant records an entitlement. granted is true only when the user was not
// entitled before the call. A save error is returned alongside the in-memory result.
func (c *Controller) Grant(ctx context.Context, userID int64) (bool, error) {
	return c.mutate(ctx, "grant", func(d *Document) bool {
		if d.Subscriptions[userID] {
			return false
		}
		d.Subscriptions[userID] = true
		return true
	})
}

// UpdateContentIfChanged commits fetched content unless it is blank or
// identical to the current value.
func (c *Controller) UpdateContentIfChanged(ctx context.Context, content string) (bool, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return false, ErrEmptyContent
	}
	return c.mutate(ctx, "refresh_content", func(d *Document) bool {
		if d.Content == content {
			return false
		}
		d.Content = content
		return true
	})
}

// Flush retries the save of a mutation the backend rejected earlier. It is a
// no-op when the stored document already matches memory, so an unreadable
// stored document is never replaced by defaults on its own.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	return c.saveLocked(ctx, "flush")
}

func (c *Controller) mutate(ctx context.Context, op string, apply func(*Document) bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !apply(&c.doc) {
		return false, nil
	}
	c.doc.UpdatedAt = c.now().UTC()
	return true, c.saveLocked(ctx, op)
}

func (c *Controller) saveLocked(ctx context.Context, op string) error {
	start := time.Now()
	err := c.backend.Save(ctx, c.doc)
	metrics.StateSaves.WithLabelValues(c.backend.Name(), metrics.Result(err)).Inc()
	c.dirty = err != nil
	if err != nil {
		logger.FromContext(ctx).With("component", "store").Error("state save failed",
			slog.String("event", "state.save"),
			slog.String("op", op),
			slog.String("backend", c.backend.Name()),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.Store.Debug("state saved",
		slog.String("event", "state.save"),
		slog.String("op", op),
		slog.String("backend", c.backend.Name()),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

func countEntitled(subs map[int64]bool) int {
	n := 0
	for _, ok := range subs {
		if ok {
			n++
		}
	}
	return n
}
