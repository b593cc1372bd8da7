package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/combogate/core/logger"
)

// DefaultContent is served until an admin or the refresh scheduler sets real content.
const DefaultContent = "Combo codes are not published yet. Check back soon!"

// GlobalContentState is the singleton content record shown to users.
type GlobalContentState struct {
	Active    bool
	Content   string
	SourceURL string
}

// Document is the persisted unit: every entitlement plus the global content state.
type Document struct {
	Subscriptions map[int64]bool
	Active        bool
	Content       string
	SourceURL     string
	UpdatedAt     time.Time
}

// DefaultDocument returns the state used when nothing was persisted yet.
func DefaultDocument() Document {
	return Document{
		Subscriptions: map[int64]bool{},
		Content:       DefaultContent,
	}
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := d
	out.Subscriptions = make(map[int64]bool, len(d.Subscriptions))
	for id, ok := range d.Subscriptions {
		out.Subscriptions[id] = ok
	}
	return out
}

// Global returns the content part of the document.
func (d Document) Global() GlobalContentState {
	return GlobalContentState{Active: d.Active, Content: d.Content, SourceURL: d.SourceURL}
}

type wireDocument struct {
	Subscriptions map[string]bool `json:"subscriptions"`
	IsActive      *bool           `json:"is_active"`
	ComboContent  *string         `json:"combo_content"`
	AutoSourceURL *string         `json:"auto_source_url"`
	UpdatedAt     string          `json:"updated_at,omitempty"`
}

// MarshalJSON writes the document in its persisted layout.
func (d Document) MarshalJSON() ([]byte, error) {
	subs := make(map[string]bool, len(d.Subscriptions))
	for id, ok := range d.Subscriptions {
		subs[strconv.FormatInt(id, 10)] = ok
	}
	content := d.Content
	if strings.TrimSpace(content) == "" {
		content = DefaultContent
	}
	w := wireDocument{
		Subscriptions: subs,
		IsActive:      &d.Active,
		ComboContent:  &content,
		AutoSourceURL: &d.SourceURL,
	}
	if !d.UpdatedAt.IsZero() {
		w.UpdatedAt = d.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the persisted layout, applying defaults for missing
// keys and skipping subscription keys that are not integer user ids.
func (d *Document) UnmarshalJSON(data []byte) error {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("state: decode document: %w", err)
	}
	doc := DefaultDocument()
	var skipped []string
	for key, ok := range w.Subscriptions {
		id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			skipped = append(skipped, key)
			continue
		}
		doc.Subscriptions[id] = ok
	}
	if len(skipped) > 0 {
		sort.Strings(skipped)
		logger.Store.Warn("skipped malformed subscription keys",
			slog.String("event", "state.decode"),
			slog.Int("count", len(skipped)),
			slog.String("keys", logger.JoinLimit(skipped, 5)),
		)
	}
	if w.IsActive != nil {
		doc.Active = *w.IsActive
	}
	if w.ComboContent != nil && strings.TrimSpace(*w.ComboContent) != "" {
		doc.Content = *w.ComboContent
	}
	if w.AutoSourceURL != nil {
		doc.SourceURL = strings.TrimSpace(*w.AutoSourceURL)
	}
	if w.UpdatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, w.UpdatedAt); err == nil {
			doc.UpdatedAt = ts
		}
	}
	*d = doc
	return nil
}

// Decode parses a persisted document.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return DefaultDocument(), err
	}
	return doc, nil
}

// Encode renders the persisted form of doc.
func Encode(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}
