package state

import (
	"context"
	"errors"
)

// ErrNotFound reports that the backend holds no document yet.
var ErrNotFound = errors.New("state: document not found")

// Backend persists the whole state document. Implementations must make Save
// replace the previous document wholesale.
type Backend interface {
	Name() string
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
	Close() error
}
