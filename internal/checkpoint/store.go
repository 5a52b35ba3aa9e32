package checkpoint

import (
	"context"
	"errors"

	"cleo-screening/internal/session"
)

// ErrNotFound is returned when no checkpoint exists for a thread.
var ErrNotFound = errors.New("checkpoint not found")

// ErrVersionTooNew is returned when a stored snapshot was written by a
// newer format than this build understands.
var ErrVersionTooNew = errors.New("checkpoint format version too new")

// Store persists one snapshot per thread id.
type Store interface {
	Load(ctx context.Context, threadID string) (*session.State, error)
	Save(ctx context.Context, state *session.State) error
	Delete(ctx context.Context, threadID string) error
}
