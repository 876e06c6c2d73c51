package port

import (
	"context"
	"errors"

	"github.com/rl1809/bizdesk/internal/core/store"
)

var ErrNotFound = errors.New("not found")

type DatabaseRepository interface {
	// EnsureSchema creates the journal tables if they are missing
	EnsureSchema(ctx context.Context) error

	// Apply persists one batch of store actions in a single transaction
	Apply(ctx context.Context, batch []store.Action) error

	// LoadState reads the persisted aggregate, ok is false when nothing was ever written
	LoadState(ctx context.Context) (state store.State, ok bool, err error)
}
