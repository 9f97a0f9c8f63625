package session

import (
	"context"
	"errors"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/navigation"
)

// ErrNotFound is returned by Update and NextSeq when the session does not exist
var ErrNotFound = errors.New("session not found")

// Store persists dashboard view state between requests
type Store interface {
	// Get returns nil, nil if the session does not exist or has expired
	Get(ctx context.Context, id string) (*navigation.ViewState, error)
	Save(ctx context.Context, state *navigation.ViewState) error

	// Update applies fn to the stored state atomically and saves the result
	Update(ctx context.Context, id string, fn func(*navigation.ViewState) error) (*navigation.ViewState, error)

	// NextSeq issues the next navigation sequence token of a saved session
	NextSeq(ctx context.Context, id string) (int64, error)
	// LatestSeq returns the most recently issued token, 0 if none
	LatestSeq(ctx context.Context, id string) (int64, error)

	Delete(ctx context.Context, id string) error
}
