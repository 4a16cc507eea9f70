package ledger

import (
	"context"
	"time"

	"farebox/internal/types"
)

// Store persists riders. AdjustBalance must apply delta atomically for the
// rider and fail with ErrInsufficientFunds instead of going below zero.
type Store interface {
	Get(ctx context.Context, id types.ID) (*Rider, error)
	Create(ctx context.Context, r Rider) error
	UpdateProfile(ctx context.Context, id types.ID, name, phone string, at time.Time) error
	SetBalance(ctx context.Context, id types.ID, amount int64, at time.Time) error
	AdjustBalance(ctx context.Context, id types.ID, delta int64, at time.Time) (int64, error)
}
