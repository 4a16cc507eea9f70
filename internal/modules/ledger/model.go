// README: Rider identity record and ledger errors.
package ledger

import (
	"errors"
	"time"

	"farebox/internal/types"
)

var (
	ErrNotFound          = errors.New("rider not found")
	ErrAlreadyExists     = errors.New("rider already registered")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Rider is the identity record keyed by the card token. Balance is in whole
// currency units and never negative.
type Rider struct {
	ID        types.ID
	Name      string
	Phone     string
	Balance   int64
	UpdatedAt time.Time
}
