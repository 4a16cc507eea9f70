// README: Ledger service owns balance reads and mutations for riders.
package ledger

import (
	"context"
	"fmt"
	"log"
	"strings"

	"farebox/internal/clock"
	"farebox/internal/types"
)

type Service struct {
	store Store
	clock clock.Clock
}

func NewService(store Store, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{store: store, clock: clk}
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Rider, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetBalance(ctx context.Context, id types.ID) (int64, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return r.Balance, nil
}

// SetBalance overwrites the balance unconditionally.
func (s *Service) SetBalance(ctx context.Context, id types.ID, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: balance %d", ErrInvalidAmount, amount)
	}
	return s.store.SetBalance(ctx, id, amount, s.clock.Now())
}

// Debit subtracts amount and returns the new balance. The balance is left
// untouched when it would go negative.
func (s *Service) Debit(ctx context.Context, id types.ID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: debit %d", ErrInvalidAmount, amount)
	}
	balance, err := s.store.AdjustBalance(ctx, id, -amount, s.clock.Now())
	if err != nil {
		return 0, err
	}
	log.Printf("ledger debit rider=%s amount=%d balance=%d", string(id), amount, balance)
	return balance, nil
}

func (s *Service) Credit(ctx context.Context, id types.ID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: credit %d", ErrInvalidAmount, amount)
	}
	balance, err := s.store.AdjustBalance(ctx, id, amount, s.clock.Now())
	if err != nil {
		return 0, err
	}
	log.Printf("ledger credit rider=%s amount=%d balance=%d", string(id), amount, balance)
	return balance, nil
}

// Register creates a rider with a zero balance.
func (s *Service) Register(ctx context.Context, id types.ID, name, phone string) (*Rider, error) {
	r := Rider{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Phone:     strings.TrimSpace(phone),
		Balance:   0,
		UpdatedAt: s.clock.Now(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	log.Printf("ledger registered rider=%s", string(id))
	return &r, nil
}

// UpdateProfile overwrites name and phone; the balance is not touched.
func (s *Service) UpdateProfile(ctx context.Context, id types.ID, name, phone string) error {
	return s.store.UpdateProfile(ctx, id, strings.TrimSpace(name), strings.TrimSpace(phone), s.clock.Now())
}
