// README: Pricing service maps journey distance to a fare.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

var ErrInvalidTable = errors.New("invalid fare table")

type TableLoader interface {
	LoadTable(ctx context.Context) (Table, bool, error)
}

type Service struct {
	store TableLoader

	mu    sync.RWMutex
	table Table
}

// NewService starts with the default table. store may be nil.
func NewService(store TableLoader) *Service {
	return &Service{store: store, table: DefaultTable()}
}

func (s *Service) Fare(distanceKm float64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Fare(distanceKm)
}

func (s *Service) Table() Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.table
	out.Tiers = append([]Tier(nil), s.table.Tiers...)
	return out
}

// Reload replaces the active table with the stored one. With no store or no
// stored tiers the current table is kept.
func (s *Service) Reload(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	t, ok, err := s.store.LoadTable(ctx)
	if err != nil {
		return fmt.Errorf("loading fare table: %w", err)
	}
	if !ok {
		log.Printf("no fare tiers stored, keeping %d default tiers", len(s.Table().Tiers))
		return nil
	}
	if !t.valid() {
		return ErrInvalidTable
	}
	s.mu.Lock()
	s.table = t
	s.mu.Unlock()
	log.Printf("fare table loaded tiers=%d fallback=%d", len(t.Tiers), t.Fallback)
	return nil
}
