// README: Admin service gates ledger mutations behind the allow-list.
package admin

import (
	"context"
	"fmt"
	"log"
	"strings"

	"farebox/internal/modules/ledger"
	"farebox/internal/types"
)

type Ledger interface {
	Register(ctx context.Context, id types.ID, name, phone string) (*ledger.Rider, error)
	UpdateProfile(ctx context.Context, id types.ID, name, phone string) error
	Credit(ctx context.Context, id types.ID, amount int64) (int64, error)
}

type Metrics interface {
	Recharged(amount int64)
}

type Service struct {
	admins  *AllowList
	ledger  Ledger
	metrics Metrics
}

func NewService(admins *AllowList, l Ledger, m Metrics) *Service {
	return &Service{admins: admins, ledger: l, metrics: m}
}

func (s *Service) IsAdmin(id types.ID) bool {
	return s.admins.IsAdmin(id)
}

// Register creates a rider with a zero balance. An existing rider is left
// alone and ledger.ErrAlreadyExists is returned.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*ledger.Rider, error) {
	if err := s.authorize(cmd.AdminID); err != nil {
		return nil, err
	}
	if err := validateProfile(cmd.RiderID, cmd.Name, cmd.Phone); err != nil {
		return nil, err
	}
	r, err := s.ledger.Register(ctx, cmd.RiderID, cmd.Name, cmd.Phone)
	if err != nil {
		return nil, err
	}
	log.Printf("admin registered rider=%s admin=%s", string(cmd.RiderID), string(cmd.AdminID))
	return r, nil
}

func (s *Service) UpdateProfile(ctx context.Context, cmd ProfileCommand) error {
	if err := s.authorize(cmd.AdminID); err != nil {
		return err
	}
	if err := validateProfile(cmd.RiderID, cmd.Name, cmd.Phone); err != nil {
		return err
	}
	if err := s.ledger.UpdateProfile(ctx, cmd.RiderID, cmd.Name, cmd.Phone); err != nil {
		return err
	}
	log.Printf("admin updated rider=%s admin=%s", string(cmd.RiderID), string(cmd.AdminID))
	return nil
}

// Recharge credits the parsed amount and returns the new balance.
func (s *Service) Recharge(ctx context.Context, cmd RechargeCommand) (int64, error) {
	if err := s.authorize(cmd.AdminID); err != nil {
		return 0, err
	}
	if strings.TrimSpace(string(cmd.RiderID)) == "" {
		return 0, fmt.Errorf("%w: rider id required", ErrInvalidInput)
	}
	amount, err := ParseAmount(cmd.Amount)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", err, cmd.Amount)
	}
	balance, err := s.ledger.Credit(ctx, cmd.RiderID, amount)
	if err != nil {
		return 0, err
	}
	log.Printf("admin recharge rider=%s admin=%s amount=%d balance=%d",
		string(cmd.RiderID), string(cmd.AdminID), amount, balance)
	if s.metrics != nil {
		s.metrics.Recharged(amount)
	}
	return balance, nil
}

func (s *Service) authorize(adminID types.ID) error {
	if !s.admins.IsAdmin(adminID) {
		log.Printf("admin denied caller=%s", string(adminID))
		return ErrNotAdmin
	}
	return nil
}

func validateProfile(id types.ID, name, phone string) error {
	if strings.TrimSpace(string(id)) == "" {
		return fmt.Errorf("%w: rider id required", ErrInvalidInput)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	for _, c := range strings.TrimSpace(phone) {
		if (c < '0' || c > '9') && c != '+' && c != ' ' && c != '-' {
			return fmt.Errorf("%w: phone %q", ErrInvalidInput, phone)
		}
	}
	return nil
}
