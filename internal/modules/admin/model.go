// README: Admin allow-list, operator commands and money parsing.
package admin

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"farebox/internal/types"
)

var (
	ErrNotAdmin     = errors.New("not an admin")
	ErrInvalidInput = errors.New("invalid input")
)

// AllowList is fixed at start-up from configuration.
type AllowList struct {
	ids map[types.ID]struct{}
}

func NewAllowList(ids []string) *AllowList {
	l := &AllowList{ids: make(map[types.ID]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			l.ids[types.ID(id)] = struct{}{}
		}
	}
	return l
}

func (l *AllowList) IsAdmin(id types.ID) bool {
	if l == nil {
		return false
	}
	_, ok := l.ids[id]
	return ok
}

func (l *AllowList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.ids)
}

type RegisterCommand struct {
	AdminID types.ID
	RiderID types.ID
	Name    string
	Phone   string
}

type ProfileCommand struct {
	AdminID types.ID
	RiderID types.ID
	Name    string
	Phone   string
}

// RechargeCommand carries the amount as typed by the operator.
type RechargeCommand struct {
	AdminID types.ID
	RiderID types.ID
	Amount  string
}

// ParseAmount accepts a positive whole number of currency units. Text such
// as "50", "50.0" or " 1e2 " is fine; "abc", "0", "-5" and "2.5" are not.
func ParseAmount(raw string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrInvalidInput
	}
	if !d.IsPositive() || !d.IsInteger() || d.GreaterThan(decimal.NewFromInt(maxAmount)) {
		return 0, ErrInvalidInput
	}
	return d.IntPart(), nil
}

// maxAmount caps a single recharge.
const maxAmount = 1_000_000_000
