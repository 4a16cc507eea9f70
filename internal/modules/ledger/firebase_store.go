// README: Rider store backed by Firebase RTDB, keeping the /<root>/<id>/info record layout used by deployed readers.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"firebase.google.com/go/v4/db"

	"farebox/internal/types"
)

const rtdbTimestampLayout = "2006-01-02 15:04:05"

var errBalanceNotNumeric = errors.New("stored balance is not a number")

// RTDB field names. Upper-case keys predate this service.
const (
	fieldID        = "ID"
	fieldName      = "NAME"
	fieldPhone     = "PH"
	fieldBalance   = "BALANCE"
	fieldTimestamp = "timestamp"
)

// rtdbInfo mirrors the info node of one rider. BALANCE may have been written
// as a float by older tooling; reads floor it, adjustments keep the fraction.
type rtdbInfo struct {
	Name      string  `json:"NAME"`
	Phone     string  `json:"PH"`
	Balance   float64 `json:"BALANCE"`
	Timestamp string  `json:"timestamp"`
}

// FirebaseStore reads and writes riders under root. Every write goes through
// an RTDB transaction so concurrent debits for one rider cannot lose updates.
type FirebaseStore struct {
	root *db.Ref
}

func NewFirebaseStore(client *db.Client, rootPath string) *FirebaseStore {
	return &FirebaseStore{root: client.NewRef(rootPath)}
}

func (s *FirebaseStore) infoRef(id types.ID) *db.Ref {
	return s.root.Child(string(id)).Child("info")
}

func (s *FirebaseStore) Get(ctx context.Context, id types.ID) (*Rider, error) {
	var info *rtdbInfo
	if err := s.infoRef(id).Get(ctx, &info); err != nil {
		return nil, fmt.Errorf("reading rider %s: %w", string(id), err)
	}
	if info == nil {
		return nil, ErrNotFound
	}
	r := &Rider{
		ID:      id,
		Name:    info.Name,
		Phone:   info.Phone,
		Balance: balanceUnits(id, info.Balance),
	}
	if ts, err := time.ParseInLocation(rtdbTimestampLayout, info.Timestamp, time.UTC); err == nil {
		r.UpdatedAt = ts
	}
	return r, nil
}

func (s *FirebaseStore) Create(ctx context.Context, r Rider) error {
	err := s.infoRef(r.ID).Transaction(ctx, func(tn db.TransactionNode) (interface{}, error) {
		var node map[string]interface{}
		if err := tn.Unmarshal(&node); err != nil {
			return nil, err
		}
		if node != nil {
			return nil, ErrAlreadyExists
		}
		return map[string]interface{}{
			fieldID:        string(r.ID),
			fieldName:      r.Name,
			fieldPhone:     r.Phone,
			fieldBalance:   r.Balance,
			fieldTimestamp: r.UpdatedAt.UTC().Format(rtdbTimestampLayout),
		}, nil
	})
	return s.txErr("creating", r.ID, err)
}

func (s *FirebaseStore) UpdateProfile(ctx context.Context, id types.ID, name, phone string, at time.Time) error {
	err := s.mutate(ctx, id, at, func(node map[string]interface{}) error {
		node[fieldName] = name
		node[fieldPhone] = phone
		return nil
	})
	return s.txErr("updating", id, err)
}

func (s *FirebaseStore) SetBalance(ctx context.Context, id types.ID, amount int64, at time.Time) error {
	err := s.mutate(ctx, id, at, func(node map[string]interface{}) error {
		node[fieldBalance] = amount
		return nil
	})
	return s.txErr("setting balance of", id, err)
}

func (s *FirebaseStore) AdjustBalance(ctx context.Context, id types.ID, delta int64, at time.Time) (int64, error) {
	var next float64
	err := s.mutate(ctx, id, at, func(node map[string]interface{}) error {
		current, err := storedBalance(node)
		if err != nil {
			return err
		}
		next = current + float64(delta)
		if next < 0 {
			return ErrInsufficientFunds
		}
		if next == math.Trunc(next) {
			node[fieldBalance] = int64(next)
		} else {
			node[fieldBalance] = next
		}
		return nil
	})
	if err != nil {
		return 0, s.txErr("adjusting balance of", id, err)
	}
	return balanceUnits(id, next), nil
}

// storedBalance reads BALANCE from a raw info node. A missing balance is zero.
func storedBalance(node map[string]interface{}) (float64, error) {
	switch v := node[fieldBalance].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: %T %v", errBalanceNotNumeric, v, v)
	}
}

// mutate runs fn inside a transaction on the rider's info node and stamps the
// timestamp. The transaction may retry fn when the node changed concurrently.
func (s *FirebaseStore) mutate(ctx context.Context, id types.ID, at time.Time, fn func(map[string]interface{}) error) error {
	return s.infoRef(id).Transaction(ctx, func(tn db.TransactionNode) (interface{}, error) {
		var node map[string]interface{}
		if err := tn.Unmarshal(&node); err != nil {
			return nil, err
		}
		if node == nil {
			return nil, ErrNotFound
		}
		if err := fn(node); err != nil {
			return nil, err
		}
		node[fieldTimestamp] = at.UTC().Format(rtdbTimestampLayout)
		return node, nil
	})
}

func (s *FirebaseStore) txErr(op string, id types.ID, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrInsufficientFunds):
		return err
	default:
		return fmt.Errorf("%s rider %s: %w", op, string(id), err)
	}
}

func balanceUnits(id types.ID, v float64) int64 {
	units := int64(math.Floor(v))
	if float64(units) != v {
		log.Printf("fractional balance floored rider=%s stored=%v units=%d", string(id), v, units)
	}
	return units
}
