// README: Rider store backed by PostgreSQL.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"farebox/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Rider, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, phone, balance, updated_at
		FROM riders
		WHERE id = $1`, string(id),
	)
	var r Rider
	err := row.Scan(&r.ID, &r.Name, &r.Phone, &r.Balance, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PGStore) Create(ctx context.Context, r Rider) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO riders (id, name, phone, balance, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		string(r.ID), r.Name, r.Phone, r.Balance, r.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *PGStore) UpdateProfile(ctx context.Context, id types.ID, name, phone string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE riders SET name = $2, phone = $3, updated_at = $4
		WHERE id = $1`, string(id), name, phone, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SetBalance(ctx context.Context, id types.ID, amount int64, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE riders SET balance = $2, updated_at = $3
		WHERE id = $1`, string(id), amount, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustBalance applies delta in a single conditional UPDATE; the row lock
// serializes concurrent adjustments for one rider.
func (s *PGStore) AdjustBalance(ctx context.Context, id types.ID, delta int64, at time.Time) (int64, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE riders SET balance = balance + $2, updated_at = $3
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance`, string(id), delta, at,
	)
	var balance int64
	err := row.Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}
	return 0, ErrInsufficientFunds
}
