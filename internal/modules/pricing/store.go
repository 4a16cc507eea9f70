// README: Fare tier store backed by PostgreSQL.
package pricing

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// LoadTable reads tiers ordered by bound and the fallback amount. ok is false
// when no tiers are configured.
func (s *Store) LoadTable(ctx context.Context) (Table, bool, error) {
	rows, err := s.db.Query(ctx, `
		SELECT upper_km, amount
		FROM fare_tiers
		ORDER BY upper_km ASC`)
	if err != nil {
		return Table{}, false, err
	}
	defer rows.Close()

	var t Table
	for rows.Next() {
		var tier Tier
		if err := rows.Scan(&tier.UpperKm, &tier.Amount); err != nil {
			return Table{}, false, err
		}
		t.Tiers = append(t.Tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return Table{}, false, err
	}
	if len(t.Tiers) == 0 {
		return Table{}, false, nil
	}

	t.Fallback = DefaultTable().Fallback
	row := s.db.QueryRow(ctx, `SELECT COALESCE((SELECT amount FROM fare_fallback LIMIT 1), $1)`, t.Fallback)
	if err := row.Scan(&t.Fallback); err != nil {
		return Table{}, false, err
	}
	return t, true, nil
}
