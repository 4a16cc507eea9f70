// README: Journey history store backed by PostgreSQL; unsettled rows are the manual reconciliation queue.
package journey

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"farebox/internal/types"
)

type PGHistory struct {
	db *pgxpool.Pool
}

func NewPGHistory(db *pgxpool.Pool) *PGHistory {
	return &PGHistory{db: db}
}

func (h *PGHistory) Append(ctx context.Context, j *Journey) error {
	var endLat, endLng *float64
	if j.End != nil {
		endLat, endLng = &j.End.Lat, &j.End.Lng
	}
	var abortReason *string
	if j.AbortReason != "" {
		abortReason = &j.AbortReason
	}
	_, err := h.db.Exec(ctx, `
		INSERT INTO journeys (
			id, rider_id, state,
			start_lat, start_lng, end_lat, end_lng,
			distance_km, fare, balance_after, abort_reason,
			started_at, ended_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13
		)
		ON CONFLICT (id) DO NOTHING`,
		string(j.ID), string(j.RiderID), string(j.State),
		j.Start.Lat, j.Start.Lng, endLat, endLng,
		j.DistanceKm, j.Fare, j.Balance, abortReason,
		j.StartedAt, j.EndedAt,
	)
	return err
}

// Unsettled lists journeys aborted for lack of funds, newest first.
func (h *PGHistory) Unsettled(ctx context.Context, limit int) ([]Journey, error) {
	rows, err := h.db.Query(ctx, `
		SELECT id, rider_id, state, start_lat, start_lng, end_lat, end_lng,
		       distance_km, fare, balance_after, started_at, ended_at
		FROM journeys
		WHERE state = $1 AND abort_reason = $2
		ORDER BY ended_at DESC
		LIMIT $3`, string(StateAborted), ReasonInsufficientFunds, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Journey
	for rows.Next() {
		var j Journey
		var endLat, endLng *float64
		if err := rows.Scan(
			&j.ID, &j.RiderID, &j.State, &j.Start.Lat, &j.Start.Lng, &endLat, &endLng,
			&j.DistanceKm, &j.Fare, &j.Balance, &j.StartedAt, &j.EndedAt,
		); err != nil {
			return nil, err
		}
		if endLat != nil && endLng != nil {
			j.End = &types.Point{Lat: *endLat, Lng: *endLng}
		}
		j.AbortReason = ReasonInsufficientFunds
		out = append(out, j)
	}
	return out, rows.Err()
}
