package journey

import (
	"context"
	"testing"
	"time"

	"farebox/internal/testdb"
	"farebox/internal/types"
)

func TestPGHistory(t *testing.T) {
	h := NewPGHistory(testdb.Open(t, "journeys"))
	ctx := context.Background()
	started := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	ended := started.Add(25 * time.Minute)
	end := types.Point{Lat: 13.08, Lng: 77.5946}

	settled := &Journey{
		ID: "j-settled", RiderID: "X", State: StateSettled,
		Start: types.Point{Lat: 12.9716, Lng: 77.5946}, End: &types.Point{Lat: 12.9352, Lng: 77.6245},
		StartedAt: started, EndedAt: &ended, DistanceKm: 5.18, Fare: 30, Balance: 70,
	}
	unsettled := &Journey{
		ID: "j-short", RiderID: "Y", State: StateAborted,
		Start: types.Point{Lat: 12.9716, Lng: 77.5946}, End: &end,
		StartedAt: started, EndedAt: &ended, DistanceKm: 12.05, Fare: 40, Balance: 25,
		AbortReason: ReasonInsufficientFunds,
	}
	noFix := &Journey{
		ID: "j-nofix", RiderID: "X", State: StateAborted,
		Start: types.Point{Lat: 12.9716, Lng: 77.5946}, StartedAt: started, EndedAt: &ended,
		AbortReason: ReasonNoFix,
	}
	for _, j := range []*Journey{settled, unsettled, noFix, unsettled} {
		if err := h.Append(ctx, j); err != nil {
			t.Fatalf("Append(%s) error = %v", j.ID, err)
		}
	}

	got, err := h.Unsettled(ctx, 10)
	if err != nil {
		t.Fatalf("Unsettled() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Unsettled() returned %d journeys, want 1", len(got))
	}
	j := got[0]
	if j.ID != "j-short" || j.Fare != 40 || j.End == nil || j.End.Lat != 13.08 {
		t.Errorf("Unsettled()[0] = %+v", j)
	}
}
