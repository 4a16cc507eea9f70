package pricing

import (
	"context"
	"testing"

	"farebox/internal/testdb"
)

func TestStoreLoadTable(t *testing.T) {
	db := testdb.Open(t, "fare_tiers", "fare_fallback")
	store := NewStore(db)
	ctx := context.Background()

	if _, ok, err := store.LoadTable(ctx); err != nil || ok {
		t.Fatalf("LoadTable() on empty table = ok %v, err %v", ok, err)
	}

	if _, err := db.Exec(ctx, `INSERT INTO fare_tiers (upper_km, amount) VALUES (10, 25), (3, 10)`); err != nil {
		t.Fatalf("seed tiers: %v", err)
	}
	table, ok, err := store.LoadTable(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadTable() = ok %v, err %v", ok, err)
	}
	if len(table.Tiers) != 2 || table.Tiers[0].UpperKm != 3 || table.Tiers[1].Amount != 25 {
		t.Errorf("tiers = %+v", table.Tiers)
	}
	if table.Fallback != DefaultTable().Fallback {
		t.Errorf("fallback = %d, want default", table.Fallback)
	}

	if _, err := db.Exec(ctx, `INSERT INTO fare_fallback (amount) VALUES (8)`); err != nil {
		t.Fatalf("seed fallback: %v", err)
	}
	svc := NewService(store)
	if err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := svc.Fare(2); got != 10 {
		t.Errorf("Fare(2) = %d, want 10", got)
	}
	if got := svc.Fare(40); got != 8 {
		t.Errorf("Fare(40) = %d, want 8", got)
	}
}
