// README: Distance-tiered fare table.
package pricing

// Tier charges Amount for distances in (previous UpperKm, UpperKm].
type Tier struct {
	UpperKm float64
	Amount  int64
}

// Table is an ordered set of tiers plus the amount charged for any distance
// that falls outside them (zero, negative or beyond the last bound).
type Table struct {
	Tiers    []Tier
	Fallback int64
}

func DefaultTable() Table {
	return Table{
		Tiers: []Tier{
			{UpperKm: 5, Amount: 20},
			{UpperKm: 10, Amount: 30},
			{UpperKm: 15, Amount: 40},
			{UpperKm: 20, Amount: 50},
		},
		Fallback: 5,
	}
}

// Fare returns the amount for distanceKm. Boundaries belong to the lower tier.
func (t Table) Fare(distanceKm float64) int64 {
	if !(distanceKm > 0) {
		return t.Fallback
	}
	for _, tier := range t.Tiers {
		if distanceKm <= tier.UpperKm {
			return tier.Amount
		}
	}
	return t.Fallback
}

// valid reports whether tiers are non-empty and strictly ascending.
func (t Table) valid() bool {
	if len(t.Tiers) == 0 {
		return false
	}
	prev := 0.0
	for _, tier := range t.Tiers {
		if tier.UpperKm <= prev || tier.Amount < 0 {
			return false
		}
		prev = tier.UpperKm
	}
	return t.Fallback >= 0
}
