// README: Journey aggregate, states and the transition table.
package journey

import (
	"time"

	"farebox/internal/types"
)

type State string

const (
	StateIdle       State = "idle"
	StateInProgress State = "in_progress"
	StateSettled    State = "settled"
	StateAborted    State = "aborted"
)

// Abort reasons recorded on aborted journeys.
const (
	ReasonNoFix             = "no_fix"
	ReasonFixError          = "fix_error"
	ReasonCancelled         = "cancelled"
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonLedgerError       = "ledger_error"
	ReasonOperator          = "operator_abort"
)

// Journey lives in process memory between tap-in and tap-out. Settled and
// aborted journeys are handed to history and events, never kept.
type Journey struct {
	ID          types.ID
	RiderID     types.ID
	State       State
	Start       types.Point
	End         *types.Point
	StartedAt   time.Time
	EndedAt     *time.Time
	DistanceKm  float64
	Fare        int64
	Balance     int64
	AbortReason string
}

func (j *Journey) clone() *Journey {
	out := *j
	if j.End != nil {
		e := *j.End
		out.End = &e
	}
	if j.EndedAt != nil {
		t := *j.EndedAt
		out.EndedAt = &t
	}
	return &out
}

// AllowedTransitions represents the journey state flow as code. Settled and
// aborted are terminal for a journey instance; the rider is idle again.
var AllowedTransitions = map[State][]State{
	StateIdle:       {StateInProgress, StateAborted},
	StateInProgress: {StateSettled, StateAborted},
}

func CanTransition(from, to State) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type EventType string

const (
	EventStarted EventType = "journey.started"
	EventSettled EventType = "journey.settled"
	EventAborted EventType = "journey.aborted"
)

// Event is the wire shape published for every journey transition.
type Event struct {
	Type       EventType    `json:"type"`
	JourneyID  types.ID     `json:"journey_id"`
	RiderID    types.ID     `json:"rider_id"`
	State      State        `json:"state"`
	Start      *types.Point `json:"start,omitempty"`
	End        *types.Point `json:"end,omitempty"`
	DistanceKm float64      `json:"distance_km,omitempty"`
	Fare       int64        `json:"fare,omitempty"`
	Balance    int64        `json:"balance,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	At         time.Time    `json:"at"`
}

func newEvent(t EventType, j *Journey, at time.Time) Event {
	e := Event{
		Type:       t,
		JourneyID:  j.ID,
		RiderID:    j.RiderID,
		State:      j.State,
		End:        j.End,
		DistanceKm: j.DistanceKm,
		Fare:       j.Fare,
		Balance:    j.Balance,
		Reason:     j.AbortReason,
		At:         at,
	}
	if !j.StartedAt.IsZero() {
		start := j.Start
		e.Start = &start
	}
	return e
}
