// README: Journey service turns taps into start/settle transitions against the ledger.
package journey

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"farebox/internal/clock"
	"farebox/internal/modules/ledger"
	"farebox/internal/modules/location"
	"farebox/internal/types"
)

var (
	ErrBadRequest        = errors.New("bad request")
	ErrNoJourney         = errors.New("no journey in progress")
	ErrJourneyInProgress = errors.New("journey already in progress")
	ErrTapInProgress     = errors.New("tap already being processed")
	ErrDuplicateTap      = errors.New("duplicate tap")
	ErrInvalidState      = errors.New("invalid state transition")
)

const DefaultMinCharge = 5

type Ledger interface {
	GetBalance(ctx context.Context, id types.ID) (int64, error)
	Debit(ctx context.Context, id types.ID, amount int64) (int64, error)
}

type FixAcquirer interface {
	AcquireFix(ctx context.Context) (types.Point, error)
}

type FareCalculator interface {
	Fare(distanceKm float64) int64
}

// TapGuard drops repeated reads of a card that is still on the reader.
type TapGuard interface {
	Allow(ctx context.Context, id types.ID) (bool, error)
}

type EventPublisher interface {
	PublishJourney(ctx context.Context, e Event) error
}

type History interface {
	Append(ctx context.Context, j *Journey) error
}

type Metrics interface {
	JourneyStarted()
	JourneySettled(fare int64)
	JourneyAborted(reason string)
}

// Deps holds collaborators. Ledger, Fixes and Fares are required; the rest
// may be nil.
type Deps struct {
	Ledger  Ledger
	Fixes   FixAcquirer
	Fares   FareCalculator
	Guard   TapGuard
	Events  EventPublisher
	History History
	Metrics Metrics
	Clock   clock.Clock
}

type Config struct {
	MinCharge int64
}

type Service struct {
	ledger    Ledger
	fixes     FixAcquirer
	fares     FareCalculator
	guard     TapGuard
	events    EventPublisher
	history   History
	metrics   Metrics
	clock     clock.Clock
	minCharge int64

	mu     sync.Mutex
	active map[types.ID]*Journey
	busy   map[types.ID]struct{}
}

func NewService(deps Deps, cfg Config) *Service {
	clk := deps.Clock
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		ledger:    deps.Ledger,
		fixes:     deps.Fixes,
		fares:     deps.Fares,
		guard:     deps.Guard,
		events:    deps.Events,
		history:   deps.History,
		metrics:   deps.Metrics,
		clock:     clk,
		minCharge: cfg.MinCharge,
		active:    make(map[types.ID]*Journey),
		busy:      make(map[types.ID]struct{}),
	}
}

// Tap starts a journey for an idle rider and settles the rider's journey
// otherwise.
func (s *Service) Tap(ctx context.Context, riderID types.ID) (*Journey, error) {
	if riderID == "" {
		return nil, ErrBadRequest
	}
	if s.guard != nil {
		ok, err := s.guard.Allow(ctx, riderID)
		switch {
		case err != nil:
			log.Printf("tap guard unavailable rider=%s err=%v", string(riderID), err)
		case !ok:
			return nil, ErrDuplicateTap
		}
	}

	release, err := s.claim(riderID)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, ok := s.Current(riderID); ok {
		return s.end(ctx, riderID)
	}
	return s.start(ctx, riderID)
}

// Start begins a journey. It fails with ErrJourneyInProgress when the rider
// already has one.
func (s *Service) Start(ctx context.Context, riderID types.ID) (*Journey, error) {
	if riderID == "" {
		return nil, ErrBadRequest
	}
	release, err := s.claim(riderID)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, ok := s.Current(riderID); ok {
		return nil, ErrJourneyInProgress
	}
	return s.start(ctx, riderID)
}

// End settles the rider's journey.
func (s *Service) End(ctx context.Context, riderID types.ID) (*Journey, error) {
	if riderID == "" {
		return nil, ErrBadRequest
	}
	release, err := s.claim(riderID)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.end(ctx, riderID)
}

// Abort discards the rider's journey without charging.
func (s *Service) Abort(ctx context.Context, riderID types.ID) (*Journey, error) {
	release, err := s.claim(riderID)
	if err != nil {
		return nil, err
	}
	defer release()

	j, ok := s.take(riderID)
	if !ok {
		return nil, ErrNoJourney
	}
	s.finishAborted(ctx, j, ReasonOperator)
	return j.clone(), nil
}

// Current returns a copy of the rider's in-progress journey.
func (s *Service) Current(riderID types.ID) (*Journey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.active[riderID]
	if !ok {
		return nil, false
	}
	return j.clone(), true
}

func (s *Service) start(ctx context.Context, riderID types.ID) (*Journey, error) {
	balance, err := s.ledger.GetBalance(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if balance < s.minCharge {
		log.Printf("journey refused rider=%s balance=%d min_charge=%d", string(riderID), balance, s.minCharge)
		return nil, fmt.Errorf("%w: balance %d below minimum charge %d", ledger.ErrInsufficientFunds, balance, s.minCharge)
	}

	j := &Journey{ID: newID(), RiderID: riderID, State: StateIdle, Balance: balance}
	fix, err := s.fixes.AcquireFix(ctx)
	if err != nil {
		if terr := s.transition(j, StateAborted); terr != nil {
			return nil, terr
		}
		j.AbortReason = fixReason(err)
		log.Printf("journey start aborted rider=%s journey=%s reason=%s", string(riderID), string(j.ID), j.AbortReason)
		s.publish(ctx, EventAborted, j)
		s.countAborted(j.AbortReason)
		return j.clone(), fmt.Errorf("start journey: %w", err)
	}

	if err := s.transition(j, StateInProgress); err != nil {
		return nil, err
	}
	j.Start = fix
	j.StartedAt = s.clock.Now()

	s.mu.Lock()
	s.active[riderID] = j
	s.mu.Unlock()

	log.Printf("journey started rider=%s journey=%s lat=%.6f lng=%.6f", string(riderID), string(j.ID), fix.Lat, fix.Lng)
	s.publish(ctx, EventStarted, j)
	if s.metrics != nil {
		s.metrics.JourneyStarted()
	}
	return j.clone(), nil
}

// end removes the journey from the active set before anything else, so a
// journey can be settled at most once.
func (s *Service) end(ctx context.Context, riderID types.ID) (*Journey, error) {
	j, ok := s.take(riderID)
	if !ok {
		return nil, ErrNoJourney
	}

	fix, err := s.fixes.AcquireFix(ctx)
	if err != nil {
		s.finishAborted(ctx, j, fixReason(err))
		return j.clone(), fmt.Errorf("end journey: %w", err)
	}
	endedAt := s.clock.Now()
	j.End = &fix
	j.EndedAt = &endedAt
	j.DistanceKm = location.DistanceKm(j.Start, fix)
	j.Fare = s.fares.Fare(j.DistanceKm)

	balance, err := s.ledger.Debit(ctx, riderID, j.Fare)
	if err != nil {
		reason := ReasonLedgerError
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			reason = ReasonInsufficientFunds
		}
		s.finishAborted(ctx, j, reason)
		return j.clone(), fmt.Errorf("settle journey: %w", err)
	}

	if err := s.transition(j, StateSettled); err != nil {
		return nil, err
	}
	j.Balance = balance
	log.Printf("journey settled rider=%s journey=%s distance_km=%.2f fare=%d balance=%d",
		string(riderID), string(j.ID), j.DistanceKm, j.Fare, balance)
	s.record(ctx, j)
	s.publish(ctx, EventSettled, j)
	if s.metrics != nil {
		s.metrics.JourneySettled(j.Fare)
	}
	return j.clone(), nil
}

func (s *Service) finishAborted(ctx context.Context, j *Journey, reason string) {
	if err := s.transition(j, StateAborted); err != nil {
		log.Printf("journey abort rider=%s journey=%s err=%v", string(j.RiderID), string(j.ID), err)
		return
	}
	j.AbortReason = reason
	if j.EndedAt == nil {
		t := s.clock.Now()
		j.EndedAt = &t
	}
	log.Printf("journey aborted rider=%s journey=%s reason=%s", string(j.RiderID), string(j.ID), reason)
	s.record(ctx, j)
	s.publish(ctx, EventAborted, j)
	s.countAborted(reason)
}

func (s *Service) transition(j *Journey, to State) error {
	if !CanTransition(j.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, j.State, to)
	}
	j.State = to
	return nil
}

// claim marks the rider busy so one tap at a time is processed per rider.
// No lock is held while a fix is being acquired.
func (s *Service) claim(riderID types.ID) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[riderID]; ok {
		return nil, ErrTapInProgress
	}
	s.busy[riderID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.busy, riderID)
		s.mu.Unlock()
	}, nil
}

func (s *Service) take(riderID types.ID) (*Journey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.active[riderID]
	if ok {
		delete(s.active, riderID)
	}
	return j, ok
}

// History and event failures are logged; they never undo a ledger change.
// Both run on a context detached from the caller's cancellation.
func (s *Service) record(ctx context.Context, j *Journey) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(context.WithoutCancel(ctx), j.clone()); err != nil {
		log.Printf("journey history append failed journey=%s err=%v", string(j.ID), err)
	}
}

func (s *Service) publish(ctx context.Context, t EventType, j *Journey) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJourney(context.WithoutCancel(ctx), newEvent(t, j, s.clock.Now())); err != nil {
		log.Printf("journey event publish failed type=%s journey=%s err=%v", t, string(j.ID), err)
	}
}

func (s *Service) countAborted(reason string) {
	if s.metrics != nil {
		s.metrics.JourneyAborted(reason)
	}
}

func fixReason(err error) string {
	switch {
	case errors.Is(err, location.ErrNoFix):
		return ReasonNoFix
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	default:
		return ReasonFixError
	}
}

func newID() types.ID {
	return types.ID(uuid.NewString())
}
