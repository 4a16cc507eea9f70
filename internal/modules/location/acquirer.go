// README: Location acquirer polls a raw source until it yields a usable fix or the retry budget runs out.
package location

import (
	"context"
	"errors"
	"log"
	"time"

	"farebox/internal/types"
)

// ErrNoFix is returned once every attempt in the retry budget has failed.
var ErrNoFix = errors.New("no location fix")

const (
	DefaultMaxAttempts = 10
	DefaultRetryDelay  = 2 * time.Second
)

// Source yields raw receiver lines. ReadLine must return when ctx is done.
type Source interface {
	ReadLine(ctx context.Context) (string, error)
}

type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultRetryDelay}
}

type AcquireMetrics interface {
	FixAttemptInc(ok bool)
	FixObserve(d time.Duration, ok bool)
}

type Acquirer struct {
	src     Source
	policy  RetryPolicy
	metrics AcquireMetrics
	wait    func(ctx context.Context, d time.Duration) error
}

func NewAcquirer(src Source, policy RetryPolicy, m AcquireMetrics) *Acquirer {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.Delay < 0 {
		policy.Delay = 0
	}
	return &Acquirer{src: src, policy: policy, metrics: m, wait: sleepCtx}
}

// AcquireFix returns the first valid fix read from the source. Between failed
// attempts it waits policy.Delay; there is no wait after the last attempt.
// A done ctx aborts immediately with ctx.Err().
func (a *Acquirer) AcquireFix(ctx context.Context) (types.Point, error) {
	start := time.Now()
	for attempt := 1; attempt <= a.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			a.observe(start, false)
			return types.Point{}, err
		}

		p, err := a.poll(ctx)
		if err == nil {
			a.attempt(true)
			a.observe(start, true)
			return p, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			a.observe(start, false)
			return types.Point{}, ctxErr
		}
		a.attempt(false)
		log.Printf("gps fix failed attempt=%d/%d err=%v", attempt, a.policy.MaxAttempts, err)

		if attempt == a.policy.MaxAttempts {
			break
		}
		if err := a.wait(ctx, a.policy.Delay); err != nil {
			a.observe(start, false)
			return types.Point{}, err
		}
	}
	a.observe(start, false)
	return types.Point{}, ErrNoFix
}

func (a *Acquirer) poll(ctx context.Context) (types.Point, error) {
	line, err := a.src.ReadLine(ctx)
	if err != nil {
		return types.Point{}, err
	}
	return ParseGGA(line)
}

func (a *Acquirer) attempt(ok bool) {
	if a.metrics != nil {
		a.metrics.FixAttemptInc(ok)
	}
}

func (a *Acquirer) observe(start time.Time, ok bool) {
	if a.metrics != nil {
		a.metrics.FixObserve(time.Since(start), ok)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
