package location

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

// scriptedSource replays lines in order and then repeats the last one.
type scriptedSource struct {
	mu    sync.Mutex
	lines []string
	errs  []error
	polls int
}

func (s *scriptedSource) ReadLine(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.polls
	s.polls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if len(s.lines) == 0 {
		return "", nil
	}
	if i >= len(s.lines) {
		i = len(s.lines) - 1
	}
	return s.lines[i], nil
}

func (s *scriptedSource) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// recordWaits replaces the real sleep so tests run instantly.
func recordWaits(a *Acquirer) *[]time.Duration {
	var waits []time.Duration
	a.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return &waits
}

const validGGA = "$GPGGA,092750.000,1258.296,N,07735.676,E,1,8,1.03,61.7,M,55.2,M,,*76"

func TestAcquireFix_FirstAttempt(t *testing.T) {
	src := &scriptedSource{lines: []string{validGGA}}
	a := NewAcquirer(src, RetryPolicy{MaxAttempts: 10, Delay: 2 * time.Second}, nil)
	waits := recordWaits(a)

	p, err := a.AcquireFix(context.Background())
	if err != nil {
		t.Fatalf("AcquireFix() error = %v", err)
	}
	if math.Abs(p.Lat-12.9716) > 1e-6 || math.Abs(p.Lng-77.5946) > 1e-6 {
		t.Errorf("AcquireFix() = %+v", p)
	}
	if src.pollCount() != 1 {
		t.Errorf("polls = %d, want 1", src.pollCount())
	}
	if len(*waits) != 0 {
		t.Errorf("waited %v on success, want no wait", *waits)
	}
}

func TestAcquireFix_RecoversAfterBadSamples(t *testing.T) {
	src := &scriptedSource{
		lines: []string{"$GPRMC,123519,A", "$GPGGA,123519,,,,,0,00,,,M,,M,,*66", "", validGGA},
		errs:  []error{nil, nil, errors.New("read timeout")},
	}
	a := NewAcquirer(src, RetryPolicy{MaxAttempts: 10, Delay: 2 * time.Second}, nil)
	waits := recordWaits(a)

	if _, err := a.AcquireFix(context.Background()); err != nil {
		t.Fatalf("AcquireFix() error = %v", err)
	}
	if src.pollCount() != 4 {
		t.Errorf("polls = %d, want 4", src.pollCount())
	}
	if len(*waits) != 3 {
		t.Errorf("waits = %d, want 3", len(*waits))
	}
}

func TestAcquireFix_NoFixAfterMaxAttempts(t *testing.T) {
	src := &scriptedSource{lines: []string{"garbage"}}
	delay := 2 * time.Second
	a := NewAcquirer(src, RetryPolicy{MaxAttempts: 10, Delay: delay}, nil)
	waits := recordWaits(a)

	_, err := a.AcquireFix(context.Background())
	if !errors.Is(err, ErrNoFix) {
		t.Fatalf("AcquireFix() error = %v, want ErrNoFix", err)
	}
	if src.pollCount() != 10 {
		t.Errorf("polls = %d, want 10", src.pollCount())
	}
	if len(*waits) != 9 {
		t.Fatalf("waits = %d, want 9 (one between each poll)", len(*waits))
	}
	for i, w := range *waits {
		if w != delay {
			t.Errorf("wait[%d] = %s, want %s", i, w, delay)
		}
	}
}

func TestAcquireFix_CancelledWhileWaiting(t *testing.T) {
	src := &scriptedSource{lines: []string{"garbage"}}
	a := NewAcquirer(src, RetryPolicy{MaxAttempts: 10, Delay: time.Hour}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := a.AcquireFix(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("AcquireFix() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took %s", elapsed)
	}
	if src.pollCount() != 1 {
		t.Errorf("polls = %d, want 1", src.pollCount())
	}
}

func TestAcquireFix_CancelledWhileReading(t *testing.T) {
	a := NewAcquirer(blockingSource{}, RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := a.AcquireFix(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("AcquireFix() error = %v, want context.Canceled", err)
	}
}

type blockingSource struct{}

func (blockingSource) ReadLine(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type fakeAcquireMetrics struct {
	ok, failed int
	observed   []bool
}

func (m *fakeAcquireMetrics) FixAttemptInc(ok bool) {
	if ok {
		m.ok++
	} else {
		m.failed++
	}
}

func (m *fakeAcquireMetrics) FixObserve(_ time.Duration, ok bool) {
	m.observed = append(m.observed, ok)
}

func TestAcquireFix_Metrics(t *testing.T) {
	src := &scriptedSource{lines: []string{"x", validGGA}}
	m := &fakeAcquireMetrics{}
	a := NewAcquirer(src, RetryPolicy{MaxAttempts: 3, Delay: time.Second}, m)
	recordWaits(a)

	if _, err := a.AcquireFix(context.Background()); err != nil {
		t.Fatalf("AcquireFix() error = %v", err)
	}
	if m.ok != 1 || m.failed != 1 {
		t.Errorf("attempts ok=%d failed=%d, want 1/1", m.ok, m.failed)
	}
	if len(m.observed) != 1 || !m.observed[0] {
		t.Errorf("observed = %v, want [true]", m.observed)
	}
}
