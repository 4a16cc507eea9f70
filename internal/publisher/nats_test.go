package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"farebox/internal/modules/journey"
	"farebox/internal/types"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error { return nil }
func (f *fakeConn) Close()       { f.closed = true }

type fakeMetrics struct{ published, errs int }

func (m *fakeMetrics) NATSPublishedInc()            { m.published++ }
func (m *fakeMetrics) NATSPublishErrInc()           { m.errs++ }
func (m *fakeMetrics) PublishObserve(time.Duration) {}
func (m *fakeMetrics) NATSSetConnected(bool)        {}

func TestPublishJourney(t *testing.T) {
	conn := &fakeConn{}
	m := &fakeMetrics{}
	p := newPublisher(conn, "farebox.journeys.", m)

	e := journey.Event{
		Type:       journey.EventSettled,
		JourneyID:  "j1",
		RiderID:    "X",
		State:      journey.StateSettled,
		Start:      &types.Point{Lat: 12.9716, Lng: 77.5946},
		End:        &types.Point{Lat: 12.9352, Lng: 77.6245},
		DistanceKm: 5.18,
		Fare:       30,
		Balance:    70,
		At:         time.Date(2026, 10, 18, 8, 20, 0, 0, time.UTC),
	}
	if err := p.PublishJourney(context.Background(), e); err != nil {
		t.Fatalf("PublishJourney() error = %v", err)
	}
	if len(conn.subjects) != 1 || conn.subjects[0] != "farebox.journeys.settled" {
		t.Fatalf("subjects = %v", conn.subjects)
	}
	var got map[string]any
	if err := json.Unmarshal(conn.payloads[0], &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got["rider_id"] != "X" || got["fare"] != float64(30) || got["type"] != "journey.settled" {
		t.Errorf("payload = %v", got)
	}
	if m.published != 1 || m.errs != 0 {
		t.Errorf("metrics = %+v", m)
	}

	p.Close()
	if !conn.closed {
		t.Error("Close() did not close the connection")
	}
}

func TestPublishJourney_Error(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	m := &fakeMetrics{}
	p := newPublisher(conn, "", m)

	err := p.PublishJourney(context.Background(), journey.Event{Type: journey.EventAborted})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, conn.err) {
		t.Errorf("error = %v, want wrapped conn error", err)
	}
	if m.errs != 1 {
		t.Errorf("errs = %d, want 1", m.errs)
	}
}

func TestSubject(t *testing.T) {
	p := newPublisher(&fakeConn{}, "buses.route7", nil)
	tests := map[journey.EventType]string{
		journey.EventStarted: "buses.route7.started",
		journey.EventSettled: "buses.route7.settled",
		journey.EventAborted: "buses.route7.aborted",
	}
	for in, want := range tests {
		if got := p.Subject(in); got != want {
			t.Errorf("Subject(%s) = %q, want %q", in, got, want)
		}
	}
}
