// README: NATS publisher for journey events (JSON on <subject>.<started|settled|aborted>).
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"farebox/internal/modules/journey"
)

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

type NATSPublisher struct {
	nc      Conn
	subject string
	metrics PublisherMetrics
}

func NewNATSPublisher(url, subject string, m PublisherMetrics) (*NATSPublisher, error) {
	state := func(up bool, event string) func(*nats.Conn) {
		return func(nc *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(up)
			}
			if err := nc.LastError(); err != nil && !up {
				log.Printf("nats %s url=%s err=%v", event, nc.ConnectedUrlRedacted(), err)
				return
			}
			log.Printf("nats %s url=%s", event, nc.ConnectedUrlRedacted())
		}
	}
	nc, err := nats.Connect(url,
		nats.Name("farebox"),
		nats.MaxReconnects(-1),
		nats.DisconnectHandler(state(false, "disconnected")),
		nats.ReconnectHandler(state(true, "reconnected")),
		nats.ClosedHandler(state(false, "closed")),
	)
	if err != nil {
		return nil, err
	}
	state(true, "connected")(nc)
	return newPublisher(nc, subject, m), nil
}

func newPublisher(nc Conn, subject string, m PublisherMetrics) *NATSPublisher {
	subject = strings.Trim(strings.TrimSpace(subject), ".")
	if subject == "" {
		subject = "farebox.journeys"
	}
	return &NATSPublisher{nc: nc, subject: subject, metrics: m}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			log.Printf("nats drain err=%v", err)
		}
		p.nc.Close()
	}
}

// PublishJourney implements journey.EventPublisher.
func (p *NATSPublisher) PublishJourney(ctx context.Context, e journey.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	subject := p.Subject(e.Type)
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subject maps "journey.settled" to "<subject>.settled".
func (p *NATSPublisher) Subject(t journey.EventType) string {
	return p.subject + "." + strings.TrimPrefix(string(t), "journey.")
}
