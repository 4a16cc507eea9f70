package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	JourneysStarted prometheus.Counter
	JourneysSettled prometheus.Counter
	JourneysAborted *prometheus.CounterVec // reason label
	FaresCharged    prometheus.Counter     // currency units
	FareAmounts     prometheus.Histogram
	Recharges       prometheus.Counter
	RechargeAmounts prometheus.Counter

	FixAttempts *prometheus.CounterVec // result label: ok|fail
	FixDuration *prometheus.HistogramVec

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	HTTPRequests *prometheus.CounterVec // method, route, status
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		JourneysStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farebox_journeys_started_total",
			Help: "Total journeys started.",
		}),
		JourneysSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farebox_journeys_settled_total",
			Help: "Total journeys settled and charged.",
		}),
		JourneysAborted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farebox_journeys_aborted_total",
			Help: "Total journeys aborted, by reason.",
		}, []string{"reason"}),
		FaresCharged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farebox_fares_charged_total",
			Help: "Sum of fares debited, in currency units.",
		}),
		FareAmounts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "farebox_fare_amount",
			Help:    "Distribution of settled fares.",
			Buckets: []float64{5, 20, 30, 40, 50},
		}),
		Recharges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farebox_recharges_total",
			Help: "Total admin recharges.",
		}),
		RechargeAmounts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farebox_recharged_amount_total",
			Help: "Sum of recharged amounts, in currency units.",
		}),
		FixAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farebox_gps_fix_attempts_total",
			Help: "GPS polls, by result.",
		}, []string{"result"}),
		FixDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "farebox_gps_fix_duration_seconds",
			Help:    "Time to acquire a fix or give up.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"result"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farebox_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farebox_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "farebox_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "farebox_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farebox_http_requests_total",
			Help: "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		c.JourneysStarted, c.JourneysSettled, c.JourneysAborted,
		c.FaresCharged, c.FareAmounts, c.Recharges, c.RechargeAmounts,
		c.FixAttempts, c.FixDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.HTTPRequests,
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Registry exposes the underlying registry for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) JourneyStarted() { c.JourneysStarted.Inc() }

func (c *Collector) JourneySettled(fare int64) {
	c.JourneysSettled.Inc()
	c.FaresCharged.Add(float64(fare))
	c.FareAmounts.Observe(float64(fare))
}

func (c *Collector) JourneyAborted(reason string) {
	c.JourneysAborted.WithLabelValues(reason).Inc()
}

func (c *Collector) Recharged(amount int64) {
	c.Recharges.Inc()
	c.RechargeAmounts.Add(float64(amount))
}

func (c *Collector) FixAttemptInc(ok bool) { c.FixAttempts.WithLabelValues(result(ok)).Inc() }

func (c *Collector) FixObserve(d time.Duration, ok bool) {
	c.FixDuration.WithLabelValues(result(ok)).Observe(d.Seconds())
}

func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}

func (c *Collector) HTTPObserve(method, route string, status int) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}
