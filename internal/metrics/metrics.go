package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SlotsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "slotbook", Name: "slots_generated_total", Help: "Slots created by batch generation",
	})
	Bookings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slotbook", Name: "bookings_total", Help: "Booking attempts by outcome",
	}, []string{"outcome"})
	Cancellations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "slotbook", Name: "cancellations_total", Help: "Bookings moved to CANCELLED",
	})
	FreeSlots = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "slotbook", Name: "free_slots", Help: "Open future slots without a confirmed booking",
	})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slotbook", Name: "http_requests_total", Help: "HTTP API requests",
	}, []string{"route", "code"})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "slotbook", Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "slotbook", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

// исходы попытки записи
const (
	OutcomeConfirmed = "confirmed"
	OutcomeConflict  = "conflict"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

func init() {
	prometheus.MustRegister(SlotsGenerated, Bookings, Cancellations, FreeSlots, HTTPRequests, HandlerErrors, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
