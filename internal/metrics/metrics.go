// Package metrics метрики движка. Отдаются наружу prometheus-сервером из
// pkg/metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	DealsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_deals_tracked",
		Help: "Number of deals currently tracked by the monitor.",
	})

	DealsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_deals_ingested_total",
		Help: "Deals accepted from the feed, including revisions.",
	})

	DealsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_deals_rejected_total",
		Help: "Malformed deals rejected at the boundary.",
	})

	DealsEligible = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_deals_eligible_total",
		Help: "Watching to Eligible transitions.",
	})

	DealsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_deals_expired_total",
		Help: "Deals evicted by the expiry sweep.",
	})

	BookingsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_bookings_committed_total",
		Help: "Bookings that reached the Booked state.",
	})

	BookingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_booking_failures_total",
		Help: "Booking attempts that did not commit, by reason.",
	}, []string{"reason"})

	LedgerBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_ledger_balance_cents",
		Help: "Available balance remaining in the ledger.",
	})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_events_emitted_total",
		Help: "Lifecycle events emitted to notification sinks, by status.",
	}, []string{"status"})
)
