// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reelfeed"

var (
	// StateTransitionsTotal tracks loading state transitions.
	// Labels:
	//   - to: LOADING, READY, FAILED, PERMANENTLY_FAILED, DISPOSED, NOT_LOADED
	StateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of video loading state transitions",
		},
		[]string{"to"},
	)

	// AcquisitionsTotal tracks controller acquisition outcomes.
	// Labels:
	//   - result: ok, failed, timeout, invalid_locator, discarded
	AcquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Total number of controller acquisition attempts by outcome",
		},
		[]string{"result"},
	)

	// LiveControllers tracks the number of currently live player controllers.
	LiveControllers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_controllers",
			Help:      "Number of currently live player controllers",
		},
	)

	// CatalogItems tracks the current catalog size.
	CatalogItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_items",
			Help:      "Number of items currently in the catalog",
		},
	)

	// CatalogEvictionsTotal tracks items evicted by the catalog ceiling.
	CatalogEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_evictions_total",
			Help:      "Total number of items evicted by the catalog ceiling",
		},
	)

	// MemoryPressureEventsTotal tracks external low-memory signals.
	MemoryPressureEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_pressure_events_total",
			Help:      "Total number of memory pressure events handled",
		},
	)

	// SingleflightRequestsTotal tracks seen-filter lookup coalescing.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight seen-filter lookups",
		},
		[]string{"result"},
	)
)

// Acquisition result constants.
const (
	AcquireResultOK             = "ok"
	AcquireResultFailed         = "failed"
	AcquireResultTimeout        = "timeout"
	AcquireResultInvalidLocator = "invalid_locator"
	AcquireResultDiscarded      = "discarded"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
