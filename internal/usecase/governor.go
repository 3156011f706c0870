package usecase

import (
	"github.com/hszk-dev/reelfeed/internal/infrastructure/metrics"
)

const (
	// DefaultMaxControllers is the default hard ceiling on simultaneously
	// live player controllers, independent of the preload window.
	DefaultMaxControllers = 15
)

// Governor tracks the number of live player controllers and enforces the
// hard ceiling. It is not safe for concurrent use on its own; the scheduler
// guards it with its own mutex, which is the single writer for all
// controller admissions and releases.
type Governor struct {
	live           int
	max            int
	pressureEvents uint64
}

// NewGovernor creates a governor with the given controller ceiling.
// A non-positive ceiling falls back to the default.
func NewGovernor(maxControllers int) *Governor {
	if maxControllers <= 0 {
		maxControllers = DefaultMaxControllers
	}
	return &Governor{max: maxControllers}
}

// Live returns the current live controller count.
func (g *Governor) Live() int { return g.live }

// Max returns the controller ceiling.
func (g *Governor) Max() int { return g.max }

// WouldExceed reports whether admitting one more controller would pass the
// ceiling. The scheduler must release the farthest controller first when
// this returns true.
func (g *Governor) WouldExceed() bool {
	return g.live+1 > g.max
}

// Acquired records a controller admission.
func (g *Governor) Acquired() {
	g.live++
	metrics.LiveControllers.Set(float64(g.live))
}

// Released records a controller destruction.
func (g *Governor) Released() {
	if g.live > 0 {
		g.live--
	}
	metrics.LiveControllers.Set(float64(g.live))
}

// PressureEvent records an external low-memory signal for observability.
func (g *Governor) PressureEvent() {
	g.pressureEvents++
	metrics.MemoryPressureEventsTotal.Inc()
}

// PressureEvents returns the cumulative pressure event count.
func (g *Governor) PressureEvents() uint64 { return g.pressureEvents }
