package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hszk-dev/reelfeed/internal/domain/model"
	"github.com/hszk-dev/reelfeed/internal/domain/repository"
	"github.com/hszk-dev/reelfeed/internal/infrastructure/metrics"
)

const (
	// DefaultAcquireTimeout is the deadline for a single controller
	// acquisition attempt.
	DefaultAcquireTimeout = 10 * time.Second

	// DefaultMaxRetries is the failure count at which the circuit breaker
	// trips and an item becomes permanently failed.
	DefaultMaxRetries = 3
)

// SchedulerConfig holds configuration for the Scheduler.
type SchedulerConfig struct {
	// Window is the normal preload window around the current index.
	Window WindowProfile
	// PressureAhead is how many items ahead of the current index survive a
	// memory pressure event (the current item always survives).
	PressureAhead int
	// MaxControllers is the hard ceiling on live player controllers.
	MaxControllers int
	// AcquireTimeout bounds each controller acquisition attempt.
	AcquireTimeout time.Duration
	// MaxRetries is the circuit breaker threshold per item.
	MaxRetries int
	// NotifyDebounce is the change-notification coalescing interval.
	NotifyDebounce time.Duration
}

// DefaultSchedulerConfig returns the default configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Window:         DefaultWindowProfile(),
		PressureAhead:  1,
		MaxControllers: DefaultMaxControllers,
		AcquireTimeout: DefaultAcquireTimeout,
		MaxRetries:     DefaultMaxRetries,
		NotifyDebounce: DefaultNotifyDebounce,
	}
}

// inflightAttempt tracks one in-progress acquisition. releaseRequested is
// set when a release arrives while the attempt is still running; the
// completion path then destroys the just-created controller immediately,
// so no controller ever outlives its release beyond the in-flight call.
type inflightAttempt struct {
	releaseRequested bool
}

// Scheduler drives all loading state transitions. It is the only component
// that calls controller create/destroy. A single mutex serializes every
// mutation; controller construction is the only suspending operation, runs
// outside the mutex, and re-enters it to apply its result, so transitions
// for one identity are totally ordered. Catalog snapshots stay readable
// from any goroutine throughout.
type Scheduler struct {
	mu       sync.Mutex
	catalog  *Catalog
	factory  repository.ControllerFactory
	governor *Governor
	notifier *Notifier

	profile        WindowProfile
	pressureAhead  int
	acquireTimeout time.Duration
	maxRetries     int

	current  int
	inflight map[string]*inflightAttempt

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
}

// NewScheduler creates a Scheduler over the given catalog and controller
// factory.
func NewScheduler(catalog *Catalog, factory repository.ControllerFactory, cfg SchedulerConfig) *Scheduler {
	if cfg.Window.Ahead == 0 && cfg.Window.Behind == 0 {
		cfg.Window = DefaultWindowProfile()
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		catalog:        catalog,
		factory:        factory,
		governor:       NewGovernor(cfg.MaxControllers),
		notifier:       NewNotifier(cfg.NotifyDebounce),
		profile:        cfg.Window,
		pressureAhead:  cfg.PressureAhead,
		acquireTimeout: cfg.AcquireTimeout,
		maxRetries:     cfg.MaxRetries,
		inflight:       make(map[string]*inflightAttempt),
		baseCtx:        ctx,
		baseCancel:     cancel,
	}
}

// AddItem routes a new item into the catalog. Evicted items have their
// controllers destroyed within the same call. If the item lands inside the
// active window its acquisition starts immediately.
func (s *Scheduler) AddItem(item model.VideoItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	before := s.catalog.Len()
	added, orphans := s.catalog.Add(item)
	for _, controller := range orphans {
		_ = controller.Close()
		s.governor.Released()
		metrics.StateTransitionsTotal.WithLabelValues(model.StateDisposed.String()).Inc()
	}
	after := s.catalog.Len()
	metrics.CatalogItems.Set(float64(after))
	if added && after <= before {
		metrics.CatalogEvictionsTotal.Add(float64(before + 1 - after))
	}

	if !added {
		return
	}

	if idx, ok := s.catalog.IndexOf(item.ID); ok {
		plan := PlanWindow(s.current, after, s.profile)
		if plan.Contains(idx) {
			s.acquireLocked(item.ID)
		}
	}
	s.notifier.Signal()
}

// RemoveItem handles an explicit content-deletion signal. A held controller
// is destroyed synchronously; an in-flight acquisition for the identity is
// abandoned when it resolves.
func (s *Scheduler) RemoveItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	controller, existed := s.catalog.Remove(id)
	if controller != nil {
		_ = controller.Close()
		s.governor.Released()
		metrics.StateTransitionsTotal.WithLabelValues(model.StateDisposed.String()).Inc()
	}
	if existed {
		metrics.CatalogItems.Set(float64(s.catalog.Len()))
		s.current = ClampIndex(s.current, s.catalog.Len())
		s.notifier.Signal()
	}
}

// ReportIndex applies a new viewing position: items inside the preload
// window are acquired in policy order, ready items outside it are released.
// It never suspends; acquisitions run asynchronously.
func (s *Scheduler) ReportIndex(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	n := s.catalog.Len()
	if n == 0 {
		s.current = 0
		return
	}
	s.current = ClampIndex(index, n)
	s.applyWindowLocked()
	s.notifier.Signal()
}

func (s *Scheduler) applyWindowLocked() {
	n := s.catalog.Len()
	if n == 0 {
		return
	}
	plan := PlanWindow(s.current, n, s.profile)
	view := s.catalog.View()

	for _, idx := range plan.Load {
		v := view[idx]
		switch v.State {
		case model.StateNotLoaded, model.StateFailed, model.StateDisposed:
			s.acquireLocked(v.ID)
		case model.StateLoading:
			// Back inside the window: cancel any pending release.
			if fl := s.inflight[v.ID]; fl != nil {
				fl.releaseRequested = false
			}
		}
	}

	for _, v := range view {
		if plan.Contains(v.Index) {
			continue
		}
		switch v.State {
		case model.StateReady:
			s.disposeLocked(v.ID)
		case model.StateLoading:
			if fl := s.inflight[v.ID]; fl != nil {
				fl.releaseRequested = true
			}
		}
	}
}

// acquireLocked starts an acquisition for the identity. A second request
// while the identity is already LOADING or READY is a no-op (the in-flight
// attempt absorbs it), and PERMANENTLY_FAILED identities are never
// attempted again. A DISPOSED identity is recycled through NOT_LOADED
// first, so a window that moves back over a released item reloads it.
func (s *Scheduler) acquireLocked(id string) {
	if s.closed {
		return
	}

	started := false
	_ = s.catalog.Update(id, func(state *model.VideoState) error {
		if state.State() == model.StateDisposed {
			if err := state.ResetForReload(); err != nil {
				return nil
			}
		}
		switch state.State() {
		case model.StateNotLoaded, model.StateFailed:
			if err := state.MarkLoading(); err == nil {
				started = true
			}
		}
		return nil
	})
	if !started {
		return
	}
	metrics.StateTransitionsTotal.WithLabelValues(model.StateLoading.String()).Inc()

	item, ok := s.catalog.Item(id)
	if !ok {
		return
	}

	// Pre-flight validation fails without touching the network but consumes
	// the retry budget like any other failed attempt.
	if err := model.ValidateLocator(item.MediaURL); err != nil {
		s.failLocked(id, fmt.Sprintf("invalid media locator: %v", err))
		metrics.AcquisitionsTotal.WithLabelValues(metrics.AcquireResultInvalidLocator).Inc()
		s.notifier.Signal()
		return
	}

	s.inflight[id] = &inflightAttempt{}
	s.wg.Add(1)
	go s.runAcquire(item)
}

// runAcquire performs the only suspending operation in the pipeline and
// delivers the result back under the scheduler mutex.
func (s *Scheduler) runAcquire(item model.VideoItem) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.baseCtx, s.acquireTimeout)
	defer cancel()

	controller, err := s.factory.Create(ctx, item)

	s.mu.Lock()
	defer s.mu.Unlock()

	fl := s.inflight[item.ID]
	delete(s.inflight, item.ID)

	// Removed from the catalog while in flight: discard the result and
	// destroy anything that was constructed.
	if _, exists := s.catalog.Item(item.ID); !exists {
		if controller != nil {
			_ = controller.Close()
		}
		metrics.AcquisitionsTotal.WithLabelValues(metrics.AcquireResultDiscarded).Inc()
		return
	}

	if s.closed {
		if controller != nil {
			_ = controller.Close()
		}
		return
	}

	if err != nil {
		result := metrics.AcquireResultFailed
		msg := fmt.Sprintf("acquisition failed: %v", err)
		if errors.Is(err, context.DeadlineExceeded) {
			result = metrics.AcquireResultTimeout
			msg = fmt.Sprintf("acquisition timed out after %s", s.acquireTimeout)
		}
		s.failLocked(item.ID, msg)
		metrics.AcquisitionsTotal.WithLabelValues(result).Inc()
		s.notifier.Signal()
		return
	}

	// A release raced with this acquisition, or the window moved away while
	// it was in flight: store-then-dispose in one critical section so the
	// controller never outlives its release, with exactly one create and
	// one destroy.
	releaseNow := fl != nil && fl.releaseRequested
	if idx, ok := s.catalog.IndexOf(item.ID); ok {
		if !PlanWindow(s.current, s.catalog.Len(), s.profile).Contains(idx) {
			releaseNow = true
		}
	}
	if releaseNow {
		_ = s.catalog.Update(item.ID, func(state *model.VideoState) error {
			if err := state.MarkReady(controller); err != nil {
				return nil
			}
			_, _ = state.MarkDisposed()
			return nil
		})
		_ = controller.Close()
		metrics.StateTransitionsTotal.WithLabelValues(model.StateReady.String()).Inc()
		metrics.StateTransitionsTotal.WithLabelValues(model.StateDisposed.String()).Inc()
		metrics.AcquisitionsTotal.WithLabelValues(metrics.AcquireResultOK).Inc()
		s.notifier.Signal()
		return
	}

	// Enforce the controller ceiling before admitting: release the ready
	// item farthest from the viewing position.
	if s.governor.WouldExceed() {
		s.releaseFarthestLocked(item.ID)
	}

	applied := false
	_ = s.catalog.Update(item.ID, func(state *model.VideoState) error {
		if err := state.MarkReady(controller); err == nil {
			applied = true
		}
		return nil
	})
	if !applied {
		_ = controller.Close()
		metrics.AcquisitionsTotal.WithLabelValues(metrics.AcquireResultDiscarded).Inc()
		return
	}
	s.governor.Acquired()
	metrics.StateTransitionsTotal.WithLabelValues(model.StateReady.String()).Inc()
	metrics.AcquisitionsTotal.WithLabelValues(metrics.AcquireResultOK).Inc()
	s.notifier.Signal()
}

// failLocked applies a failure result to a LOADING identity. MarkFailed
// escalates to PERMANENTLY_FAILED once the retry budget is exhausted.
func (s *Scheduler) failLocked(id, message string) {
	var result model.LoadingState
	_ = s.catalog.Update(id, func(state *model.VideoState) error {
		if state.State() != model.StateLoading {
			return nil
		}
		if err := state.MarkFailed(message, s.maxRetries); err == nil {
			result = state.State()
		}
		return nil
	})
	if result != "" {
		metrics.StateTransitionsTotal.WithLabelValues(result.String()).Inc()
		if result == model.StatePermanentlyFailed {
			slog.Warn("circuit breaker tripped for video",
				"video_id", id,
				"error", message,
			)
		}
	}
}

// disposeLocked releases a READY identity, destroying its controller
// synchronously with the transition.
func (s *Scheduler) disposeLocked(id string) {
	var controller model.PlayerController
	_ = s.catalog.Update(id, func(state *model.VideoState) error {
		if state.State() != model.StateReady {
			return nil
		}
		if c, err := state.MarkDisposed(); err == nil {
			controller = c
		}
		return nil
	})
	if controller != nil {
		_ = controller.Close()
		s.governor.Released()
		metrics.StateTransitionsTotal.WithLabelValues(model.StateDisposed.String()).Inc()
	}
}

func (s *Scheduler) releaseFarthestLocked(excludeID string) {
	farDist := -1
	farID := ""
	for _, v := range s.catalog.View() {
		if v.State != model.StateReady || v.ID == excludeID {
			continue
		}
		dist := v.Index - s.current
		if dist < 0 {
			dist = -dist
		}
		if dist > farDist {
			farDist = dist
			farID = v.ID
		}
	}
	if farID != "" {
		s.disposeLocked(farID)
	}
}

// Release releases the identity's controller. For an identity still
// LOADING the release is recorded and honored the moment the in-flight
// acquisition resolves.
func (s *Scheduler) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fl := s.inflight[id]; fl != nil {
		fl.releaseRequested = true
		return
	}
	s.disposeLocked(id)
	s.notifier.Signal()
}

// Retry re-attempts acquisition after a user tap. It is valid only from
// FAILED and a no-op from every other state, notably PERMANENTLY_FAILED.
func (s *Scheduler) Retry(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	snap, ok := s.catalog.StateOf(id)
	if !ok || snap.State != model.StateFailed {
		return
	}
	s.acquireLocked(id)
}

// Reload makes a DISPOSED identity eligible for acquisition again. If it
// currently sits inside the preload window it is re-acquired immediately.
func (s *Scheduler) Reload(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	reset := false
	_ = s.catalog.Update(id, func(state *model.VideoState) error {
		if state.State() != model.StateDisposed {
			return nil
		}
		if err := state.ResetForReload(); err == nil {
			reset = true
		}
		return nil
	})
	if !reset {
		return
	}
	metrics.StateTransitionsTotal.WithLabelValues(model.StateNotLoaded.String()).Inc()

	if idx, ok := s.catalog.IndexOf(id); ok {
		if PlanWindow(s.current, s.catalog.Len(), s.profile).Contains(idx) {
			s.acquireLocked(id)
		}
	}
	s.notifier.Signal()
}

// OnMemoryPressure forcibly shrinks the live set to the current item plus
// at most PressureAhead items ahead, regardless of the normal window.
// There is no pressure-ended signal; the next ReportIndex call resumes
// normal windowed preloading.
func (s *Scheduler) OnMemoryPressure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.governor.PressureEvent()

	n := s.catalog.Len()
	if n == 0 {
		return
	}
	keepLo := ClampIndex(s.current, n)
	keepHi := keepLo + s.pressureAhead
	if keepHi > n-1 {
		keepHi = n - 1
	}

	for _, v := range s.catalog.View() {
		if v.Index >= keepLo && v.Index <= keepHi {
			continue
		}
		switch v.State {
		case model.StateReady:
			s.disposeLocked(v.ID)
		case model.StateLoading:
			if fl := s.inflight[v.ID]; fl != nil {
				fl.releaseRequested = true
			}
		}
	}
	slog.Info("memory pressure handled",
		"current_index", s.current,
		"live_controllers", s.governor.Live(),
	)
	s.notifier.Signal()
}

// CurrentIndex returns the last reported viewing position.
func (s *Scheduler) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Feed returns the ordered state snapshots for rendering.
func (s *Scheduler) Feed() []model.StateSnapshot {
	return s.catalog.Snapshots()
}

// StateOf returns the snapshot for one identity.
func (s *Scheduler) StateOf(id string) (model.StateSnapshot, bool) {
	return s.catalog.StateOf(id)
}

// Subscribe registers a batched change listener.
func (s *Scheduler) Subscribe() (<-chan struct{}, func()) {
	return s.notifier.Subscribe()
}

// StatsSnapshot is the read-only diagnostics view.
type StatsSnapshot struct {
	TotalItems           int            `json:"total_items"`
	CurrentIndex         int            `json:"current_index"`
	StateCounts          map[string]int `json:"state_counts"`
	LiveControllers      int            `json:"live_controllers"`
	MaxControllers       int            `json:"max_controllers"`
	MemoryPressureEvents uint64         `json:"memory_pressure_events"`
}

// Stats returns aggregate counters for diagnostics.
func (s *Scheduler) Stats() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for state, count := range s.catalog.CountByState() {
		counts[state.String()] = count
	}
	return StatsSnapshot{
		TotalItems:           s.catalog.Len(),
		CurrentIndex:         s.current,
		StateCounts:          counts,
		LiveControllers:      s.governor.Live(),
		MaxControllers:       s.governor.Max(),
		MemoryPressureEvents: s.governor.PressureEvents(),
	}
}

// Close cancels in-flight acquisitions, waits for them to settle, and
// destroys every live controller.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.baseCancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.catalog.View() {
		if v.State == model.StateReady {
			s.disposeLocked(v.ID)
		}
	}
	s.notifier.Close()
}
