package model

import (
	"errors"
	"time"
)

// LoadingState represents the lifecycle state of a video's player controller.
type LoadingState string

const (
	StateNotLoaded         LoadingState = "NOT_LOADED"
	StateLoading           LoadingState = "LOADING"
	StateReady             LoadingState = "READY"
	StateFailed            LoadingState = "FAILED"
	StatePermanentlyFailed LoadingState = "PERMANENTLY_FAILED"
	StateDisposed          LoadingState = "DISPOSED"
)

// Valid state transitions:
// NOT_LOADED -> LOADING -> READY -> DISPOSED -> NOT_LOADED (explicit reload)
//                      \-> FAILED -> LOADING (retry)
//                                \-> PERMANENTLY_FAILED (terminal)
var validTransitions = map[LoadingState][]LoadingState{
	StateNotLoaded:         {StateLoading},
	StateLoading:           {StateReady, StateFailed},
	StateReady:             {StateDisposed},
	StateFailed:            {StateLoading, StatePermanentlyFailed},
	StatePermanentlyFailed: {},
	StateDisposed:          {StateNotLoaded},
}

func (s LoadingState) IsValid() bool {
	switch s {
	case StateNotLoaded, StateLoading, StateReady, StateFailed, StatePermanentlyFailed, StateDisposed:
		return true
	default:
		return false
	}
}

func (s LoadingState) CanTransitionTo(next LoadingState) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, state := range allowed {
		if state == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further acquisition attempts are ever made
// from this state without an explicit reload.
func (s LoadingState) IsTerminal() bool {
	return s == StatePermanentlyFailed
}

func (s LoadingState) String() string {
	return string(s)
}

var (
	ErrInvalidStateTransition = errors.New("invalid loading state transition")
	ErrNilController          = errors.New("ready state requires a controller")
)

// PlayerController is the opaque decoded-media resource the cache acquires
// and releases. The cache never inspects playback internals; the UI layer
// borrows the controller only for the duration of a render.
type PlayerController interface {
	Play()
	Pause()
	Ready() bool
	// Close destroys the controller. It is idempotent and must not fail
	// in a way that leaves the resource live.
	Close() error
}

// VideoState is the mutable per-item record owned by the catalog.
// All mutations go through the Mark* methods, which maintain:
//   - Controller != nil exactly when the state is READY
//   - ErrorMessage set exactly in FAILED / PERMANENTLY_FAILED
//   - FailureCount reset only on a successful READY transition
type VideoState struct {
	state        LoadingState
	controller   PlayerController
	errorMessage string
	failureCount int
	lastUpdated  time.Time
}

// NewVideoState returns a state record in NOT_LOADED.
func NewVideoState() *VideoState {
	return &VideoState{
		state:       StateNotLoaded,
		lastUpdated: time.Now(),
	}
}

func (v *VideoState) State() LoadingState { return v.state }
func (v *VideoState) FailureCount() int   { return v.failureCount }

// Controller returns the live controller, nil unless READY.
func (v *VideoState) Controller() PlayerController { return v.controller }

// MarkLoading begins an acquisition attempt from NOT_LOADED or FAILED.
func (v *VideoState) MarkLoading() error {
	if !v.state.CanTransitionTo(StateLoading) {
		return ErrInvalidStateTransition
	}
	v.state = StateLoading
	v.errorMessage = ""
	v.lastUpdated = time.Now()
	return nil
}

// MarkReady records a successful acquisition and resets the failure count.
func (v *VideoState) MarkReady(controller PlayerController) error {
	if controller == nil {
		return ErrNilController
	}
	if !v.state.CanTransitionTo(StateReady) {
		return ErrInvalidStateTransition
	}
	v.state = StateReady
	v.controller = controller
	v.errorMessage = ""
	v.failureCount = 0
	v.lastUpdated = time.Now()
	return nil
}

// MarkFailed records a failed acquisition attempt. Once the failure count
// reaches maxRetries the circuit breaker trips and the state escalates to
// PERMANENTLY_FAILED, from which no transition is ever allowed again.
func (v *VideoState) MarkFailed(message string, maxRetries int) error {
	if !v.state.CanTransitionTo(StateFailed) {
		return ErrInvalidStateTransition
	}
	v.failureCount++
	v.errorMessage = message
	if v.failureCount >= maxRetries {
		v.state = StatePermanentlyFailed
	} else {
		v.state = StateFailed
	}
	v.lastUpdated = time.Now()
	return nil
}

// MarkDisposed releases ownership of the controller and returns it so the
// caller can destroy it synchronously with the transition.
func (v *VideoState) MarkDisposed() (PlayerController, error) {
	if !v.state.CanTransitionTo(StateDisposed) {
		return nil, ErrInvalidStateTransition
	}
	controller := v.controller
	v.controller = nil
	v.state = StateDisposed
	v.lastUpdated = time.Now()
	return controller, nil
}

// ResetForReload makes a disposed item eligible for acquisition again.
func (v *VideoState) ResetForReload() error {
	if !v.state.CanTransitionTo(StateNotLoaded) {
		return ErrInvalidStateTransition
	}
	v.state = StateNotLoaded
	v.errorMessage = ""
	v.lastUpdated = time.Now()
	return nil
}

// StateSnapshot is an immutable view of one catalog entry handed to readers.
// Controller is a borrowed reference, present only while READY.
type StateSnapshot struct {
	Item         VideoItem
	State        LoadingState
	Controller   PlayerController
	ErrorMessage string
	FailureCount int
	LastUpdated  time.Time
}

// Snapshot captures the current state for concurrent readers.
func (v *VideoState) Snapshot(item VideoItem) StateSnapshot {
	return StateSnapshot{
		Item:         item,
		State:        v.state,
		Controller:   v.controller,
		ErrorMessage: v.errorMessage,
		FailureCount: v.failureCount,
		LastUpdated:  v.lastUpdated,
	}
}
