package model

import (
	"errors"
	"testing"
)

// stubController is a minimal PlayerController for state machine tests.
type stubController struct {
	closed bool
}

func (s *stubController) Play()        {}
func (s *stubController) Pause()       {}
func (s *stubController) Ready() bool  { return !s.closed }
func (s *stubController) Close() error { s.closed = true; return nil }

func TestLoadingState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		current LoadingState
		next    LoadingState
		want    bool
	}{
		// Valid transitions
		{"NOT_LOADED -> LOADING", StateNotLoaded, StateLoading, true},
		{"LOADING -> READY", StateLoading, StateReady, true},
		{"LOADING -> FAILED", StateLoading, StateFailed, true},
		{"FAILED -> LOADING (retry)", StateFailed, StateLoading, true},
		{"FAILED -> PERMANENTLY_FAILED", StateFailed, StatePermanentlyFailed, true},
		{"READY -> DISPOSED", StateReady, StateDisposed, true},
		{"DISPOSED -> NOT_LOADED (reload)", StateDisposed, StateNotLoaded, true},

		// Invalid transitions
		{"NOT_LOADED -> READY (skip)", StateNotLoaded, StateReady, false},
		{"READY -> LOADING (reverse)", StateReady, StateLoading, false},
		{"READY -> FAILED", StateReady, StateFailed, false},
		{"PERMANENTLY_FAILED -> LOADING (terminal)", StatePermanentlyFailed, StateLoading, false},
		{"PERMANENTLY_FAILED -> NOT_LOADED (terminal)", StatePermanentlyFailed, StateNotLoaded, false},
		{"DISPOSED -> READY", StateDisposed, StateReady, false},
		{"LOADING -> LOADING (self)", StateLoading, StateLoading, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.current.CanTransitionTo(tt.next); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVideoState_SuccessfulAcquisition(t *testing.T) {
	vs := NewVideoState()

	if vs.State() != StateNotLoaded {
		t.Fatalf("initial state = %v, want %v", vs.State(), StateNotLoaded)
	}

	if err := vs.MarkLoading(); err != nil {
		t.Fatalf("MarkLoading() error = %v", err)
	}
	if vs.Controller() != nil {
		t.Error("controller must be nil while LOADING")
	}

	ctrl := &stubController{}
	if err := vs.MarkReady(ctrl); err != nil {
		t.Fatalf("MarkReady() error = %v", err)
	}
	if vs.State() != StateReady {
		t.Errorf("state = %v, want %v", vs.State(), StateReady)
	}
	if vs.Controller() != ctrl {
		t.Error("controller must be held while READY")
	}

	released, err := vs.MarkDisposed()
	if err != nil {
		t.Fatalf("MarkDisposed() error = %v", err)
	}
	if released != ctrl {
		t.Error("MarkDisposed must return the held controller")
	}
	if vs.Controller() != nil {
		t.Error("controller must be nil after DISPOSED")
	}

	if err := vs.ResetForReload(); err != nil {
		t.Fatalf("ResetForReload() error = %v", err)
	}
	if vs.State() != StateNotLoaded {
		t.Errorf("state after reload = %v, want %v", vs.State(), StateNotLoaded)
	}
}

func TestVideoState_MarkReadyRequiresController(t *testing.T) {
	vs := NewVideoState()
	if err := vs.MarkLoading(); err != nil {
		t.Fatalf("MarkLoading() error = %v", err)
	}
	if err := vs.MarkReady(nil); !errors.Is(err, ErrNilController) {
		t.Errorf("MarkReady(nil) error = %v, want %v", err, ErrNilController)
	}
}

func TestVideoState_CircuitBreaker(t *testing.T) {
	const maxRetries = 3
	vs := NewVideoState()

	// Attempts 1 and 2 fail but remain retryable.
	for attempt := 1; attempt < maxRetries; attempt++ {
		if err := vs.MarkLoading(); err != nil {
			t.Fatalf("attempt %d: MarkLoading() error = %v", attempt, err)
		}
		if err := vs.MarkFailed("connection refused", maxRetries); err != nil {
			t.Fatalf("attempt %d: MarkFailed() error = %v", attempt, err)
		}
		if vs.State() != StateFailed {
			t.Fatalf("attempt %d: state = %v, want %v", attempt, vs.State(), StateFailed)
		}
		if vs.FailureCount() != attempt {
			t.Fatalf("attempt %d: failureCount = %d, want %d", attempt, vs.FailureCount(), attempt)
		}
	}

	// The maxRetries-th failure trips the breaker.
	if err := vs.MarkLoading(); err != nil {
		t.Fatalf("final attempt: MarkLoading() error = %v", err)
	}
	if err := vs.MarkFailed("connection refused", maxRetries); err != nil {
		t.Fatalf("final attempt: MarkFailed() error = %v", err)
	}
	if vs.State() != StatePermanentlyFailed {
		t.Fatalf("state = %v, want %v", vs.State(), StatePermanentlyFailed)
	}

	// Tripped breaker rejects any further attempt.
	if err := vs.MarkLoading(); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("MarkLoading() after breaker = %v, want %v", err, ErrInvalidStateTransition)
	}
	if err := vs.ResetForReload(); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("ResetForReload() after breaker = %v, want %v", err, ErrInvalidStateTransition)
	}
}

func TestVideoState_FailureCountResetsOnReady(t *testing.T) {
	const maxRetries = 3
	vs := NewVideoState()

	if err := vs.MarkLoading(); err != nil {
		t.Fatalf("MarkLoading() error = %v", err)
	}
	if err := vs.MarkFailed("timeout", maxRetries); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	if vs.FailureCount() != 1 {
		t.Fatalf("failureCount = %d, want 1", vs.FailureCount())
	}

	if err := vs.MarkLoading(); err != nil {
		t.Fatalf("retry MarkLoading() error = %v", err)
	}
	if err := vs.MarkReady(&stubController{}); err != nil {
		t.Fatalf("MarkReady() error = %v", err)
	}
	if vs.FailureCount() != 0 {
		t.Errorf("failureCount after READY = %d, want 0", vs.FailureCount())
	}
}

func TestVideoState_Snapshot(t *testing.T) {
	vs := NewVideoState()
	item := VideoItem{ID: "vid-1", MediaURL: "https://cdn.example.com/1.m3u8", Seq: 7}

	snap := vs.Snapshot(item)
	if snap.State != StateNotLoaded {
		t.Errorf("snapshot state = %v, want %v", snap.State, StateNotLoaded)
	}
	if snap.Item.ID != "vid-1" || snap.Item.Seq != 7 {
		t.Errorf("snapshot item = %+v, want original item", snap.Item)
	}

	if err := vs.MarkLoading(); err != nil {
		t.Fatalf("MarkLoading() error = %v", err)
	}
	if err := vs.MarkFailed("decode error", 3); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	// The earlier snapshot must not observe the later transition.
	if snap.State != StateNotLoaded {
		t.Error("snapshot mutated by later transition")
	}

	failed := vs.Snapshot(item)
	if failed.ErrorMessage != "decode error" {
		t.Errorf("ErrorMessage = %q, want %q", failed.ErrorMessage, "decode error")
	}
	if failed.Controller != nil {
		t.Error("controller must be nil in FAILED snapshot")
	}
}
