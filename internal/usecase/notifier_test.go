package usecase

import (
	"testing"
	"time"
)

func TestNotifier_CoalescesSignals(t *testing.T) {
	n := NewNotifier(20 * time.Millisecond)
	defer n.Close()

	ch, cancel := n.Subscribe()
	defer cancel()

	for i := 0; i < 10; i++ {
		n.Signal()
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no signal delivered")
	}

	// The burst collapsed into one delivery.
	select {
	case <-ch:
		t.Error("received a second signal for a coalesced burst")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestNotifier_SignalsAfterQuietPeriod(t *testing.T) {
	n := NewNotifier(5 * time.Millisecond)
	defer n.Close()

	ch, cancel := n.Subscribe()
	defer cancel()

	n.Signal()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("first signal never delivered")
	}

	n.Signal()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("second signal never delivered")
	}
}

func TestNotifier_MultipleSubscribers(t *testing.T) {
	n := NewNotifier(5 * time.Millisecond)
	defer n.Close()

	ch1, cancel1 := n.Subscribe()
	defer cancel1()
	ch2, cancel2 := n.Subscribe()
	defer cancel2()

	n.Signal()

	for i, ch := range []<-chan struct{}{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never notified", i)
		}
	}
}

func TestNotifier_CancelStopsDelivery(t *testing.T) {
	n := NewNotifier(5 * time.Millisecond)
	defer n.Close()

	ch, cancel := n.Subscribe()
	cancel()

	n.Signal()
	select {
	case <-ch:
		t.Error("cancelled subscriber still notified")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestNotifier_CloseStopsDelivery(t *testing.T) {
	n := NewNotifier(5 * time.Millisecond)

	ch, cancel := n.Subscribe()
	defer cancel()

	n.Signal()
	n.Close()

	select {
	case <-ch:
		t.Error("signal delivered after Close")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestGovernor_Ceiling(t *testing.T) {
	g := NewGovernor(2)

	if g.WouldExceed() {
		t.Error("WouldExceed() = true with zero live controllers")
	}
	g.Acquired()
	if g.WouldExceed() {
		t.Error("WouldExceed() = true with headroom remaining")
	}
	g.Acquired()
	if !g.WouldExceed() {
		t.Error("WouldExceed() = false at the ceiling")
	}
	g.Released()
	if g.WouldExceed() {
		t.Error("WouldExceed() = true after a release")
	}
	if g.Live() != 1 {
		t.Errorf("Live() = %d, want 1", g.Live())
	}
}

func TestGovernor_ReleasedFloorsAtZero(t *testing.T) {
	g := NewGovernor(5)
	g.Released()
	if g.Live() != 0 {
		t.Errorf("Live() = %d, want 0", g.Live())
	}
}

func TestGovernor_DefaultCeiling(t *testing.T) {
	g := NewGovernor(0)
	if g.Max() != DefaultMaxControllers {
		t.Errorf("Max() = %d, want %d", g.Max(), DefaultMaxControllers)
	}
}

func TestGovernor_PressureEvents(t *testing.T) {
	g := NewGovernor(5)
	g.PressureEvent()
	g.PressureEvent()
	if g.PressureEvents() != 2 {
		t.Errorf("PressureEvents() = %d, want 2", g.PressureEvents())
	}
}
