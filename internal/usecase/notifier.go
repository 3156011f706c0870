package usecase

import (
	"sync"
	"time"
)

const (
	// DefaultNotifyDebounce is the default coalescing interval for change
	// notifications.
	DefaultNotifyDebounce = 50 * time.Millisecond
)

// Notifier fans out state-change signals to subscribers with debounced,
// coalesced delivery: any number of transitions inside the debounce
// interval produce at most one signal per subscriber. Sends never block;
// a subscriber that has not drained its channel simply misses intermediate
// signals. Signals carry no payload; subscribers re-read the catalog on
// wake.
type Notifier struct {
	mu       sync.Mutex
	subs     map[int]chan struct{}
	nextID   int
	interval time.Duration
	timer    *time.Timer
	pending  bool
	closed   bool
}

// NewNotifier creates a notifier with the given debounce interval.
// A non-positive interval falls back to the default.
func NewNotifier(interval time.Duration) *Notifier {
	if interval <= 0 {
		interval = DefaultNotifyDebounce
	}
	return &Notifier{
		subs:     make(map[int]chan struct{}),
		interval: interval,
	}
}

// Subscribe registers a change listener. The returned cancel function
// unregisters it and must be called to avoid leaking the channel.
func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan struct{}, 1)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
	return ch, cancel
}

// Signal schedules a notification. Calls inside the debounce interval are
// coalesced into the pending one.
func (n *Notifier) Signal() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed || n.pending {
		return
	}
	n.pending = true
	n.timer = time.AfterFunc(n.interval, n.fire)
}

func (n *Notifier) fire() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.pending = false
	if n.closed {
		return
	}
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close stops delivery. Subscribed channels are left open but receive no
// further signals.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	if n.timer != nil {
		n.timer.Stop()
	}
}
