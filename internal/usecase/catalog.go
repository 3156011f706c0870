package usecase

import (
	"sync"

	"github.com/hszk-dev/reelfeed/internal/domain/model"
	"github.com/hszk-dev/reelfeed/internal/domain/repository"
)

const (
	// DefaultCatalogCeiling is the default maximum number of items the
	// catalog retains before evicting from the head.
	DefaultCatalogCeiling = 100
)

// catalogEntry pairs an item with its mutable state for the item's entire
// catalog lifetime.
type catalogEntry struct {
	item  model.VideoItem
	state *model.VideoState
}

// EntryView is a read-only (index, identity, state) triple taken under one
// lock, so a caller sees a consistent ordering across the whole catalog.
type EntryView struct {
	Index int
	ID    string
	State model.LoadingState
}

// Catalog is the single source of truth for the ordered video list and the
// per-identity loading state. It enforces insertion order, deduplication by
// identity, and the global item ceiling. The catalog never destroys player
// controllers itself: eviction and removal hand entries back to the caller,
// which is the scheduler, the only component allowed to destroy.
//
// All mutations are atomic with respect to concurrent readers; a reader
// never observes a half-applied transition.
type Catalog struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*catalogEntry
	nextSeq uint64
	ceiling int
}

// NewCatalog creates an empty catalog with the given item ceiling.
// A non-positive ceiling falls back to the default.
func NewCatalog(ceiling int) *Catalog {
	if ceiling <= 0 {
		ceiling = DefaultCatalogCeiling
	}
	return &Catalog{
		entries: make(map[string]*catalogEntry),
		ceiling: ceiling,
	}
}

// Add appends the item unless its identity is already present, assigning
// the arrival sequence number. If the append pushes the catalog past the
// ceiling, the oldest items are evicted within the same call; controllers
// those items still held are detached and returned so the caller can
// destroy them.
func (c *Catalog) Add(item model.VideoItem) (added bool, evicted []model.PlayerController) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[item.ID]; exists {
		return false, nil
	}

	c.nextSeq++
	item.Seq = c.nextSeq
	c.entries[item.ID] = &catalogEntry{
		item:  item,
		state: model.NewVideoState(),
	}
	c.order = append(c.order, item.ID)

	for len(c.order) > c.ceiling {
		oldest := c.order[0]
		c.order = c.order[1:]
		entry := c.entries[oldest]
		delete(c.entries, oldest)
		if entry.state.State() == model.StateReady {
			if controller, err := entry.state.MarkDisposed(); err == nil && controller != nil {
				evicted = append(evicted, controller)
			}
		}
	}

	return true, evicted
}

// Remove deletes the identity from the catalog. If the entry held a live
// controller it is detached and returned for destruction.
func (c *Catalog) Remove(id string) (model.PlayerController, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[id]
	if !exists {
		return nil, false
	}
	delete(c.entries, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	if entry.state.State() == model.StateReady {
		if controller, err := entry.state.MarkDisposed(); err == nil {
			return controller, true
		}
	}
	return nil, true
}

// Items returns the ordered item snapshot.
func (c *Catalog) Items() []model.VideoItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]model.VideoItem, 0, len(c.order))
	for _, id := range c.order {
		items = append(items, c.entries[id].item)
	}
	return items
}

// Snapshots returns the ordered sequence of full state snapshots, taken
// under a single lock acquisition.
func (c *Catalog) Snapshots() []model.StateSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snaps := make([]model.StateSnapshot, 0, len(c.order))
	for _, id := range c.order {
		entry := c.entries[id]
		snaps = append(snaps, entry.state.Snapshot(entry.item))
	}
	return snaps
}

// StateOf returns a snapshot of the identity's state, or found=false for an
// unknown identity. It never panics.
func (c *Catalog) StateOf(id string) (model.StateSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[id]
	if !exists {
		return model.StateSnapshot{}, false
	}
	return entry.state.Snapshot(entry.item), true
}

// Item returns the immutable item for an identity.
func (c *Catalog) Item(id string) (model.VideoItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[id]
	if !exists {
		return model.VideoItem{}, false
	}
	return entry.item, true
}

// IndexOf returns the current position of an identity in the feed order.
func (c *Catalog) IndexOf(id string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i, oid := range c.order {
		if oid == id {
			return i, true
		}
	}
	return 0, false
}

// IDAt returns the identity at the given feed position.
func (c *Catalog) IDAt(index int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index < 0 || index >= len(c.order) {
		return "", false
	}
	return c.order[index], true
}

// Len returns the current item count.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// View returns the ordered (index, id, state) listing under one lock.
func (c *Catalog) View() []EntryView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	view := make([]EntryView, 0, len(c.order))
	for i, id := range c.order {
		view = append(view, EntryView{Index: i, ID: id, State: c.entries[id].state.State()})
	}
	return view
}

// Update applies fn to the identity's state under the catalog write lock,
// so the mutation is atomic with respect to readers. Returns
// repository.ErrItemNotFound for an unknown identity.
func (c *Catalog) Update(id string, fn func(state *model.VideoState) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[id]
	if !exists {
		return repository.ErrItemNotFound
	}
	return fn(entry.state)
}

// CountByState tallies entries per loading state.
func (c *Catalog) CountByState() map[model.LoadingState]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[model.LoadingState]int, 6)
	for _, entry := range c.entries {
		counts[entry.state.State()]++
	}
	return counts
}
