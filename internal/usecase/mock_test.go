package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hszk-dev/reelfeed/internal/domain/model"
	"github.com/hszk-dev/reelfeed/internal/domain/repository"
	"github.com/hszk-dev/reelfeed/internal/infrastructure/cache"
)

// fakeController is a countable model.PlayerController for tests.
type fakeController struct {
	mu         sync.Mutex
	playing    bool
	closed     bool
	closeCalls int
}

func (c *fakeController) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = true
}

func (c *fakeController) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
}

func (c *fakeController) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCalls++
	return nil
}

func (c *fakeController) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// mockControllerFactory implements repository.ControllerFactory for testing.
type mockControllerFactory struct {
	mu       sync.Mutex
	createFn func(ctx context.Context, item model.VideoItem) (model.PlayerController, error)
	calls    int
	created  []*fakeController
}

func (f *mockControllerFactory) Create(ctx context.Context, item model.VideoItem) (model.PlayerController, error) {
	f.mu.Lock()
	f.calls++
	fn := f.createFn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, item)
	}

	controller := &fakeController{}
	f.mu.Lock()
	f.created = append(f.created, controller)
	f.mu.Unlock()
	return controller, nil
}

func (f *mockControllerFactory) createCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// mockSeenStore implements repository.SeenStore for testing.
type mockSeenStore struct {
	markSeenFunc  func(ctx context.Context, videoID string, at time.Time) error
	isSeenFunc    func(ctx context.Context, videoID string) (bool, error)
	blockFunc     func(ctx context.Context, videoID string, at time.Time) error
	isBlockedFunc func(ctx context.Context, videoID string) (bool, error)
}

func (m *mockSeenStore) MarkSeen(ctx context.Context, videoID string, at time.Time) error {
	if m.markSeenFunc != nil {
		return m.markSeenFunc(ctx, videoID, at)
	}
	return nil
}

func (m *mockSeenStore) IsSeen(ctx context.Context, videoID string) (bool, error) {
	if m.isSeenFunc != nil {
		return m.isSeenFunc(ctx, videoID)
	}
	return false, nil
}

func (m *mockSeenStore) Block(ctx context.Context, videoID string, at time.Time) error {
	if m.blockFunc != nil {
		return m.blockFunc(ctx, videoID, at)
	}
	return nil
}

func (m *mockSeenStore) IsBlocked(ctx context.Context, videoID string) (bool, error) {
	if m.isBlockedFunc != nil {
		return m.isBlockedFunc(ctx, videoID)
	}
	return false, nil
}

// mockVerdictCache implements cache.VerdictCache for testing.
type mockVerdictCache struct {
	getFunc    func(ctx context.Context, videoID string) (*cache.Verdict, error)
	setFunc    func(ctx context.Context, videoID string, allowed bool, ttl time.Duration) error
	deleteFunc func(ctx context.Context, videoID string) error
}

func (m *mockVerdictCache) Get(ctx context.Context, videoID string) (*cache.Verdict, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, videoID)
	}
	return nil, nil
}

func (m *mockVerdictCache) Set(ctx context.Context, videoID string, allowed bool, ttl time.Duration) error {
	if m.setFunc != nil {
		return m.setFunc(ctx, videoID, allowed, ttl)
	}
	return nil
}

func (m *mockVerdictCache) Delete(ctx context.Context, videoID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, videoID)
	}
	return nil
}

// mockFeedSource implements repository.FeedSource for testing. Announcements
// queued before Run are delivered in order, then the consume loop blocks
// until the context is cancelled.
type mockFeedSource struct {
	announcements []repository.VideoAnnouncement
	publishFunc   func(ctx context.Context, a repository.VideoAnnouncement) error
}

func (m *mockFeedSource) PublishAnnouncement(ctx context.Context, a repository.VideoAnnouncement) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, a)
	}
	return nil
}

func (m *mockFeedSource) ConsumeAnnouncements(ctx context.Context, handler func(a repository.VideoAnnouncement) error) error {
	for _, a := range m.announcements {
		if err := handler(a); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockFeedSource) Close() error { return nil }

// testVideoItem builds a valid item for the given identity.
func testVideoItem(t *testing.T, id string) model.VideoItem {
	t.Helper()
	item, err := model.NewVideoItem(id, "https://cdn.example.com/vod/"+id+"/master.m3u8", "clip "+id, nil, time.Now())
	if err != nil {
		t.Fatalf("NewVideoItem(%q) failed: %v", id, err)
	}
	return item
}

// waitForState polls until the identity reaches the wanted state.
func waitForState(t *testing.T, s *Scheduler, id string, want model.LoadingState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap, ok := s.StateOf(id); ok && snap.State == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	snap, ok := s.StateOf(id)
	t.Fatalf("video %q never reached %s (found=%v, state=%v)", id, want, ok, snap.State)
}

// waitForStats polls until the predicate holds over the stats snapshot.
func waitForStats(t *testing.T, s *Scheduler, desc string, pred func(StatsSnapshot) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pred(s.Stats()) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition %q never held, last stats: %+v", desc, s.Stats())
}
