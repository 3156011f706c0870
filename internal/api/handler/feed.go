package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/reelfeed/internal/domain/model"
	"github.com/hszk-dev/reelfeed/internal/domain/repository"
	"github.com/hszk-dev/reelfeed/internal/usecase"
)

// FeedHandler exposes the preload cache over HTTP: the ordered feed with
// per-item loading state, position reporting, and the explicit per-item
// operations (retry, reload, release, remove, seen, block).
type FeedHandler struct {
	scheduler *usecase.Scheduler
	filter    usecase.SeenFilter
	source    repository.FeedSource
}

// NewFeedHandler creates a FeedHandler.
func NewFeedHandler(scheduler *usecase.Scheduler, filter usecase.SeenFilter, source repository.FeedSource) *FeedHandler {
	return &FeedHandler{
		scheduler: scheduler,
		filter:    filter,
		source:    source,
	}
}

// playbackURLer is implemented by controllers that carry a presigned
// playback URL.
type playbackURLer interface {
	PlaybackURL() string
}

// FeedEntryResponse is the wire form of one feed entry. PlaybackURL is set
// only while the entry is READY.
type FeedEntryResponse struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	Index        int       `json:"index"`
	State        string    `json:"state"`
	FailureCount int       `json:"failure_count,omitempty"`
	Error        string    `json:"error,omitempty"`
	PlaybackURL  string    `json:"playback_url,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	LastUpdated  time.Time `json:"last_updated"`
}

func feedEntry(index int, snap model.StateSnapshot) FeedEntryResponse {
	entry := FeedEntryResponse{
		VideoID:      snap.Item.ID,
		Title:        snap.Item.Title,
		Index:        index,
		State:        snap.State.String(),
		FailureCount: snap.FailureCount,
		Error:        snap.ErrorMessage,
		PublishedAt:  snap.Item.PublishedAt,
		LastUpdated:  snap.LastUpdated,
	}
	if p, ok := snap.Controller.(playbackURLer); ok {
		entry.PlaybackURL = p.PlaybackURL()
	}
	return entry
}

// FeedResponse is the full ordered feed.
type FeedResponse struct {
	CurrentIndex int                 `json:"current_index"`
	Items        []FeedEntryResponse `json:"items"`
}

// List handles GET /v1/feed.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps := h.scheduler.Feed()
	items := make([]FeedEntryResponse, 0, len(snaps))
	for i, snap := range snaps {
		items = append(items, feedEntry(i, snap))
	}
	JSON(w, http.StatusOK, FeedResponse{
		CurrentIndex: h.scheduler.CurrentIndex(),
		Items:        items,
	})
}

// Get handles GET /v1/feed/{videoID}.
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	snap, ok := h.scheduler.StateOf(videoID)
	if !ok {
		NotFound(w)
		return
	}
	index := 0
	for i, s := range h.scheduler.Feed() {
		if s.Item.ID == videoID {
			index = i
			break
		}
	}
	JSON(w, http.StatusOK, feedEntry(index, snap))
}

// PositionRequest reports the viewing position.
type PositionRequest struct {
	Index int `json:"index"`
}

// ReportPosition handles POST /v1/feed/position. Out-of-range indices are
// clamped, never rejected. The item at the settled position is marked seen
// best effort; a history outage never fails the index change.
func (h *FeedHandler) ReportPosition(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, CodeInvalidRequest, "body must be JSON with an index field")
		return
	}
	h.scheduler.ReportIndex(req.Index)

	current := h.scheduler.CurrentIndex()
	if snaps := h.scheduler.Feed(); current < len(snaps) {
		videoID := snaps[current].Item.ID
		if err := h.filter.MarkSeen(r.Context(), videoID); err != nil {
			slog.Warn("failed to record view on position change",
				"video_id", videoID,
				"error", err,
			)
		}
	}
	JSON(w, http.StatusOK, map[string]int{"current_index": current})
}

// Retry handles POST /v1/feed/{videoID}/retry. It is accepted regardless of
// state; the scheduler ignores it unless the item is FAILED.
func (h *FeedHandler) Retry(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if _, ok := h.scheduler.StateOf(videoID); !ok {
		NotFound(w)
		return
	}
	h.scheduler.Retry(videoID)
	w.WriteHeader(http.StatusAccepted)
}

// Reload handles POST /v1/feed/{videoID}/reload.
func (h *FeedHandler) Reload(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if _, ok := h.scheduler.StateOf(videoID); !ok {
		NotFound(w)
		return
	}
	h.scheduler.Reload(videoID)
	w.WriteHeader(http.StatusAccepted)
}

// Release handles POST /v1/feed/{videoID}/release.
func (h *FeedHandler) Release(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if _, ok := h.scheduler.StateOf(videoID); !ok {
		NotFound(w)
		return
	}
	h.scheduler.Release(videoID)
	w.WriteHeader(http.StatusAccepted)
}

// Remove handles DELETE /v1/feed/{videoID}.
func (h *FeedHandler) Remove(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if _, ok := h.scheduler.StateOf(videoID); !ok {
		NotFound(w)
		return
	}
	h.scheduler.RemoveItem(videoID)
	w.WriteHeader(http.StatusNoContent)
}

// MarkSeen handles POST /v1/feed/{videoID}/seen: the viewer finished the
// video, so future feeds exclude it.
func (h *FeedHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if err := h.filter.MarkSeen(r.Context(), videoID); err != nil {
		slog.Error("failed to mark video seen", "video_id", videoID, "error", err)
		Error(w, http.StatusInternalServerError, CodeInternal, "failed to record view")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Block handles POST /v1/feed/{videoID}/block and removes the video from
// the current feed as well.
func (h *FeedHandler) Block(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if err := h.filter.Block(r.Context(), videoID); err != nil {
		slog.Error("failed to block video", "video_id", videoID, "error", err)
		Error(w, http.StatusInternalServerError, CodeInternal, "failed to block video")
		return
	}
	h.scheduler.RemoveItem(videoID)
	w.WriteHeader(http.StatusNoContent)
}

// MemoryPressure handles POST /v1/system/pressure, the external low-memory
// signal.
func (h *FeedHandler) MemoryPressure(w http.ResponseWriter, r *http.Request) {
	h.scheduler.OnMemoryPressure()
	JSON(w, http.StatusOK, h.scheduler.Stats())
}

// Stats handles GET /v1/feed/stats.
func (h *FeedHandler) Stats(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.scheduler.Stats())
}

// AnnounceRequest is the ingestion payload for manually announcing a video.
type AnnounceRequest struct {
	VideoID     string    `json:"video_id"`
	MediaURL    string    `json:"media_url"`
	Title       string    `json:"title"`
	Tags        []string  `json:"tags,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Announce handles POST /v1/feed/announcements. The announcement goes
// through the queue, so it reaches the catalog via the same ingest path as
// upstream publishers.
func (h *FeedHandler) Announce(w http.ResponseWriter, r *http.Request) {
	var req AnnounceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, CodeInvalidRequest, "body must be a JSON announcement")
		return
	}
	if _, err := model.NewVideoItem(req.VideoID, req.MediaURL, req.Title, req.Tags, req.PublishedAt); err != nil {
		Error(w, http.StatusBadRequest, CodeInvalidAnnouncement, err.Error())
		return
	}

	a := repository.VideoAnnouncement{
		VideoID:     req.VideoID,
		MediaURL:    req.MediaURL,
		Title:       req.Title,
		Tags:        req.Tags,
		PublishedAt: req.PublishedAt,
	}
	if err := h.source.PublishAnnouncement(r.Context(), a); err != nil {
		slog.Error("failed to publish announcement", "video_id", req.VideoID, "error", err)
		Error(w, http.StatusInternalServerError, CodeInternal, "failed to publish announcement")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
