package usecase

import (
	"context"
	"log/slog"

	"github.com/hszk-dev/reelfeed/internal/domain/model"
	"github.com/hszk-dev/reelfeed/internal/domain/repository"
)

// IngestService consumes video announcements from the feed source, applies
// the seen/blocked predicate, and routes admitted items into the scheduler.
// Per-item failures never abort the stream: a bad announcement is logged
// and skipped, siblings are unaffected.
type IngestService interface {
	// Run consumes announcements until ctx is cancelled or the source fails.
	Run(ctx context.Context) error
}

type ingestService struct {
	source    repository.FeedSource
	filter    SeenFilter
	scheduler *Scheduler
}

// NewIngestService creates an IngestService wiring the event source into
// the scheduler through the seen filter.
func NewIngestService(source repository.FeedSource, filter SeenFilter, scheduler *Scheduler) IngestService {
	return &ingestService{
		source:    source,
		filter:    filter,
		scheduler: scheduler,
	}
}

func (s *ingestService) Run(ctx context.Context) error {
	return s.source.ConsumeAnnouncements(ctx, func(a repository.VideoAnnouncement) error {
		s.handleAnnouncement(ctx, a)
		// Always ack: a rejected or malformed announcement is not worth a
		// redelivery, and admission errors are already logged.
		return nil
	})
}

func (s *ingestService) handleAnnouncement(ctx context.Context, a repository.VideoAnnouncement) {
	item, err := model.NewVideoItem(a.VideoID, a.MediaURL, a.Title, a.Tags, a.PublishedAt)
	if err != nil {
		slog.Warn("dropping malformed announcement",
			"video_id", a.VideoID,
			"error", err,
		)
		return
	}

	allowed, err := s.filter.Allow(ctx, item.ID)
	if err != nil {
		// Fail open: a filter outage should not starve the feed.
		slog.Warn("seen filter lookup failed, admitting video",
			"video_id", item.ID,
			"error", err,
		)
		allowed = true
	}
	if !allowed {
		slog.Debug("filtered out seen or blocked video", "video_id", item.ID)
		return
	}

	s.scheduler.AddItem(item)
}
