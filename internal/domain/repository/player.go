package repository

import (
	"context"

	"github.com/hszk-dev/reelfeed/internal/domain/model"
)

// ControllerFactory constructs player controllers for video items.
// Implementations are provided by the infrastructure layer (e.g., the
// object-storage prefetcher). Create is the only suspending operation in
// the preload pipeline: it honors ctx cancellation and deadlines, and on
// error it must not leave a live resource behind.
type ControllerFactory interface {
	Create(ctx context.Context, item model.VideoItem) (model.PlayerController, error)
}
