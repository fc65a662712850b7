package posts

import (
	"context"
	"log/slog"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

// ViewStore increments a post's view counter atomically in storage.
type ViewStore interface {
	IncrementViews(ctx context.Context, postID string) error
}

// ViewObserver is told the result of every increment.
type ViewObserver interface {
	ObserveViewIncrement(err error)
}

// ViewCounter records page views without holding up the page. A lost increment is
// logged and otherwise ignored.
type ViewCounter struct {
	store    ViewStore
	logger   *slog.Logger
	observer ViewObserver
}

// NewViewCounter constructs a ViewCounter. observer may be nil.
func NewViewCounter(store ViewStore, logger *slog.Logger, observer ViewObserver) *ViewCounter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewCounter{store: store, logger: logger, observer: observer}
}

// Record schedules one increment for postID and returns immediately.
func (c *ViewCounter) Record(ctx context.Context, postID string) {
	if c == nil || postID == "" {
		return
	}
	shared.Detach(ctx, c.logger, "post view increment", func(ctx context.Context) error {
		err := c.store.IncrementViews(ctx, postID)
		if c.observer != nil {
			c.observer.ObserveViewIncrement(err)
		}
		return err
	})
}
