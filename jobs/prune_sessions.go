package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/inkwell-blog/inkwell/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SessionPruner deletes sessions that expired before now.
type SessionPruner interface {
	PruneSessions(ctx context.Context, now time.Time) (int64, error)
}

// PruneSessionsJob removes expired login sessions.
type PruneSessionsJob struct {
	Pruner  SessionPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPruneSessionsJob wires dependencies for the prune handler.
func NewPruneSessionsJob(pruner SessionPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *PruneSessionsJob {
	return &PruneSessionsJob{
		Pruner:  pruner,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskPruneSessions tasks.
func (j *PruneSessionsJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Pruner == nil {
		return errors.New("prune sessions: handler not configured")
	}
	tracker := j.metrics().Track(TaskPruneSessions)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	deleted, err := j.Pruner.PruneSessions(ctx, j.now())
	if err != nil {
		j.logger().Error("prune sessions", slog.Any("error", err))
		return err
	}
	j.metrics().AddPrunedSessions(deleted)
	j.logger().Info("pruned expired sessions", slog.Int64("deleted", deleted))
	return nil
}

func (j *PruneSessionsJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PruneSessionsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *PruneSessionsJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
