package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPruneSessions deletes expired user_sessions rows.
	TaskPruneSessions = "auth:prune-sessions"
	// PruneSessionsSchedule runs the prune task at the top of every hour.
	PruneSessionsSchedule = "@hourly"
)

// NewPruneSessionsTask constructs the payload-less prune task.
func NewPruneSessionsTask() *asynq.Task {
	return asynq.NewTask(TaskPruneSessions, nil)
}
