package main

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/inkwell-blog/inkwell/jobs"
)

// queueStats summarises the current queue state.
type queueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "prune-sessions",
		Short: "Enqueue an immediate expired-session prune",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
			if err != nil {
				return err
			}
			defer client.Close()
			info, err := client.EnqueuePruneSessions(cmd.Context())
			if errors.Is(err, asynq.ErrDuplicateTask) {
				fmt.Println("a prune is already queued")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("enqueued %s (%s)\n", info.Type, info.ID)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show default queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr})
			defer inspector.Close()
			info, err := inspector.GetQueueInfo(jobs.QueueDefault)
			if err != nil {
				return err
			}
			stats := queueStats{Queue: info.Queue, Pending: info.Pending, Active: info.Active, Scheduled: info.Scheduled, Retry: info.Retry}
			return render([]queueStats{stats}, func(list []queueStats) ([]string, [][]string) {
				s := list[0]
				return []string{"Queue", "Pending", "Active", "Scheduled", "Retry"},
					[][]string{{s.Queue, itoa(s.Pending), itoa(s.Active), itoa(s.Scheduled), itoa(s.Retry)}}
			})
		},
	})
	return cmd
}
