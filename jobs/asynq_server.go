package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/forgeline-mes/forgeline-mes/internal/backup"
)

// Worker runs the background queue: the nightly snapshot export plus any
// exports enqueued on demand from the API.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
}

// WorkerOptions bundles what the worker needs to start.
type WorkerOptions struct {
	RedisOpts  asynq.RedisClientOpt
	Logger     *slog.Logger
	Backup     *backup.Service
	BackupCron string // empty disables the schedule
}

// NewWorker wires the task handlers and, when a cron spec is set, the
// scheduler entry for the snapshot export. Cron runs in UTC.
func NewWorker(opts WorkerOptions) (*Worker, error) {
	server := asynq.NewServer(opts.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{QueueDefault: 1},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeBackup, NewBackupHandler(opts.Backup, opts.Logger))

	w := &Worker{server: server, mux: mux}
	if opts.BackupCron != "" {
		task, err := NewBackupTask(BackupPayload{RequestedBy: "scheduler", RequestedAt: time.Now().UTC()})
		if err != nil {
			return nil, err
		}
		w.scheduler = asynq.NewScheduler(opts.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		if _, err := w.scheduler.Register(opts.BackupCron, task, asynq.MaxRetry(3)); err != nil {
			return nil, fmt.Errorf("jobs: register backup cron %q: %w", opts.BackupCron, err)
		}
	}
	return w, nil
}

// Run processes tasks until the context is cancelled or the server stops.
func (w *Worker) Run(ctx context.Context) error {
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return fmt.Errorf("jobs: start scheduler: %w", err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- w.server.Run(w.mux) }()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-done:
	}
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.server.Shutdown()
	return err
}

// Client enqueues tasks from the API process.
type Client struct {
	client *asynq.Client
}

func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueBackup queues an on-demand table export and returns the task id.
func (c *Client) EnqueueBackup(ctx context.Context, requestedBy string) (string, error) {
	task, err := NewBackupTask(BackupPayload{RequestedBy: requestedBy, RequestedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("jobs: enqueue backup: %w", err)
	}
	return info.ID, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
