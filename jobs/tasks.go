package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/forgeline-mes/forgeline-mes/internal/backup"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeBackup is the task type for the full-table export.
	TaskTypeBackup = "backup:run"
)

// BackupPayload records who or what triggered the export.
type BackupPayload struct {
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewBackupTask constructs an Asynq task for the table export.
func NewBackupTask(payload BackupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeBackup, data, asynq.Queue(QueueDefault)), nil
}

// NewBackupHandler returns the worker-side handler for TaskTypeBackup.
func NewBackupHandler(svc *backup.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload BackupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		result, err := svc.Run(ctx)
		if err != nil {
			logger.Error("backup run failed", slog.Any("error", err))
			return err
		}
		logger.Info("backup written",
			slog.String("id", result.ID),
			slog.String("path", result.Path),
			slog.String("requested_by", payload.RequestedBy))
		return nil
	}
}
