package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// AuditCleaner provides the ability to delete old audit files.
type AuditCleaner interface {
	Cleanup(retention time.Duration) (int, error)
}

// CleanupAuditTask removes audit records older than the configured
// retention period. Enqueued on a schedule.
type CleanupAuditTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for audit cleanup tasks.
func (t CleanupAuditTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_audit",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupAuditProcessor creates a processor function for CleanupAuditTask.
func CleanupAuditProcessor(cleaner AuditCleaner) backlite.QueueProcessor[CleanupAuditTask] {
	return func(ctx context.Context, task CleanupAuditTask) error {
		if cleaner == nil {
			return fmt.Errorf("audit cleaner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = 30
		}
		retention := time.Duration(retentionDays) * 24 * time.Hour

		removed, err := cleaner.Cleanup(retention)
		if err != nil {
			return fmt.Errorf("cleanup audit records: %w", err)
		}

		log.Printf("[TASK] Cleaned up %d audit records older than %d days", removed, retentionDays)
		return nil
	}
}

// NewCleanupAuditQueue creates a backlite queue for audit cleanup tasks.
func NewCleanupAuditQueue(cleaner AuditCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupAuditProcessor(cleaner))
}
