package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

const DefaultAuditRetentionDays = 90

// AuditPruner deletes audit events created before a cutoff.
type AuditPruner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// PruneAuditEventsTask drops audit events older than RetentionDays.
type PruneAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t PruneAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "prune_audit_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration: 7 * 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// Cutoff is the instant before which events are deleted.
func (t PruneAuditEventsTask) Cutoff(now time.Time) time.Time {
	days := t.RetentionDays
	if days <= 0 {
		days = DefaultAuditRetentionDays
	}
	return now.AddDate(0, 0, -days)
}

func PruneAuditEventsProcessor(pruner AuditPruner) backlite.QueueProcessor[PruneAuditEventsTask] {
	return func(ctx context.Context, task PruneAuditEventsTask) error {
		if pruner == nil {
			return errors.New("audit pruner not configured")
		}
		cutoff := task.Cutoff(time.Now())
		deleted, err := pruner.DeleteOlderThan(cutoff)
		if err != nil {
			return fmt.Errorf("prune audit events: %w", err)
		}
		log.Printf("[TASK] Pruned %d audit event(s) older than %s", deleted, cutoff.Format(time.RFC3339))
		return nil
	}
}

func NewPruneAuditEventsQueue(pruner AuditPruner) backlite.Queue {
	return backlite.NewQueue(PruneAuditEventsProcessor(pruner))
}
