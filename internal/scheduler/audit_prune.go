package scheduler

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookverse/internal/tasks"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Enqueuer hands tasks to the background queue.
type Enqueuer interface {
	Enqueue(tasks ...backlite.Task) ([]string, error)
}

// AuditPruneScheduler periodically enqueues audit retention runs.
// The scheduler only enqueues; the queue workers do the deleting.
type AuditPruneScheduler struct {
	queue         Enqueuer
	schedule      string
	retentionDays int

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.Mutex
	isRunning bool
}

func NewAuditPruneScheduler(queue Enqueuer, schedule string, retentionDays int) (*AuditPruneScheduler, error) {
	if err := ValidateSchedule(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	return &AuditPruneScheduler{
		queue:         queue,
		schedule:      schedule,
		retentionDays: retentionDays,
		cron:          cron.New(cron.WithParser(parser)),
	}, nil
}

func (s *AuditPruneScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunNow(); err != nil {
			log.Printf("Audit prune scheduler: enqueue failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule audit prune: %w", err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	log.Printf("Audit prune scheduler: started with schedule '%s', keeping %d day(s). Next run: %v",
		s.schedule, s.retentionDays, s.cron.Entry(entryID).Next)
	return nil
}

// Stop waits for an in-flight enqueue to return.
func (s *AuditPruneScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.isRunning = false
	log.Printf("Audit prune scheduler: stopped")
}

// RunNow enqueues a prune immediately and returns the task ID.
func (s *AuditPruneScheduler) RunNow() (string, error) {
	ids, err := s.queue.Enqueue(tasks.PruneAuditEventsTask{RetentionDays: s.retentionDays})
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("queue returned no task id")
	}
	return ids[0], nil
}

// NextRun is zero while the scheduler is stopped.
func (s *AuditPruneScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}
