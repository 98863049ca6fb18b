package scheduler

import (
	"errors"
	"sync"
	"testing"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookverse/internal/tasks"
)

type recordingQueue struct {
	mu    sync.Mutex
	tasks []backlite.Task
	err   error
}

func (q *recordingQueue) Enqueue(ts ...backlite.Task) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, ts...)
	return []string{"task-1"}, nil
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 3 * * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.Error(t, ValidateSchedule("every day"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestNewAuditPruneScheduler_RejectsBadSchedule(t *testing.T) {
	_, err := NewAuditPruneScheduler(&recordingQueue{}, "nope", 30)
	assert.Error(t, err)
}

func TestAuditPruneScheduler_RunNow(t *testing.T) {
	queue := &recordingQueue{}
	s, err := NewAuditPruneScheduler(queue, "0 3 * * *", 45)
	require.NoError(t, err)

	id, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, "task-1", id)
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, tasks.PruneAuditEventsTask{RetentionDays: 45}, queue.tasks[0])

	queue.err = errors.New("queue closed")
	_, err = s.RunNow()
	assert.Error(t, err)
}

func TestAuditPruneScheduler_StartStop(t *testing.T) {
	s, err := NewAuditPruneScheduler(&recordingQueue{}, "0 3 * * *", 30)
	require.NoError(t, err)

	assert.True(t, s.NextRun().IsZero())

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	next := s.NextRun()
	assert.False(t, next.IsZero())
	assert.Equal(t, 3, next.Hour())

	s.Stop()
	s.Stop()
	assert.True(t, s.NextRun().IsZero())
}
