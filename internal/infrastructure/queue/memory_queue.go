package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryQueue is the single-process queue used when Redis is disabled.
type MemoryQueue struct {
	jobs     chan *Job
	handlers map[string]Handler
	mu       sync.RWMutex
	logger   *zap.SugaredLogger
}

var _ ports.JobQueue = (*MemoryQueue)(nil)

func NewMemoryQueue(logger *zap.SugaredLogger) *MemoryQueue {
	return &MemoryQueue{
		jobs:     make(chan *Job, 128),
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Payload:    data,
		EnqueuedAt: time.Now(),
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("job queue full, dropping %s job", jobType)
	}
}

func (q *MemoryQueue) Register(jobType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

func (q *MemoryQueue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-q.jobs:
			q.mu.RLock()
			handler, ok := q.handlers[job.Type]
			q.mu.RUnlock()

			if !ok {
				q.logger.Warnw("no handler for job type", "type", job.Type, "job_id", job.ID)
				continue
			}
			if err := handler(ctx, job); err != nil {
				q.logger.Errorw("job handler failed",
					"type", job.Type,
					"job_id", job.ID,
					"error", err,
				)
			}
		}
	}
}
