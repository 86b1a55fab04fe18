package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const jobListKey = "consult:jobs"

// Job is one unit of background work. The only producer today is the
// orchestrator's post-call recording hand-off.
type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Handler processes one job.
type Handler func(ctx context.Context, job *Job) error

// RedisQueue is a Redis-list backed job queue. Enqueue is fire-and-forget
// from the caller's perspective; workers drain with BRPOP.
type RedisQueue struct {
	client   *redis.Client
	handlers map[string]Handler
	mu       sync.RWMutex
	logger   *zap.SugaredLogger
}

var _ ports.JobQueue = (*RedisQueue)(nil)

func NewRedisQueue(client *redis.Client, logger *zap.SugaredLogger) *RedisQueue {
	return &RedisQueue{
		client:   client,
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Payload:    data,
		EnqueuedAt: time.Now(),
	}
	encoded, err := json.Marshal(&job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.LPush(ctx, jobListKey, encoded).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	q.logger.Debugw("enqueued job", "job_id", job.ID, "type", jobType)
	return nil
}

// Register installs the handler for a job type. Must be called before Run.
func (q *RedisQueue) Register(jobType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Run drains jobs until ctx is done. Handler failures are logged and the
// job is dropped; recording post-processing is best effort.
func (q *RedisQueue) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := q.client.BRPop(ctx, 5*time.Second, jobListKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.logger.Warnw("job queue poll failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			q.logger.Warnw("discarding malformed job", "error", err)
			continue
		}
		q.dispatch(ctx, &job)
	}
}

func (q *RedisQueue) dispatch(ctx context.Context, job *Job) {
	q.mu.RLock()
	handler, ok := q.handlers[job.Type]
	q.mu.RUnlock()

	if !ok {
		q.logger.Warnw("no handler for job type", "type", job.Type, "job_id", job.ID)
		return
	}
	if err := handler(ctx, job); err != nil {
		q.logger.Errorw("job handler failed",
			"type", job.Type,
			"job_id", job.ID,
			"error", err,
		)
	}
}
