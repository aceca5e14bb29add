package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RedisQueue implements QueueInterface on Redis lists with a database audit
// row per job. One list per job type, plus a sorted set of delayed jobs whose
// score is the run-at timestamp.
type RedisQueue struct {
	client   *redis.Client
	db       *gorm.DB
	ctx      context.Context
	handlers map[JobType]JobHandler
}

// NewRedisQueue creates a new Redis-backed queue
func NewRedisQueue(client *redis.Client, db *gorm.DB) *RedisQueue {
	return &RedisQueue{
		client:   client,
		db:       db,
		ctx:      context.Background(),
		handlers: make(map[JobType]JobHandler),
	}
}

// RegisterHandler registers a handler for a job type
func (q *RedisQueue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.handlers[jobType] = handler
}

func queueKey(jobType JobType) string {
	return "queue:" + string(jobType)
}

func delayedKey(jobType JobType) string {
	return "delayed:" + string(jobType)
}

// Enqueue adds a job to its queue
func (q *RedisQueue) Enqueue(job *Job) error {
	q.prepare(job)

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to persist job record: %w", err)
	}

	if err := q.client.LPush(q.ctx, queueKey(job.Type), jobBytes).Err(); err != nil {
		return fmt.Errorf("failed to push job to queue: %w", err)
	}

	if err := q.client.Expire(q.ctx, queueKey(job.Type), DefaultTTL).Err(); err != nil {
		log.Printf("Warning: failed to set TTL on queue %s: %v", job.Type, err)
	}

	return nil
}

// EnqueueIn adds a job to the delayed set, to be moved to its queue after delay
func (q *RedisQueue) EnqueueIn(job *Job, delay time.Duration) error {
	q.prepare(job)
	runAt := time.Now().Add(delay)
	job.NextRetry = &runAt

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.db.Save(job).Error; err != nil {
		return fmt.Errorf("failed to persist job record: %w", err)
	}

	if err := q.client.ZAdd(q.ctx, delayedKey(job.Type), &redis.Z{
		Score:  float64(runAt.Unix()),
		Member: jobBytes,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add job to delayed queue: %w", err)
	}

	return nil
}

// Dequeue pops the next ready job of the given type, or nil if none
func (q *RedisQueue) Dequeue(jobType JobType) (*Job, error) {
	q.moveReadyDelayedJobs(jobType)

	result := q.client.BRPop(q.ctx, 1*time.Second, queueKey(jobType))
	if result.Err() != nil {
		if result.Err() == redis.Nil {
			return nil, nil // no jobs available
		}
		return nil, fmt.Errorf("failed to pop job from queue: %w", result.Err())
	}

	vals := result.Val()
	if len(vals) < 2 {
		return nil, fmt.Errorf("unexpected result format from BRPOP")
	}

	var job Job
	if err := json.Unmarshal([]byte(vals[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	q.updateRecord(&job, JobStatusProcessing, "")
	return &job, nil
}

// Complete marks a job as successfully processed
func (q *RedisQueue) Complete(job *Job, result interface{}) error {
	if result != nil {
		resultBytes, err := json.Marshal(result)
		if err != nil {
			log.Printf("Warning: failed to marshal result for job %s: %v", job.ID, err)
		} else {
			job.Result = resultBytes
		}
	}
	q.updateRecord(job, JobStatusCompleted, "")
	return nil
}

// Fail records a failure and schedules a retry with exponential backoff until
// the retry budget runs out
func (q *RedisQueue) Fail(job *Job, jobErr error) error {
	job.RetryCount++
	if job.RetryCount <= job.MaxRetries {
		delay := retryBackoff(job.RetryCount)
		log.Printf("Job %s failed (attempt %d/%d), retrying in %s: %v",
			job.ID, job.RetryCount, job.MaxRetries, delay, jobErr)
		q.updateRecord(job, JobStatusPending, jobErr.Error())
		return q.EnqueueIn(job, delay)
	}

	log.Printf("Job %s failed permanently after %d attempts: %v", job.ID, job.RetryCount, jobErr)
	q.updateRecord(job, JobStatusFailed, jobErr.Error())
	return nil
}

// moveReadyDelayedJobs moves delayed jobs whose run-at has passed to the main queue
func (q *RedisQueue) moveReadyDelayedJobs(jobType JobType) {
	now := time.Now().Unix()

	jobs, err := q.client.ZRangeByScore(q.ctx, delayedKey(jobType), &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		log.Printf("Error getting ready delayed jobs: %v", err)
		return
	}

	for _, jobBytes := range jobs {
		if err := q.client.LPush(q.ctx, queueKey(jobType), jobBytes).Err(); err != nil {
			log.Printf("Error moving delayed job to queue: %v", err)
			continue
		}
		if err := q.client.ZRem(q.ctx, delayedKey(jobType), jobBytes).Err(); err != nil {
			log.Printf("Error removing job from delayed queue: %v", err)
		}
	}
}

func (q *RedisQueue) prepare(job *Job) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = DefaultMaxRetries
	}
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	job.Status = JobStatusPending
}

func (q *RedisQueue) updateRecord(job *Job, status JobStatus, errMsg string) {
	job.Status = status
	job.UpdatedAt = time.Now()
	if errMsg != "" {
		job.Error = errMsg
	}
	if err := q.db.Model(&Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"status":      status,
		"retry_count": job.RetryCount,
		"error":       job.Error,
		"result":      job.Result,
		"next_retry":  job.NextRetry,
		"updated_at":  job.UpdatedAt,
	}).Error; err != nil {
		log.Printf("Warning: failed to update job record %s: %v", job.ID, err)
	}
}

func retryBackoff(attempt int) time.Duration {
	delay := 30 * time.Second
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}
	return delay
}
