package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeSendNotification  JobType = "send_notification"
	JobTypeReconcileBalances JobType = "reconcile_balances"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

const (
	// DefaultMaxRetries is the retry budget for a job unless overridden
	DefaultMaxRetries = 3

	// DefaultTTL is how long job detail records live in Redis
	DefaultTTL = 24 * time.Hour
)

// Job represents a background job. Rows double as an audit trail of everything
// that went through the queue.
type Job struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload" gorm:"type:jsonb"`
	Status     JobStatus       `json:"status"`
	RetryCount int             `json:"retry_count" gorm:"default:0"`
	MaxRetries int             `json:"max_retries" gorm:"default:3"`
	NextRetry  *time.Time      `json:"next_retry,omitempty"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// JobHandler is a function that processes a job
type JobHandler func(ctx context.Context, job Job) (interface{}, error)

// QueueInterface defines the interface for job queue operations
type QueueInterface interface {
	RegisterHandler(jobType JobType, handler JobHandler)
	Enqueue(job *Job) error
	EnqueueIn(job *Job, delay time.Duration) error
}
