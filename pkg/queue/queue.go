// Package queue is a Redis list-backed job queue for post-commit side
// effects: notification delivery (direct and fan-out) and OTP mail. Jobs are
// at-least-once; failed jobs are retried and eventually parked in a DLQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueNotifications is the Redis list key for notification jobs.
	QueueNotifications = "worker:notifications"
	// QueueEmails is the Redis list key for OTP mail jobs.
	QueueEmails = "worker:emails"
	// QueueDLQ is the dead-letter queue for jobs that exhausted retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before the DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeNotification JobType = "notification"
	JobTypeFanOut       JobType = "notification_fanout"
	JobTypeOTPEmail     JobType = "otp_email"
)

// NotificationPayload creates one notification row for one recipient.
type NotificationPayload struct {
	RecipientID       int64   `json:"recipient_id"`
	Type              string  `json:"type"`
	Title             string  `json:"title"`
	Message           string  `json:"message"`
	RelatedEntityID   *int64  `json:"related_entity_id,omitempty"`
	RelatedEntityType *string `json:"related_entity_type,omitempty"`
}

// FanOutPayload notifies every approved member of an organization.
type FanOutPayload struct {
	OrganizationID    int64   `json:"organization_id"`
	Type              string  `json:"type"`
	Title             string  `json:"title"`
	Message           string  `json:"message"`
	RelatedEntityID   *int64  `json:"related_entity_id,omitempty"`
	RelatedEntityType *string `json:"related_entity_type,omitempty"`
}

// OTPEmailPayload delivers a one-time PIN to an address.
type OTPEmailPayload struct {
	AccountID int64  `json:"account_id"`
	Email     string `json:"email"`
	Code      string `json:"code"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

func (q *Queue) enqueue(ctx context.Context, key string, jobType JobType, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued job", zap.String("job_id", job.ID), zap.String("type", string(jobType)))
	return nil
}

// EnqueueNotification enqueues a single-recipient notification job.
func (q *Queue) EnqueueNotification(ctx context.Context, payload NotificationPayload) error {
	return q.enqueue(ctx, QueueNotifications, JobTypeNotification, payload)
}

// EnqueueFanOut enqueues an approved-members fan-out job.
func (q *Queue) EnqueueFanOut(ctx context.Context, payload FanOutPayload) error {
	return q.enqueue(ctx, QueueNotifications, JobTypeFanOut, payload)
}

// EnqueueOTPEmail enqueues an OTP delivery job.
func (q *Queue) EnqueueOTPEmail(ctx context.Context, payload OTPEmailPayload) error {
	return q.enqueue(ctx, QueueEmails, JobTypeOTPEmail, payload)
}

// Dequeue blocks until a job is available on any queue or ctx is done.
// Returns the job and the queue it came from.
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, QueueNotifications, QueueEmails).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. After MaxRetries the job
// moves to the DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job, key string) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if key == "" {
		key = QueueNotifications
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
