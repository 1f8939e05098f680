// Package worker drains the Redis job queues: notification inserts, approved
// member fan-outs, and OTP mail.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/queue"
)

// NotificationStore persists notification rows and resolves fan-out
// recipients. *notifications.Repository satisfies it.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListApprovedMemberAccountIDs(ctx context.Context, organizationID int64) ([]int64, error)
}

// OTPMailer delivers verification codes. *mailer.Mailer satisfies it.
type OTPMailer interface {
	SendOTP(to, code string) error
}

// Processor executes queued jobs.
type Processor struct {
	notifRepo NotificationStore
	mail      OTPMailer
	queue     *queue.Queue
	logger    *zap.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(notifRepo NotificationStore, mail OTPMailer, q *queue.Queue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{notifRepo: notifRepo, mail: mail, queue: q, logger: logger}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeNotification:
		return p.processNotification(ctx, job)
	case queue.JobTypeFanOut:
		return p.processFanOut(ctx, job)
	case queue.JobTypeOTPEmail:
		return p.processOTPEmail(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *Processor) processNotification(ctx context.Context, job *queue.Job) error {
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	n := notificationFromPayload(payload.RecipientID, payload.Type, payload.Title, payload.Message,
		payload.RelatedEntityID, payload.RelatedEntityType)
	if err := p.notifRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	p.logger.Debug("notification delivered",
		zap.Int64("recipient_id", payload.RecipientID), zap.String("type", payload.Type))
	return nil
}

func (p *Processor) processFanOut(ctx context.Context, job *queue.Job) error {
	var payload queue.FanOutPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	recipients, err := p.notifRepo.ListApprovedMemberAccountIDs(ctx, payload.OrganizationID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	// Each recipient is independent. A failed insert is logged and dropped
	// rather than failing the job: retrying the whole batch would deliver
	// duplicates to every recipient that already got theirs.
	var failed int
	for _, recipientID := range recipients {
		n := notificationFromPayload(recipientID, payload.Type, payload.Title, payload.Message,
			payload.RelatedEntityID, payload.RelatedEntityType)
		if err := p.notifRepo.Create(ctx, n); err != nil {
			failed++
			p.logger.Warn("fan-out insert failed",
				zap.Int64("recipient_id", recipientID), zap.Error(err))
		}
	}
	p.logger.Info("fan-out delivered",
		zap.Int64("organization_id", payload.OrganizationID),
		zap.Int("recipients", len(recipients)), zap.Int("failed", failed))
	return nil
}

func (p *Processor) processOTPEmail(_ context.Context, job *queue.Job) error {
	var payload queue.OTPEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := p.mail.SendOTP(payload.Email, payload.Code); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	p.logger.Info("otp mail sent", zap.Int64("account_id", payload.AccountID))
	return nil
}

func notificationFromPayload(recipientID int64, typ, title, message string, entityID *int64, entityType *string) *models.Notification {
	n := &models.Notification{
		RecipientID:     recipientID,
		Type:            models.NotificationType(typ),
		Title:           title,
		Message:         message,
		RelatedEntityID: entityID,
	}
	if entityType != nil {
		et := models.RelatedEntityType(*entityType)
		n.RelatedEntityType = &et
	}
	return n
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, key, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("worker stopping")
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job, key); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
