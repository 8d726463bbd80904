package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	contractmq "jobpilot/contracts/mq"
	"jobpilot/internal/model"
	"jobpilot/pkg/mq"
	"jobpilot/pkg/outbox"
	"jobpilot/pkg/trace"
)

const aggregateColdEmail = "cold_email"

// OutcomeWriter persists the result of one send attempt: the log row, its
// outbox event and (for failures) the quota release share one transaction.
type OutcomeWriter struct {
	db    *pgxpool.Pool
	logs  *ColdEmailLogRepository
	quota *QuotaRepository
}

func NewOutcomeWriter(db *pgxpool.Pool, logs *ColdEmailLogRepository, quota *QuotaRepository) *OutcomeWriter {
	return &OutcomeWriter{db: db, logs: logs, quota: quota}
}

// RecordSent stores a "sent" row and queues coldemail.sent.
func (w *OutcomeWriter) RecordSent(ctx context.Context, l *model.ColdEmailLog) error {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := w.logs.Insert(ctx, tx, l); err != nil {
		return err
	}

	payload := contractmq.ColdEmailSentPayload{
		LogID:          l.ID,
		ProfileID:      l.ProfileID,
		RecipientEmail: l.RecipientEmail,
		CompanyName:    l.CompanyName,
		JobID:          l.JobID,
		TemplateID:     l.TemplateID,
		ResumeAttached: l.ResumeAttached,
		MessageID:      l.MessageID,
		SentAt:         l.SentAt,
		TraceID:        trace.FromContext(ctx),
	}
	if err := outbox.InsertEventInTx(ctx, tx, aggregateColdEmail, &l.ID, mq.RoutingColdEmailSent, payload); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return tx.Commit(ctx)
}

// RecordFailed stores a "failed" row, queues coldemail.failed and hands the
// reserved unit for quotaDay back.
func (w *OutcomeWriter) RecordFailed(ctx context.Context, l *model.ColdEmailLog, quotaDay time.Time) error {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := w.logs.Insert(ctx, tx, l); err != nil {
		return err
	}
	if err := w.quota.ReleaseWith(ctx, tx, l.ProfileID, quotaDay); err != nil {
		return err
	}

	payload := contractmq.ColdEmailFailedPayload{
		LogID:          l.ID,
		ProfileID:      l.ProfileID,
		RecipientEmail: l.RecipientEmail,
		Error:          l.ErrorMessage,
		ErrorType:      l.ErrorType,
		FailedAt:       l.SentAt,
		TraceID:        trace.FromContext(ctx),
	}
	if err := outbox.InsertEventInTx(ctx, tx, aggregateColdEmail, &l.ID, mq.RoutingColdEmailFailed, payload); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return tx.Commit(ctx)
}
