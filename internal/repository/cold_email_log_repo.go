package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"jobpilot/internal/model"
)

type ColdEmailLogRepository struct {
	db *pgxpool.Pool
}

func NewColdEmailLogRepository(db *pgxpool.Pool) *ColdEmailLogRepository {
	return &ColdEmailLogRepository{db: db}
}

// Insert appends a log row on q and fills ID and SentAt.
func (r *ColdEmailLogRepository) Insert(ctx context.Context, q DBTX, l *model.ColdEmailLog) error {
	query := `
		INSERT INTO cold_email_logs (
			profile_id, recipient_email, recipient_name, company_name, job_title,
			job_id, template_id, subject, body, status, error_message, error_type,
			resume_attached, message_id, sent_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`
	if l.SentAt.IsZero() {
		l.SentAt = time.Now()
	}
	err := q.QueryRow(ctx, query,
		l.ProfileID,
		l.RecipientEmail,
		l.RecipientName,
		l.CompanyName,
		l.JobTitle,
		l.JobID,
		l.TemplateID,
		l.Subject,
		l.Body,
		string(l.Status),
		l.ErrorMessage,
		l.ErrorType,
		l.ResumeAttached,
		l.MessageID,
		l.SentAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to insert cold email log: %w", err)
	}
	return nil
}

// ListByProfile returns a page of the sender's history, newest first.
func (r *ColdEmailLogRepository) ListByProfile(ctx context.Context, profileID int64, limit, offset int) ([]*model.ColdEmailLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, profile_id, recipient_email, recipient_name, company_name, job_title,
		       job_id, template_id, subject, body, status, error_message, error_type,
		       resume_attached, message_id, sent_at, opened_at, replied_at
		FROM cold_email_logs
		WHERE profile_id = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, profileID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list cold email logs: %w", err)
	}
	defer rows.Close()

	var out []*model.ColdEmailLog
	for rows.Next() {
		var l model.ColdEmailLog
		var status string
		err := rows.Scan(
			&l.ID,
			&l.ProfileID,
			&l.RecipientEmail,
			&l.RecipientName,
			&l.CompanyName,
			&l.JobTitle,
			&l.JobID,
			&l.TemplateID,
			&l.Subject,
			&l.Body,
			&status,
			&l.ErrorMessage,
			&l.ErrorType,
			&l.ResumeAttached,
			&l.MessageID,
			&l.SentAt,
			&l.OpenedAt,
			&l.RepliedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cold email log: %w", err)
		}
		l.Status = model.ColdEmailStatus(status)
		out = append(out, &l)
	}
	return out, rows.Err()
}

// MarkOpened records the first open; later calls keep the original time.
func (r *ColdEmailLogRepository) MarkOpened(ctx context.Context, profileID, logID int64, at time.Time) error {
	return r.markOnce(ctx, "opened_at", profileID, logID, at)
}

// MarkReplied records the first reply.
func (r *ColdEmailLogRepository) MarkReplied(ctx context.Context, profileID, logID int64, at time.Time) error {
	return r.markOnce(ctx, "replied_at", profileID, logID, at)
}

func (r *ColdEmailLogRepository) markOnce(ctx context.Context, column string, profileID, logID int64, at time.Time) error {
	// column 只来自上面两个常量
	query := fmt.Sprintf(`
		UPDATE cold_email_logs
		SET %[1]s = COALESCE(%[1]s, $3)
		WHERE id = $1 AND profile_id = $2 AND status = 'sent'
	`, column)
	tag, err := r.db.Exec(ctx, query, logID, profileID, at)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
