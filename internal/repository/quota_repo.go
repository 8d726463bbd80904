package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobpilot/internal/model"
)

// QuotaRepository owns profiles.emails_sent_today / last_email_reset_date.
// Every statement reads and writes the pair in one UPDATE so concurrent
// senders (across processes) serialize on the row lock.
type QuotaRepository struct {
	db *pgxpool.Pool
}

func NewQuotaRepository(db *pgxpool.Pool) *QuotaRepository {
	return &QuotaRepository{db: db}
}

// stale is true when the stored counter belongs to an earlier day.
const stale = `(last_email_reset_date IS NULL OR last_email_reset_date < $2)`

// Rollover resets the counter when the stored date is before today and
// returns the current count.
func (r *QuotaRepository) Rollover(ctx context.Context, profileID int64, today time.Time) (int, error) {
	query := `
		UPDATE profiles
		SET emails_sent_today     = CASE WHEN ` + stale + ` THEN 0 ELSE emails_sent_today END,
		    last_email_reset_date = CASE WHEN ` + stale + ` THEN $2 ELSE last_email_reset_date END
		WHERE id = $1
		RETURNING emails_sent_today
	`
	var count int
	if err := r.db.QueryRow(ctx, query, profileID, today).Scan(&count); err != nil {
		return 0, notFound(err)
	}
	return count, nil
}

// Reserve takes one unit of today's quota. ok is false when the count
// (after rollover) is already at limit; nothing is written in that case.
func (r *QuotaRepository) Reserve(ctx context.Context, profileID int64, today time.Time, limit int) (int, bool, error) {
	query := `
		UPDATE profiles
		SET emails_sent_today     = CASE WHEN ` + stale + ` THEN 1 ELSE emails_sent_today + 1 END,
		    last_email_reset_date = CASE WHEN ` + stale + ` THEN $2 ELSE last_email_reset_date END
		WHERE id = $1
		  AND (CASE WHEN ` + stale + ` THEN 0 ELSE emails_sent_today END) < $3
		RETURNING emails_sent_today
	`
	var count int
	err := r.db.QueryRow(ctx, query, profileID, today, limit).Scan(&count)
	if err == nil {
		return count, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("failed to reserve quota: %w", err)
	}

	// 区分“额度已满”和“profile 不存在”
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, profileID).Scan(&exists); err != nil {
		return 0, false, fmt.Errorf("failed to check profile: %w", err)
	}
	if !exists {
		return 0, false, model.ErrNotFound
	}
	return limit, false, nil
}

// Release gives back one reserved unit.
func (r *QuotaRepository) Release(ctx context.Context, profileID int64, today time.Time) error {
	return r.ReleaseWith(ctx, r.db, profileID, today)
}

// ReleaseWith is Release on a caller-supplied pool or transaction. It is a
// no-op once the day has rolled over, since that reservation is gone anyway.
func (r *QuotaRepository) ReleaseWith(ctx context.Context, q DBTX, profileID int64, today time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE profiles
		SET emails_sent_today = emails_sent_today - 1
		WHERE id = $1 AND last_email_reset_date = $2 AND emails_sent_today > 0
	`, profileID, today)
	if err != nil {
		return fmt.Errorf("failed to release quota: %w", err)
	}
	return nil
}
