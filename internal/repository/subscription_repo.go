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

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// FindActive returns the active subscription covering now, or nil when
// there is none. With overlapping windows the one ending last wins.
func (r *SubscriptionRepository) FindActive(ctx context.Context, profileID int64, now time.Time) (*model.Subscription, error) {
	query := `
		SELECT id, profile_id, plan, daily_email_limit, status, start_date, end_date, created_at
		FROM subscriptions
		WHERE profile_id = $1
		  AND status = 'active'
		  AND start_date <= $2
		  AND end_date > $2
		ORDER BY end_date DESC
		LIMIT 1
	`
	var s model.Subscription
	var status string
	err := r.db.QueryRow(ctx, query, profileID, now).Scan(
		&s.ID,
		&s.ProfileID,
		&s.Plan,
		&s.DailyEmailLimit,
		&status,
		&s.StartDate,
		&s.EndDate,
		&s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}
	s.Status = model.SubscriptionStatus(status)
	return &s, nil
}
