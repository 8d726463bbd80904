package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobpilot/internal/model"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const selectProfileColumns = `
	SELECT id, user_id, full_name, skills, experience, email_user, email_secret,
	       emails_sent_today, last_email_reset_date, resume_key, created_at
	FROM profiles
`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.FullName,
		&p.Skills,
		&p.Experience,
		&p.EmailUser,
		&p.EmailSecret,
		&p.EmailsSentToday,
		&p.LastEmailResetDate,
		&p.ResumeKey,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID returns profile by id.
func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, selectProfileColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetByUserID resolves the profile owned by an authenticated user.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, selectProfileColumns+` WHERE user_id = $1`, userID))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// ListForMatching returns profiles that declared at least one skill.
func (r *ProfileRepository) ListForMatching(ctx context.Context, limit int) ([]*model.Profile, error) {
	rows, err := r.db.Query(ctx, selectProfileColumns+`
		WHERE cardinality(skills) > 0
		ORDER BY id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetEmailCredentials stores the sender address and the already sealed secret.
func (r *ProfileRepository) SetEmailCredentials(ctx context.Context, profileID int64, user, sealedSecret string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET email_user = $2, email_secret = $3
		WHERE id = $1
	`, profileID, user, sealedSecret)
	if err != nil {
		return fmt.Errorf("failed to update email credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
