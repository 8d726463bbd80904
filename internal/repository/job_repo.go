package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobpilot/internal/model"
)

type JobRepository struct {
	db *pgxpool.Pool
}

func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: db}
}

const selectJobColumns = `
	SELECT id, recruiter_id, title, company_name, skills,
	       COALESCE(experience_level, ''), is_active, created_at
	FROM jobs
`

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var level string
	err := row.Scan(
		&j.ID,
		&j.RecruiterID,
		&j.Title,
		&j.CompanyName,
		&j.Skills,
		&level,
		&j.IsActive,
		&j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.ExperienceLevel = model.ExperienceLevel(level)
	return &j, nil
}

// GetByID returns job by id.
func (r *JobRepository) GetByID(ctx context.Context, id int64) (*model.Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, selectJobColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return j, nil
}

// ListActive returns active jobs, oldest id first.
func (r *JobRepository) ListActive(ctx context.Context, limit int) ([]*model.Job, error) {
	rows, err := r.db.Query(ctx, selectJobColumns+`
		WHERE is_active = TRUE
		ORDER BY id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
