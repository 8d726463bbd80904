package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobpilot/internal/model"
)

type TemplateRepository struct {
	db *pgxpool.Pool
}

func NewTemplateRepository(db *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const selectTemplateColumns = `
	SELECT id, profile_id, name, subject, body, is_default, created_at, updated_at
	FROM email_templates
`

func scanTemplate(row pgx.Row) (*model.EmailTemplate, error) {
	var t model.EmailTemplate
	err := row.Scan(
		&t.ID,
		&t.ProfileID,
		&t.Name,
		&t.Subject,
		&t.Body,
		&t.IsDefault,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Get returns template by id.
func (r *TemplateRepository) Get(ctx context.Context, id int64) (*model.EmailTemplate, error) {
	t, err := scanTemplate(r.db.QueryRow(ctx, selectTemplateColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// GetDefault returns the owner's default template.
func (r *TemplateRepository) GetDefault(ctx context.Context, profileID int64) (*model.EmailTemplate, error) {
	t, err := scanTemplate(r.db.QueryRow(ctx, selectTemplateColumns+`
		WHERE profile_id = $1 AND is_default = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`, profileID))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// ListByProfile returns all templates of one owner.
func (r *TemplateRepository) ListByProfile(ctx context.Context, profileID int64) ([]*model.EmailTemplate, error) {
	rows, err := r.db.Query(ctx, selectTemplateColumns+`
		WHERE profile_id = $1
		ORDER BY id ASC
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var out []*model.EmailTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts a template. When it is flagged default the owner's other
// defaults are cleared in the same transaction.
func (r *TemplateRepository) Create(ctx context.Context, t *model.EmailTemplate) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if t.IsDefault {
		if err := clearDefaults(ctx, tx, t.ProfileID); err != nil {
			return err
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO email_templates (profile_id, name, subject, body, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, t.ProfileID, t.Name, t.Subject, t.Body, t.IsDefault).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}

	return tx.Commit(ctx)
}

// SetDefault marks templateID as the owner's only default.
func (r *TemplateRepository) SetDefault(ctx context.Context, profileID, templateID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := clearDefaults(ctx, tx, profileID); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE email_templates
		SET is_default = TRUE, updated_at = NOW()
		WHERE id = $1 AND profile_id = $2
	`, templateID, profileID)
	if err != nil {
		return fmt.Errorf("failed to set default template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return tx.Commit(ctx)
}

func clearDefaults(ctx context.Context, tx pgx.Tx, profileID int64) error {
	// 先锁 profile 行，串行化同一用户的并发 SetDefault
	if _, err := tx.Exec(ctx, `SELECT 1 FROM profiles WHERE id = $1 FOR UPDATE`, profileID); err != nil {
		return fmt.Errorf("failed to lock profile: %w", err)
	}
	_, err := tx.Exec(ctx, `
		UPDATE email_templates
		SET is_default = FALSE, updated_at = NOW()
		WHERE profile_id = $1 AND is_default = TRUE
	`, profileID)
	if err != nil {
		return fmt.Errorf("failed to clear default templates: %w", err)
	}
	return nil
}
