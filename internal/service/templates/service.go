package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"jobpilot/internal/model"
)

var ErrInvalidTemplate = errors.New("template needs a subject or a body")

type Store interface {
	Create(ctx context.Context, t *model.EmailTemplate) error
	SetDefault(ctx context.Context, profileID, templateID int64) error
	ListByProfile(ctx context.Context, profileID int64) ([]*model.EmailTemplate, error)
}

// Invalidator drops cached lookups after a write.
type Invalidator interface {
	Invalidate(ctx context.Context, profileID int64, templateIDs ...int64)
}

type Service struct {
	store  Store
	cache  Invalidator
	logger *zap.Logger
}

func NewService(store Store, cache Invalidator, logger *zap.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

func (s *Service) Create(ctx context.Context, t *model.EmailTemplate) error {
	t.Name = strings.TrimSpace(t.Name)
	if strings.TrimSpace(t.Subject) == "" && strings.TrimSpace(t.Body) == "" {
		return ErrInvalidTemplate
	}
	if err := s.store.Create(ctx, t); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	if t.IsDefault && s.cache != nil {
		s.cache.Invalidate(ctx, t.ProfileID, t.ID)
	}
	s.logger.Info("template created",
		zap.Int64("profile_id", t.ProfileID),
		zap.Int64("template_id", t.ID),
		zap.Bool("default", t.IsDefault),
	)
	return nil
}

// SetDefault makes templateID the owner's only default. A template owned
// by someone else reports model.ErrNotFound.
func (s *Service) SetDefault(ctx context.Context, profileID, templateID int64) error {
	if err := s.store.SetDefault(ctx, profileID, templateID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, profileID, templateID)
	}
	return nil
}

func (s *Service) List(ctx context.Context, profileID int64) ([]*model.EmailTemplate, error) {
	return s.store.ListByProfile(ctx, profileID)
}
