// Package coldemail enforces the daily quota and dispatches cold emails on
// behalf of job seekers.
package coldemail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"jobpilot/internal/clock"
	"jobpilot/internal/mailer"
	"jobpilot/internal/model"
	"jobpilot/internal/resume"
	"jobpilot/pkg/logger"
	"jobpilot/pkg/metrics"
)

type ProfileStore interface {
	GetByID(ctx context.Context, id int64) (*model.Profile, error)
}

type SubscriptionStore interface {
	// FindActive returns nil, nil when the profile has no active subscription.
	FindActive(ctx context.Context, profileID int64, now time.Time) (*model.Subscription, error)
}

type TemplateStore interface {
	Get(ctx context.Context, id int64) (*model.EmailTemplate, error)
	GetDefault(ctx context.Context, profileID int64) (*model.EmailTemplate, error)
}

// QuotaStore must apply each call atomically at the storage layer; the
// service holds no locks of its own.
type QuotaStore interface {
	Rollover(ctx context.Context, profileID int64, today time.Time) (int, error)
	Reserve(ctx context.Context, profileID int64, today time.Time, limit int) (int, bool, error)
	Release(ctx context.Context, profileID int64, today time.Time) error
}

// OutcomeStore persists attempt results. RecordFailed also releases the
// unit reserved for quotaDay.
type OutcomeStore interface {
	RecordSent(ctx context.Context, l *model.ColdEmailLog) error
	RecordFailed(ctx context.Context, l *model.ColdEmailLog, quotaDay time.Time) error
}

type LogStore interface {
	ListByProfile(ctx context.Context, profileID int64, limit, offset int) ([]*model.ColdEmailLog, error)
	MarkOpened(ctx context.Context, profileID, logID int64, at time.Time) error
	MarkReplied(ctx context.Context, profileID, logID int64, at time.Time) error
}

type Stores struct {
	Profiles      ProfileStore
	Subscriptions SubscriptionStore
	Templates     TemplateStore
	Quota         QuotaStore
	Outcomes      OutcomeStore
	Logs          LogStore
}

type Service struct {
	Stores
	transport mailer.Transport
	resumes   resume.Locator
	clock     clock.Clock
	limits    Limits
	logger    *zap.Logger
}

type Option func(*Service)

func WithLimits(l Limits) Option {
	return func(s *Service) { s.limits = l }
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func NewService(stores Stores, transport mailer.Transport, resumes resume.Locator, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		Stores:    stores,
		transport: transport,
		resumes:   resumes,
		clock:     clock.System{},
		limits:    DefaultLimits(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DailyLimit is GetEffectiveDailyLimit with this service's plan table.
func (s *Service) DailyLimit(sub *model.Subscription) int {
	return s.limits.EffectiveDailyLimit(sub, s.clock.Now())
}

type Stats struct {
	SentToday       int       `json:"sent_today"`
	DailyLimit      int       `json:"daily_limit"`
	Remaining       int       `json:"remaining"`
	Plan            string    `json:"plan,omitempty"`
	HasSubscription bool      `json:"has_subscription"`
	ResetsAt        time.Time `json:"resets_at"`
}

// GetStats applies the day rollover before reporting, same as a send does.
func (s *Service) GetStats(ctx context.Context, profileID int64) (*Stats, error) {
	now := s.clock.Now()
	today := clock.StartOfDay(now)

	sub, err := s.Subscriptions.FindActive(ctx, profileID, now)
	if err != nil {
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	count, err := s.Quota.Rollover(ctx, profileID, today)
	if err != nil {
		return nil, fmt.Errorf("rollover quota: %w", err)
	}

	limit := s.limits.EffectiveDailyLimit(sub, now)
	st := &Stats{
		SentToday:  count,
		DailyLimit: limit,
		Remaining:  max(0, limit-count),
		ResetsAt:   today.AddDate(0, 0, 1),
	}
	if sub != nil {
		st.Plan = sub.Plan
		st.HasSubscription = true
	}
	return st, nil
}

// ListLogs returns the sender's history, newest first.
func (s *Service) ListLogs(ctx context.Context, profileID int64, limit, offset int) ([]*model.ColdEmailLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.Logs.ListByProfile(ctx, profileID, limit, offset)
}

func (s *Service) MarkOpened(ctx context.Context, profileID, logID int64) error {
	return s.Logs.MarkOpened(ctx, profileID, logID, s.clock.Now())
}

func (s *Service) MarkReplied(ctx context.Context, profileID, logID int64) error {
	return s.Logs.MarkReplied(ctx, profileID, logID, s.clock.Now())
}

// checkSender runs the sender-level preconditions shared by single and bulk
// sends and returns the effective limit.
func (s *Service) checkSender(ctx context.Context, profileID int64, now time.Time) (*model.Profile, int, error) {
	profile, err := s.Profiles.GetByID(ctx, profileID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, 0, invalidRequest("sender profile not found")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load profile: %w", err)
	}
	if !profile.HasMailCredentials() {
		return nil, 0, credentialsMissing()
	}

	sub, err := s.Subscriptions.FindActive(ctx, profile.ID, now)
	if err != nil {
		return nil, 0, fmt.Errorf("find subscription: %w", err)
	}
	if !sub.IsActiveAt(now) {
		return nil, 0, subscriptionRequired()
	}
	return profile, s.limits.EffectiveDailyLimit(sub, now), nil
}

// reject records a precondition failure. Nothing is persisted for these.
func (s *Service) reject(ctx context.Context, profileID int64, err error) error {
	var de *DispatchError
	if errors.As(err, &de) {
		metrics.IncrementRejected(string(de.Kind))
		logger.WithTrace(ctx, s.logger).Info("cold email rejected",
			zap.Int64("profile_id", profileID),
			zap.String("reason", string(de.Kind)),
		)
	}
	return err
}
