// Package app wires repositories, caches and services shared by the api
// and worker binaries.
package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"jobpilot/internal/cache"
	"jobpilot/internal/clock"
	"jobpilot/internal/config"
	"jobpilot/internal/mailer"
	"jobpilot/internal/repository"
	"jobpilot/internal/resume"
	"jobpilot/internal/service/coldemail"
	"jobpilot/internal/service/match"
	"jobpilot/internal/service/templates"
	"jobpilot/pkg/circuitbreaker"
	"jobpilot/pkg/outbox"
	"jobpilot/pkg/secret"
)

type Core struct {
	Profiles  *repository.ProfileRepository
	Jobs      *repository.JobRepository
	Cache     *cache.TemplateCache
	Box       *secret.Box
	Outbox    *outbox.Repository
	ColdEmail *coldemail.Service
	Templates *templates.Service
	Match     *match.Service
}

func NewCore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client, logger *zap.Logger) (*Core, error) {
	box, err := newBox(cfg, logger)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	resumes, err := newResumeLocator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	profileRepo := repository.NewProfileRepository(pool)
	jobRepo := repository.NewJobRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	logRepo := repository.NewColdEmailLogRepository(pool)
	quotaRepo := repository.NewQuotaRepository(pool)

	templateCache := cache.NewTemplateCache(rdb, templateRepo, cfg.TemplateCache.TTL, logger)

	limits := coldemail.DefaultLimits()
	if len(cfg.Quota.Plans) > 0 {
		limits.Plans = cfg.Quota.Plans
	}
	if cfg.Quota.Fallback > 0 {
		limits.Fallback = cfg.Quota.Fallback
	}

	coldEmailSvc := coldemail.NewService(coldemail.Stores{
		Profiles:      profileRepo,
		Subscriptions: repository.NewSubscriptionRepository(pool),
		Templates:     templateCache,
		Quota:         quotaRepo,
		Outcomes:      repository.NewOutcomeWriter(pool, logRepo, quotaRepo),
		Logs:          logRepo,
	}, newTransport(cfg, box, logger), resumes, logger,
		coldemail.WithLimits(limits),
		coldemail.WithClock(clock.System{Location: loc}),
	)

	return &Core{
		Profiles:  profileRepo,
		Jobs:      jobRepo,
		Cache:     templateCache,
		Box:       box,
		Outbox:    outbox.NewRepository(pool),
		ColdEmail: coldEmailSvc,
		Templates: templates.NewService(templateRepo, templateCache, logger),
		Match:     match.NewService(profileRepo, jobRepo, logger),
	}, nil
}

func newTransport(cfg *config.Config, box *secret.Box, logger *zap.Logger) mailer.Transport {
	var next mailer.Transport
	if cfg.Transport == "log" {
		next = mailer.NewLogTransport(logger)
	} else {
		next = mailer.NewSMTPTransport(cfg.SMTP, box, logger)
	}
	return mailer.NewGuardedTransport(next, circuitbreaker.NewCircuitBreaker(cfg.Breaker), logger)
}

func newResumeLocator(ctx context.Context, cfg *config.Config) (resume.Locator, error) {
	if cfg.Resume.Backend == "s3" {
		client, err := resume.NewS3Client(ctx, cfg.Resume)
		if err != nil {
			return nil, err
		}
		return resume.NewS3Store(client, cfg.Resume.Bucket), nil
	}
	return resume.NewLocalStore(cfg.Resume.LocalDir), nil
}

// newBox 在 log 模式下没有配置密钥时生成临时密钥，重启后之前保存的密码无法解开
func newBox(cfg *config.Config, logger *zap.Logger) (*secret.Box, error) {
	key := cfg.CredentialsKey
	if key == "" {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("generate credentials key: %w", err)
		}
		key = base64.StdEncoding.EncodeToString(raw)
		logger.Warn("CREDENTIALS_KEY not set, using an ephemeral key")
	}
	return secret.NewBox(key)
}
