package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"jobpilot/pkg/circuitbreaker"
	"jobpilot/pkg/config"
)

// QuotaConfig 套餐每日额度
type QuotaConfig struct {
	Plans    map[string]int `yaml:"plans"`
	Fallback int            `yaml:"fallback"`
	// 计算"今天"使用的时区，空则用服务器本地时区
	Timezone string `yaml:"timezone"`
}

// OutboxConfig outbox 派发参数
type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

type TemplateCacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type Config struct {
	DB            config.DBConfig       `yaml:"db"`
	MQ            config.MQConfig       `yaml:"mq"`
	Redis         config.RedisConfig    `yaml:"redis"`
	JWT           config.JWTConfig      `yaml:"jwt"`
	Server        config.ServerConfig   `yaml:"server"`
	SMTP          config.SMTPConfig     `yaml:"smtp"`
	Resume        config.ResumeConfig   `yaml:"resume"`
	Quota         QuotaConfig           `yaml:"quota"`
	Breaker       circuitbreaker.Config `yaml:"breaker"`
	Outbox        OutboxConfig          `yaml:"outbox"`
	TemplateCache TemplateCacheConfig   `yaml:"template_cache"`
	// dev 下为 log 时不真正发信
	Transport string `yaml:"transport"`
	// 加密发件人 app password 的 base64 密钥，只从环境变量读取
	CredentialsKey string `yaml:"-"`
}

// Load 读取 config/base.yaml + config/<CONFIG_ENV>.yaml，再用环境变量覆盖
func Load() (*Config, error) {
	return LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
}

func LoadFrom(env, dir string) (*Config, error) {
	raw, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	cfg := defaults()
	if err := config.Decode(raw, cfg); err != nil {
		return nil, err
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideSMTPFromEnv(&cfg.SMTP)
	config.OverrideResumeFromEnv(&cfg.Resume)
	if tz := os.Getenv("QUOTA_TIMEZONE"); tz != "" {
		cfg.Quota.Timezone = tz
	}
	if v := os.Getenv("QUOTA_FALLBACK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Quota.Fallback = n
		}
	}
	if t := os.Getenv("MAIL_TRANSPORT"); t != "" {
		cfg.Transport = t
	}
	cfg.CredentialsKey = os.Getenv("CREDENTIALS_KEY")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server:        config.ServerConfig{Port: ":8080"},
		Breaker:       circuitbreaker.DefaultConfig(),
		Outbox:        OutboxConfig{Interval: 5 * time.Second, BatchSize: 10, MaxRetries: 5},
		TemplateCache: TemplateCacheConfig{TTL: 10 * time.Minute},
		Transport:     "smtp",
	}
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	switch c.Transport {
	case "smtp", "log":
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.Transport == "smtp" && c.CredentialsKey == "" {
		return fmt.Errorf("CREDENTIALS_KEY is required for smtp transport")
	}
	switch c.Resume.Backend {
	case "", "local", "s3":
	default:
		return fmt.Errorf("unknown resume backend %q", c.Resume.Backend)
	}
	if c.Resume.Backend == "s3" && c.Resume.Bucket == "" {
		return fmt.Errorf("resume.bucket is required for s3 backend")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location 返回额度日切使用的时区
func (c *Config) Location() (*time.Location, error) {
	if c.Quota.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Quota.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid quota.timezone %q: %w", c.Quota.Timezone, err)
	}
	return loc, nil
}
