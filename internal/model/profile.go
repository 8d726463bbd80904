package model

import (
	"strings"
	"time"
)

// Profile is a job seeker's profile as far as matching and cold email care.
type Profile struct {
	ID         int64
	UserID     int64
	FullName   string
	Skills     []string
	Experience string

	// 发件凭证；EmailSecret 为加密后的值，只在发送时解密
	EmailUser   string
	EmailSecret string

	// 计数和日期必须成对读写
	EmailsSentToday    int
	LastEmailResetDate *time.Time

	ResumeKey string
	CreatedAt time.Time
}

// HasMailCredentials reports whether both sender address and secret are set.
func (p *Profile) HasMailCredentials() bool {
	return strings.TrimSpace(p.EmailUser) != "" && strings.TrimSpace(p.EmailSecret) != ""
}

// HasResume reports whether a resume reference is on file.
func (p *Profile) HasResume() bool {
	return strings.TrimSpace(p.ResumeKey) != ""
}
