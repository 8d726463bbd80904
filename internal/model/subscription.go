package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionFailed    SubscriptionStatus = "failed"
)

type Subscription struct {
	ID        int64
	ProfileID int64
	Plan      string
	// DailyEmailLimit overrides the plan table when set.
	DailyEmailLimit *int
	Status          SubscriptionStatus
	StartDate       time.Time
	EndDate         time.Time
	CreatedAt       time.Time
}

// IsActiveAt reports whether the subscription is active and inside its
// validity window at now.
func (s *Subscription) IsActiveAt(now time.Time) bool {
	if s == nil || s.Status != SubscriptionActive {
		return false
	}
	if !s.StartDate.IsZero() && now.Before(s.StartDate) {
		return false
	}
	return s.EndDate.IsZero() || now.Before(s.EndDate)
}
