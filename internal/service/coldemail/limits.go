package coldemail

import (
	"strings"
	"time"

	"jobpilot/internal/model"
)

// FallbackDailyLimit applies to active subscriptions on an unknown plan.
const FallbackDailyLimit = 20

// Limits maps plan tiers to daily cold email limits.
type Limits struct {
	Plans    map[string]int
	Fallback int
}

func DefaultLimits() Limits {
	return Limits{
		Plans: map[string]int{
			"basic":      20,
			"standard":   50,
			"premium":    100,
			"enterprise": 200,
		},
		Fallback: FallbackDailyLimit,
	}
}

// EffectiveDailyLimit returns 0 unless sub is active at now; then the
// explicit override, else the plan table, else the fallback.
func (l Limits) EffectiveDailyLimit(sub *model.Subscription, now time.Time) int {
	if !sub.IsActiveAt(now) {
		return 0
	}
	if sub.DailyEmailLimit != nil {
		if *sub.DailyEmailLimit < 0 {
			return 0
		}
		return *sub.DailyEmailLimit
	}
	if limit, ok := l.Plans[strings.ToLower(strings.TrimSpace(sub.Plan))]; ok {
		return limit
	}
	if l.Fallback > 0 {
		return l.Fallback
	}
	return FallbackDailyLimit
}

// GetEffectiveDailyLimit uses the default plan table.
func GetEffectiveDailyLimit(sub *model.Subscription, now time.Time) int {
	return DefaultLimits().EffectiveDailyLimit(sub, now)
}
