package model

import "time"

type ExperienceLevel string

const (
	LevelEntry  ExperienceLevel = "entry"
	LevelMid    ExperienceLevel = "mid"
	LevelSenior ExperienceLevel = "senior"
	LevelLead   ExperienceLevel = "lead"
)

// Valid reports whether l is one of the known levels.
func (l ExperienceLevel) Valid() bool {
	switch l {
	case LevelEntry, LevelMid, LevelSenior, LevelLead:
		return true
	}
	return false
}

type Job struct {
	ID              int64
	RecruiterID     int64
	Title           string
	CompanyName     string
	Skills          []string
	ExperienceLevel ExperienceLevel // empty when the posting does not say
	IsActive        bool
	CreatedAt       time.Time
}
