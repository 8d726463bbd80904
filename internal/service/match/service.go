package match

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"jobpilot/internal/matching"
	"jobpilot/internal/model"
	"jobpilot/pkg/metrics"
)

// scanLimit bounds how many rows one ranking request scores.
const scanLimit = 500

type ProfileStore interface {
	GetByID(ctx context.Context, id int64) (*model.Profile, error)
	ListForMatching(ctx context.Context, limit int) ([]*model.Profile, error)
}

type JobStore interface {
	GetByID(ctx context.Context, id int64) (*model.Job, error)
	ListActive(ctx context.Context, limit int) ([]*model.Job, error)
}

type Match struct {
	ProfileID     int64    `json:"profile_id"`
	CandidateName string   `json:"candidate_name,omitempty"`
	JobID         int64    `json:"job_id"`
	JobTitle      string   `json:"job_title,omitempty"`
	CompanyName   string   `json:"company_name,omitempty"`
	Skills        []string `json:"skills,omitempty"`
	Score         int      `json:"score"`
	Category      string   `json:"category"`
}

type Service struct {
	profiles ProfileStore
	jobs     JobStore
	logger   *zap.Logger
}

func NewService(profiles ProfileStore, jobs JobStore, logger *zap.Logger) *Service {
	return &Service{profiles: profiles, jobs: jobs, logger: logger}
}

func score(p *model.Profile, j *model.Job) Match {
	s := matching.CalculateMatchScore(p, j)
	metrics.ObserveMatchScore(s)
	return Match{
		ProfileID:     p.ID,
		CandidateName: p.FullName,
		JobID:         j.ID,
		JobTitle:      j.Title,
		CompanyName:   j.CompanyName,
		Score:         s,
		Category:      matching.GetMatchCategory(s),
	}
}

// ScoreJob scores one profile against one job.
func (s *Service) ScoreJob(ctx context.Context, profileID, jobID int64) (*Match, error) {
	p, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w", profileID, err)
	}
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %d: %w", jobID, err)
	}
	m := score(p, j)
	return &m, nil
}

// RankJobsForProfile scores active jobs for a candidate, best first.
func (s *Service) RankJobsForProfile(ctx context.Context, profileID int64, limit int) ([]Match, error) {
	p, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w", profileID, err)
	}
	jobs, err := s.jobs.ListActive(ctx, scanLimit)
	if err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(jobs))
	for _, j := range jobs {
		m := score(p, j)
		m.Skills = j.Skills
		out = append(out, m)
	}
	return top(out, limit, func(m Match) int64 { return m.JobID }), nil
}

// RankCandidatesForJob scores candidates for a job, best first.
func (s *Service) RankCandidatesForJob(ctx context.Context, jobID int64, limit int) ([]Match, error) {
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %d: %w", jobID, err)
	}
	profiles, err := s.profiles.ListForMatching(ctx, scanLimit)
	if err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(profiles))
	for _, p := range profiles {
		m := score(p, j)
		m.Skills = p.Skills
		out = append(out, m)
	}
	s.logger.Debug("ranked candidates", zap.Int64("job_id", jobID), zap.Int("scanned", len(profiles)))
	return top(out, limit, func(m Match) int64 { return m.ProfileID }), nil
}

// top sorts by score descending, then id ascending, and keeps limit rows.
func top(ms []Match, limit int, id func(Match) int64) []Match {
	slices.SortFunc(ms, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(id(a), id(b))
	})
	if limit > 0 && len(ms) > limit {
		ms = ms[:limit]
	}
	return ms
}
