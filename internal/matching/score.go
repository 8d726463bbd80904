// Package matching scores how well a candidate fits a job posting.
// Everything here is pure: no I/O, no state.
package matching

import (
	"math"
	"strings"

	"jobpilot/internal/model"
)

const (
	// NeutralScore is returned for jobs that list no required skills.
	NeutralScore = 50

	experienceBonus = 10
	exactWeight     = 1.0
	partialWeight   = 0.5
)

// levelKeywords maps a job level to the phrases that indicate it in a
// free-text experience description.
var levelKeywords = map[model.ExperienceLevel][]string{
	model.LevelEntry:  {"fresher", "junior", "entry", "graduate", "intern", "0-1", "1-2"},
	model.LevelMid:    {"mid", "2-4", "3-5", "4-6", "intermediate"},
	model.LevelSenior: {"senior", "5+", "6+", "7+", "experienced", "lead"},
	model.LevelLead:   {"lead", "principal", "architect", "manager", "director", "8+", "10+"},
}

// Input is the subset of profile and job fields the score depends on.
type Input struct {
	CandidateSkills []string
	Experience      string
	RequiredSkills  []string
	JobLevel        model.ExperienceLevel
}

// InputFor builds an Input from stored records.
func InputFor(p *model.Profile, j *model.Job) Input {
	var in Input
	if p != nil {
		in.CandidateSkills = p.Skills
		in.Experience = p.Experience
	}
	if j != nil {
		in.RequiredSkills = j.Skills
		in.JobLevel = j.ExperienceLevel
	}
	return in
}

// CalculateMatchScore returns a compatibility score in [0,100].
func CalculateMatchScore(p *model.Profile, j *model.Job) int {
	return Score(InputFor(p, j))
}

// Score is CalculateMatchScore over plain values.
func Score(in Input) int {
	required := normalize(in.RequiredSkills)
	if len(required) == 0 {
		return NeutralScore
	}
	candidate := normalize(in.CandidateSkills)

	matched := 0.0
	for _, req := range required {
		matched += skillWeight(req, candidate)
	}
	score := matched / float64(len(required)) * 100

	if hasLevelKeyword(in.Experience, in.JobLevel) {
		score += experienceBonus
	}

	final := int(math.Round(score))
	if final > 100 {
		return 100
	}
	if final < 0 {
		return 0
	}
	return final
}

// skillWeight: exact match anywhere wins over a substring match anywhere,
// so the result does not depend on the order of candidate skills.
func skillWeight(req string, candidate []string) float64 {
	for _, c := range candidate {
		if c == req {
			return exactWeight
		}
	}
	for _, c := range candidate {
		if strings.Contains(c, req) || strings.Contains(req, c) {
			return partialWeight
		}
	}
	return 0
}

func hasLevelKeyword(experience string, level model.ExperienceLevel) bool {
	exp := strings.ToLower(strings.TrimSpace(experience))
	if exp == "" || level == "" {
		return false
	}
	for _, kw := range levelKeywords[level] {
		if strings.Contains(exp, kw) {
			return true
		}
	}
	return false
}

// normalize trims and lowercases; blank entries are dropped since an empty
// string would substring-match everything.
func normalize(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
