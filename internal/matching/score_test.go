package matching

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"jobpilot/internal/model"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want int
	}{
		{
			name: "no required skills is neutral",
			in:   Input{CandidateSkills: []string{"go", "sql"}},
			want: 50,
		},
		{
			name: "no required skills ignores experience",
			in:   Input{Experience: "senior engineer", JobLevel: model.LevelSenior},
			want: 50,
		},
		{
			name: "blank required skills count as none",
			in:   Input{RequiredSkills: []string{" ", ""}},
			want: 50,
		},
		{
			name: "all exact",
			in: Input{
				CandidateSkills: []string{"Go", "PostgreSQL", "Redis"},
				RequiredSkills:  []string{"go", "postgresql"},
			},
			want: 100,
		},
		{
			name: "case and whitespace ignored",
			in: Input{
				CandidateSkills: []string{"  GoLang "},
				RequiredSkills:  []string{"golang"},
			},
			want: 100,
		},
		{
			name: "partial counts half",
			in: Input{
				CandidateSkills: []string{"react native"},
				RequiredSkills:  []string{"react", "python"},
			},
			want: 25,
		},
		{
			name: "exact preferred over partial",
			in: Input{
				CandidateSkills: []string{"javascript", "java"},
				RequiredSkills:  []string{"java"},
			},
			want: 100,
		},
		{
			name: "short skill substring matches",
			in: Input{
				CandidateSkills: []string{"c++"},
				RequiredSkills:  []string{"c"},
			},
			want: 50,
		},
		{
			name: "no candidate skills",
			in:   Input{RequiredSkills: []string{"go", "rust"}},
			want: 0,
		},
		{
			name: "experience bonus",
			in: Input{
				CandidateSkills: []string{"go"},
				RequiredSkills:  []string{"go", "kubernetes"},
				Experience:      "Senior backend developer, 6+ years",
				JobLevel:        model.LevelSenior,
			},
			want: 60,
		},
		{
			name: "bonus capped at 100",
			in: Input{
				CandidateSkills: []string{"go"},
				RequiredSkills:  []string{"go"},
				Experience:      "Principal engineer",
				JobLevel:        model.LevelLead,
			},
			want: 100,
		},
		{
			name: "no bonus for other level",
			in: Input{
				CandidateSkills: []string{"go"},
				RequiredSkills:  []string{"go", "aws"},
				Experience:      "fresher",
				JobLevel:        model.LevelSenior,
			},
			want: 50,
		},
		{
			name: "unknown level gives no bonus",
			in: Input{
				CandidateSkills: []string{"go"},
				RequiredSkills:  []string{"go", "aws"},
				Experience:      "senior",
				JobLevel:        model.ExperienceLevel("staff"),
			},
			want: 50,
		},
		{
			name: "rounds to nearest",
			in: Input{
				CandidateSkills: []string{"go"},
				RequiredSkills:  []string{"go", "aws", "gcp"},
			},
			want: 33,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.in))
		})
	}
}

func TestScorePermutationInvariant(t *testing.T) {
	candidate := []string{"Go", "docker", "react native", "SQL", "c++"}
	required := []string{"react", "go", "Kubernetes", "c", "sql server"}
	base := Score(Input{CandidateSkills: candidate, RequiredSkills: required})

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		c := append([]string(nil), candidate...)
		q := append([]string(nil), required...)
		r.Shuffle(len(c), func(a, b int) { c[a], c[b] = c[b], c[a] })
		r.Shuffle(len(q), func(a, b int) { q[a], q[b] = q[b], q[a] })
		got := Score(Input{CandidateSkills: c, RequiredSkills: q})
		assert.Equal(t, base, got)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 100)
	}
}

func TestCalculateMatchScoreNilSafe(t *testing.T) {
	assert.Equal(t, 50, CalculateMatchScore(nil, nil))
	assert.Equal(t, 0, CalculateMatchScore(nil, &model.Job{Skills: []string{"go"}}))
}

func TestGetMatchCategory(t *testing.T) {
	cases := map[int]string{
		100: CategoryExcellent,
		80:  CategoryExcellent,
		79:  CategoryGood,
		60:  CategoryGood,
		59:  CategoryModerate,
		40:  CategoryModerate,
		39:  CategoryLow,
		20:  CategoryLow,
		19:  CategoryPoor,
		0:   CategoryPoor,
	}
	for score, want := range cases {
		assert.Equal(t, want, GetMatchCategory(score), "score %d", score)
	}
}
