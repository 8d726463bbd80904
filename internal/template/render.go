// Package template fills {{token}} placeholders in cold email subjects and
// bodies. Replacement is literal: substituted values are never re-scanned.
package template

import "strings"

const (
	TokenRecruiterName     = "recruiter_name"
	TokenJobRole           = "job_role"
	TokenCompanyName       = "company_name"
	TokenSkills            = "skills"
	TokenExperienceSummary = "experience_summary"
	TokenUserName          = "user_name"
)

// Tokens is the full placeholder vocabulary.
var Tokens = []string{
	TokenRecruiterName,
	TokenJobRole,
	TokenCompanyName,
	TokenSkills,
	TokenExperienceSummary,
	TokenUserName,
}

// Vars carries the values for one recipient.
type Vars struct {
	RecruiterName     string
	JobRole           string
	CompanyName       string
	Skills            []string
	ExperienceSummary string
	UserName          string
}

func (v Vars) values() map[string]string {
	return map[string]string{
		TokenRecruiterName:     v.RecruiterName,
		TokenJobRole:           v.JobRole,
		TokenCompanyName:       v.CompanyName,
		TokenSkills:            strings.Join(v.Skills, ", "),
		TokenExperienceSummary: v.ExperienceSummary,
		TokenUserName:          v.UserName,
	}
}

// Render replaces every known {{token}} in text. Unknown tokens stay as-is,
// known tokens without a value become "".
func Render(text string, v Vars) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	values := v.values()
	pairs := make([]string, 0, len(Tokens)*2)
	for _, tok := range Tokens {
		pairs = append(pairs, "{{"+tok+"}}", values[tok])
	}
	// Replacer works in a single pass, so a value like "{{skills}}" coming
	// from user input is emitted verbatim.
	return strings.NewReplacer(pairs...).Replace(text)
}

// RenderPair renders subject and body with the same vars.
func RenderPair(subject, body string, v Vars) (string, string) {
	return Render(subject, v), Render(body, v)
}
