package coldemail

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"jobpilot/internal/mailer"
	"jobpilot/internal/model"
	"jobpilot/internal/resume"
	"jobpilot/internal/template"
	"jobpilot/pkg/logger"
)

const (
	FallbackSubject = "Job Application"
	FallbackBody    = "Dear Hiring Manager,\n\n" +
		"I am writing to express my interest in opportunities at your company. " +
		"Please find my resume attached for your consideration.\n\n" +
		"Thank you for your time.\n\nBest regards"
)

type Recipient struct {
	Email         string `json:"email"`
	RecruiterName string `json:"recruiter_name,omitempty"`
	CompanyName   string `json:"company_name,omitempty"`
	JobTitle      string `json:"job_title,omitempty"`
	JobID         *int64 `json:"job_id,omitempty"`
}

// Content is what the caller asked to send. A template, when resolved,
// replaces Subject and Body.
type Content struct {
	Subject    string `json:"subject,omitempty"`
	Body       string `json:"body,omitempty"`
	TemplateID *int64 `json:"template_id,omitempty"`
}

func (c Content) empty() bool {
	return strings.TrimSpace(c.Subject) == "" && strings.TrimSpace(c.Body) == ""
}

// pickTemplate resolves in order: the explicit template if the sender owns
// it, caller text, the sender's default template. nil means use caller
// text (or the fallback). Lookup errors are never fatal.
func (s *Service) pickTemplate(ctx context.Context, profile *model.Profile, c Content) *model.EmailTemplate {
	log := logger.WithTrace(ctx, s.logger)

	if c.TemplateID != nil {
		t, err := s.Templates.Get(ctx, *c.TemplateID)
		switch {
		case err == nil && t.ProfileID == profile.ID:
			return t
		case err == nil, errors.Is(err, model.ErrNotFound):
			log.Info("template not found, using request content",
				zap.Int64("profile_id", profile.ID),
				zap.Int64("template_id", *c.TemplateID),
			)
		default:
			log.Warn("template lookup failed, using request content",
				zap.Int64("template_id", *c.TemplateID),
				zap.Error(err),
			)
		}
	}

	if !c.empty() {
		return nil
	}

	t, err := s.Templates.GetDefault(ctx, profile.ID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			log.Warn("default template lookup failed", zap.Int64("profile_id", profile.ID), zap.Error(err))
		}
		return nil
	}
	return t
}

// compose renders subject and body for one recipient.
func compose(profile *model.Profile, tmpl *model.EmailTemplate, c Content, r Recipient) (string, string) {
	var subject, body string
	if tmpl != nil {
		subject, body = template.RenderPair(tmpl.Subject, tmpl.Body, template.Vars{
			RecruiterName:     r.RecruiterName,
			JobRole:           r.JobTitle,
			CompanyName:       r.CompanyName,
			Skills:            profile.Skills,
			ExperienceSummary: profile.Experience,
			UserName:          profile.FullName,
		})
	} else {
		subject, body = c.Subject, c.Body
	}

	if strings.TrimSpace(subject) == "" {
		subject = FallbackSubject
	}
	if strings.TrimSpace(body) == "" {
		body = FallbackBody
	}
	return subject, body
}

// loadAttachment fetches the sender's resume. Any failure means no
// attachment, never a failed send.
func (s *Service) loadAttachment(ctx context.Context, profile *model.Profile) *mailer.Attachment {
	if s.resumes == nil || !profile.HasResume() {
		return nil
	}
	f, err := s.resumes.Fetch(ctx, profile.ResumeKey)
	if err != nil {
		log := logger.WithTrace(ctx, s.logger).With(zap.Int64("profile_id", profile.ID))
		if errors.Is(err, resume.ErrMissing) {
			log.Info("resume file missing, sending without attachment")
		} else {
			log.Warn("resume fetch failed, sending without attachment", zap.Error(err))
		}
		return nil
	}
	return &mailer.Attachment{Name: f.Name, ContentType: f.ContentType, Data: f.Data}
}
