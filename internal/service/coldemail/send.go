package coldemail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"jobpilot/internal/clock"
	"jobpilot/internal/mailer"
	"jobpilot/internal/model"
	"jobpilot/pkg/logger"
	"jobpilot/pkg/metrics"
	"jobpilot/pkg/util"
)

const (
	modeSingle = "single"
	modeBulk   = "bulk"
)

type SendRequest struct {
	ProfileID int64
	To        Recipient
	Content   Content
}

type Result struct {
	Log        *model.ColdEmailLog
	DailyLimit int
	Remaining  int
}

// SendColdEmail checks recipient, credentials, subscription and quota (in
// that order), then sends. A unit of quota is reserved before the transport
// call and given back if the transport fails.
//
// On transport failure both a Result (carrying the "failed" log row) and a
// *DispatchError of KindTransportFailure are returned.
func (s *Service) SendColdEmail(ctx context.Context, req SendRequest) (*Result, error) {
	req.To.Email = strings.TrimSpace(req.To.Email)
	if req.To.Email == "" {
		return nil, s.reject(ctx, req.ProfileID, invalidRequest("recipient email is required"))
	}

	now := s.clock.Now()
	profile, limit, err := s.checkSender(ctx, req.ProfileID, now)
	if err != nil {
		return nil, s.reject(ctx, req.ProfileID, err)
	}

	today := clock.StartOfDay(now)
	count, ok, err := s.Quota.Reserve(ctx, profile.ID, today, limit)
	if err != nil {
		return nil, fmt.Errorf("reserve quota: %w", err)
	}
	if !ok {
		return nil, s.reject(ctx, profile.ID, quotaExceeded(limit))
	}

	tmpl := s.pickTemplate(ctx, profile, req.Content)
	attachment := s.loadAttachment(ctx, profile)

	entry, sent, err := s.attempt(ctx, profile, req.To, tmpl, req.Content, attachment, today, modeSingle)
	if !sent {
		count--
	}
	if entry == nil {
		return nil, err
	}
	return &Result{Log: entry, DailyLimit: limit, Remaining: max(0, limit-count)}, err
}

// attempt sends to one recipient whose quota unit is already reserved and
// persists the outcome. sent reports whether the unit stays consumed.
func (s *Service) attempt(
	ctx context.Context,
	profile *model.Profile,
	to Recipient,
	tmpl *model.EmailTemplate,
	c Content,
	attachment *mailer.Attachment,
	today time.Time,
	mode string,
) (*model.ColdEmailLog, bool, error) {
	log := logger.WithTrace(ctx, s.logger).With(
		zap.Int64("profile_id", profile.ID),
		zap.String("recipient", to.Email),
	)

	subject, body := compose(profile, tmpl, c, to)
	msg := &mailer.Message{
		FromName:   profile.FullName,
		To:         to.Email,
		ToName:     to.RecruiterName,
		Subject:    subject,
		Body:       body,
		Attachment: attachment,
	}
	creds := mailer.Credentials{User: profile.EmailUser, Secret: profile.EmailSecret}

	messageID, sendErr := s.transport.Send(ctx, creds, msg)

	entry := &model.ColdEmailLog{
		ProfileID:      profile.ID,
		RecipientEmail: to.Email,
		RecipientName:  to.RecruiterName,
		CompanyName:    to.CompanyName,
		JobTitle:       to.JobTitle,
		JobID:          to.JobID,
		Subject:        subject,
		Body:           body,
		ResumeAttached: attachment != nil,
		MessageID:      messageID,
		SentAt:         s.clock.Now(),
	}
	if tmpl != nil {
		id := tmpl.ID
		entry.TemplateID = &id
	}

	if sendErr != nil {
		entry.Status = model.ColdEmailFailed
		entry.ErrorMessage = sendErr.Error()
		entry.ErrorType = util.ClassifySendError(sendErr)
		metrics.IncrementColdEmail(string(model.ColdEmailFailed), mode)

		if err := s.Outcomes.RecordFailed(ctx, entry, today); err != nil {
			log.Error("failed to record failed cold email", zap.Error(err))
			if relErr := s.Quota.Release(ctx, profile.ID, today); relErr != nil {
				log.Error("failed to release quota", zap.Error(relErr))
			}
			return nil, false, fmt.Errorf("record failed send: %w", err)
		}
		log.Warn("cold email failed",
			zap.Int64("log_id", entry.ID),
			zap.String("error_type", entry.ErrorType),
			zap.Error(sendErr),
		)
		return entry, false, transportFailure(sendErr)
	}

	entry.Status = model.ColdEmailSent
	metrics.IncrementColdEmail(string(model.ColdEmailSent), mode)
	if err := s.Outcomes.RecordSent(ctx, entry); err != nil {
		// 邮件已经发出，额度保持占用
		log.Error("cold email sent but not recorded", zap.String("message_id", messageID), zap.Error(err))
		return nil, true, fmt.Errorf("record sent email: %w", err)
	}
	log.Info("cold email sent",
		zap.Int64("log_id", entry.ID),
		zap.Bool("resume_attached", entry.ResumeAttached),
	)
	return entry, true, nil
}
