package coldemail

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"jobpilot/internal/clock"
	"jobpilot/pkg/logger"
	"jobpilot/pkg/metrics"
)

type BulkRequest struct {
	ProfileID  int64
	Recipients []Recipient
	Content    Content
}

type BulkResult struct {
	Requested int      `json:"requested"`
	Sent      int      `json:"sent"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
	LogIDs    []int64  `json:"log_ids,omitempty"`
	Remaining int      `json:"remaining"`
}

// SendBulkEmails sends the same content to many recipients, one at a time.
// Sender preconditions run once. Recipients beyond today's remaining quota
// are reported as skipped and never attempted or logged. Each attempt still
// reserves its own unit, so concurrent single sends cannot push the day
// over the limit.
func (s *Service) SendBulkEmails(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	if len(req.Recipients) == 0 {
		return nil, s.reject(ctx, req.ProfileID, invalidRequest("at least one recipient is required"))
	}

	now := s.clock.Now()
	profile, limit, err := s.checkSender(ctx, req.ProfileID, now)
	if err != nil {
		return nil, s.reject(ctx, req.ProfileID, err)
	}

	today := clock.StartOfDay(now)
	used, err := s.Quota.Rollover(ctx, profile.ID, today)
	if err != nil {
		return nil, fmt.Errorf("rollover quota: %w", err)
	}
	remaining := limit - used
	if remaining <= 0 {
		return nil, s.reject(ctx, profile.ID, quotaExceeded(limit))
	}

	batch := req.Recipients
	res := &BulkResult{Requested: len(batch)}
	if len(batch) > remaining {
		res.Skipped = len(batch) - remaining
		batch = batch[:remaining]
	}

	log := logger.WithTrace(ctx, s.logger).With(zap.Int64("profile_id", profile.ID))
	tmpl := s.pickTemplate(ctx, profile, req.Content)
	attachment := s.loadAttachment(ctx, profile)

	for i, r := range batch {
		left := len(batch) - i
		if used >= limit {
			res.Skipped += left
			break
		}
		if ctx.Err() != nil {
			res.Skipped += left
			res.Errors = append(res.Errors, fmt.Sprintf("batch interrupted: %v", ctx.Err()))
			break
		}

		r.Email = strings.TrimSpace(r.Email)
		if r.Email == "" {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("recipient %d: email is required", i+1))
			continue
		}

		count, ok, err := s.Quota.Reserve(ctx, profile.ID, today, limit)
		if err != nil {
			log.Error("quota reservation failed mid-batch", zap.Error(err))
			res.Skipped += left
			res.Errors = append(res.Errors, fmt.Sprintf("quota reservation failed: %v", err))
			break
		}
		if !ok {
			// 其他请求并发占用了剩余额度
			used = limit
			res.Skipped += left
			break
		}
		used = count

		entry, sent, err := s.attempt(ctx, profile, r, tmpl, req.Content, attachment, today, modeBulk)
		if !sent {
			used--
		}
		if entry != nil {
			res.LogIDs = append(res.LogIDs, entry.ID)
		}
		if err != nil {
			if sent {
				res.Sent++
			} else {
				res.Failed++
			}
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", r.Email, err))
			continue
		}
		res.Sent++
	}

	res.Remaining = max(0, limit-used)
	metrics.RecordBulkBatch(res.Requested, res.Sent+res.Failed, res.Skipped)
	log.Info("bulk cold email finished",
		zap.Int("requested", res.Requested),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
		zap.Int("remaining", res.Remaining),
	)
	return res, nil
}
