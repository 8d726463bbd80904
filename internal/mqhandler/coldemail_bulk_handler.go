package mqhandler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	mqcontracts "jobpilot/contracts/mq"
	"jobpilot/internal/service/coldemail"
	"jobpilot/pkg/logger"
)

const bulkHandlerName = "coldemail_bulk"

type BulkSender interface {
	SendBulkEmails(ctx context.Context, req coldemail.BulkRequest) (*coldemail.BulkResult, error)
}

// Deduper guards against processing a redelivered request twice.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler, key string) bool
	Release(ctx context.Context, handler, key string)
}

type ColdEmailBulkHandler struct {
	sender BulkSender
	dedup  Deduper
	logger *zap.Logger
}

func NewColdEmailBulkHandler(sender BulkSender, dedup Deduper, logger *zap.Logger) *ColdEmailBulkHandler {
	return &ColdEmailBulkHandler{
		sender: sender,
		dedup:  dedup,
		logger: logger,
	}
}

// Handle runs one coldemail.bulk.requested message. Sends are never
// retried: once any recipient was attempted the message is acked whatever
// happens next.
func (h *ColdEmailBulkHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.ColdEmailBulkRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal ColdEmailBulkRequestedPayload", zap.Error(err))
		return err
	}

	log := logger.WithTrace(ctx, h.logger).With(
		zap.String("request_id", p.RequestID),
		zap.Int64("profile_id", p.ProfileID),
	)
	log.Info("Handling coldemail.bulk.requested event", zap.Int("recipient_count", len(p.Recipients)))

	if p.RequestID != "" && !h.dedup.AcquireOnce(ctx, bulkHandlerName, p.RequestID) {
		log.Info("Duplicate bulk request, skipping")
		return nil
	}

	req := coldemail.BulkRequest{
		ProfileID: p.ProfileID,
		Content: coldemail.Content{
			Subject:    p.Subject,
			Body:       p.Body,
			TemplateID: p.TemplateID,
		},
	}
	for _, r := range p.Recipients {
		req.Recipients = append(req.Recipients, coldemail.Recipient{
			Email:         r.Email,
			RecruiterName: r.RecruiterName,
			CompanyName:   r.CompanyName,
			JobTitle:      r.JobTitle,
			JobID:         r.JobID,
		})
	}

	res, err := h.sender.SendBulkEmails(ctx, req)
	if err != nil {
		var de *coldemail.DispatchError
		if errors.As(err, &de) {
			// 前置条件不满足，重试也没用
			log.Warn("Bulk request rejected", zap.String("reason", string(de.Kind)), zap.String("message", de.Message))
			return nil
		}
		// 还没有发出任何邮件，允许重投
		if p.RequestID != "" {
			h.dedup.Release(ctx, bulkHandlerName, p.RequestID)
		}
		log.Error("Bulk request failed before sending", zap.Error(err))
		return err
	}

	log.Info("Bulk request processed",
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
		zap.Int("remaining", res.Remaining),
	)
	return nil
}
