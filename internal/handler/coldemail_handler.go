package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "jobpilot/contracts/mq"
	"jobpilot/internal/model"
	"jobpilot/internal/service/coldemail"
	"jobpilot/pkg/logger"
	"jobpilot/pkg/mq"
	"jobpilot/pkg/trace"
)

const maxBulkRecipients = 500

type ColdEmailService interface {
	SendColdEmail(ctx context.Context, req coldemail.SendRequest) (*coldemail.Result, error)
	SendBulkEmails(ctx context.Context, req coldemail.BulkRequest) (*coldemail.BulkResult, error)
	GetStats(ctx context.Context, profileID int64) (*coldemail.Stats, error)
	ListLogs(ctx context.Context, profileID int64, limit, offset int) ([]*model.ColdEmailLog, error)
	MarkOpened(ctx context.Context, profileID, logID int64) error
	MarkReplied(ctx context.Context, profileID, logID int64) error
}

// Publisher hands async bulk requests to the worker.
type Publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

type ColdEmailHandler struct {
	svc       ColdEmailService
	publisher Publisher
	logger    *zap.Logger
}

func NewColdEmailHandler(svc ColdEmailService, publisher Publisher, logger *zap.Logger) *ColdEmailHandler {
	return &ColdEmailHandler{svc: svc, publisher: publisher, logger: logger}
}

type sendRequest struct {
	RecipientEmail string `json:"recipient_email"`
	RecruiterName  string `json:"recruiter_name"`
	CompanyName    string `json:"company_name"`
	JobTitle       string `json:"job_title"`
	JobID          *int64 `json:"job_id"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	TemplateID     *int64 `json:"template_id"`
}

type bulkRequest struct {
	Recipients []coldemail.Recipient `json:"recipients"`
	Subject    string                `json:"subject"`
	Body       string                `json:"body"`
	TemplateID *int64                `json:"template_id"`
}

type logView struct {
	ID             int64                 `json:"id"`
	RecipientEmail string                `json:"recipient_email"`
	RecipientName  string                `json:"recipient_name,omitempty"`
	CompanyName    string                `json:"company_name,omitempty"`
	JobTitle       string                `json:"job_title,omitempty"`
	JobID          *int64                `json:"job_id,omitempty"`
	Subject        string                `json:"subject"`
	Status         model.ColdEmailStatus `json:"status"`
	Error          string                `json:"error,omitempty"`
	ResumeAttached bool                  `json:"resume_attached"`
	SentAt         time.Time             `json:"sent_at"`
	OpenedAt       *time.Time            `json:"opened_at,omitempty"`
	RepliedAt      *time.Time            `json:"replied_at,omitempty"`
}

func toLogView(l *model.ColdEmailLog) logView {
	return logView{
		ID:             l.ID,
		RecipientEmail: l.RecipientEmail,
		RecipientName:  l.RecipientName,
		CompanyName:    l.CompanyName,
		JobTitle:       l.JobTitle,
		JobID:          l.JobID,
		Subject:        l.Subject,
		Status:         l.Status,
		Error:          l.ErrorMessage,
		ResumeAttached: l.ResumeAttached,
		SentAt:         l.SentAt,
		OpenedAt:       l.OpenedAt,
		RepliedAt:      l.RepliedAt,
	}
}

// Send handles POST /api/cold-emails.
func (h *ColdEmailHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.svc.SendColdEmail(c.Request.Context(), coldemail.SendRequest{
		ProfileID: profileID(c),
		To: coldemail.Recipient{
			Email:         req.RecipientEmail,
			RecruiterName: req.RecruiterName,
			CompanyName:   req.CompanyName,
			JobTitle:      req.JobTitle,
			JobID:         req.JobID,
		},
		Content: coldemail.Content{Subject: req.Subject, Body: req.Body, TemplateID: req.TemplateID},
	})

	if errors.Is(err, coldemail.ErrTransportFailure) && res != nil {
		var de *coldemail.DispatchError
		errors.As(err, &de)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     de.Message,
			"code":      de.Kind,
			"detail":    res.Log.ErrorMessage,
			"log_id":    res.Log.ID,
			"remaining": res.Remaining,
		})
		return
	}
	if err != nil {
		h.logError(c, "Send", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"log_id":          res.Log.ID,
		"status":          res.Log.Status,
		"resume_attached": res.Log.ResumeAttached,
		"daily_limit":     res.DailyLimit,
		"remaining":       res.Remaining,
	})
}

// SendBulk handles POST /api/cold-emails/bulk. With ?async=true the batch
// is queued for the worker and 202 is returned immediately.
func (h *ColdEmailHandler) SendBulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Recipients) > maxBulkRecipients {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many recipients"})
		return
	}

	if strings.EqualFold(c.Query("async"), "true") {
		h.enqueueBulk(c, req)
		return
	}

	res, err := h.svc.SendBulkEmails(c.Request.Context(), coldemail.BulkRequest{
		ProfileID:  profileID(c),
		Recipients: req.Recipients,
		Content:    coldemail.Content{Subject: req.Subject, Body: req.Body, TemplateID: req.TemplateID},
	})
	if err != nil {
		h.logError(c, "SendBulk", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ColdEmailHandler) enqueueBulk(c *gin.Context, req bulkRequest) {
	if h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async sending unavailable"})
		return
	}
	if len(req.Recipients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one recipient is required"})
		return
	}

	ctx := c.Request.Context()
	payload := mqcontracts.ColdEmailBulkRequestedPayload{
		RequestID:  uuid.NewString(),
		ProfileID:  profileID(c),
		Subject:    req.Subject,
		Body:       req.Body,
		TemplateID: req.TemplateID,
		TraceID:    trace.FromContext(ctx),
		CreatedAt:  time.Now(),
	}
	for _, r := range req.Recipients {
		payload.Recipients = append(payload.Recipients, mqcontracts.BulkRecipient{
			Email:         r.Email,
			RecruiterName: r.RecruiterName,
			CompanyName:   r.CompanyName,
			JobTitle:      r.JobTitle,
			JobID:         r.JobID,
		})
	}

	if err := h.publisher.PublishWithContext(ctx, mq.RoutingColdEmailBulkRequested, payload); err != nil {
		h.logError(c, "SendBulk", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to queue bulk request"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"request_id": payload.RequestID, "status": model.ColdEmailQueued})
}

// Stats handles GET /api/cold-emails/stats.
func (h *ColdEmailHandler) Stats(c *gin.Context) {
	st, err := h.svc.GetStats(c.Request.Context(), profileID(c))
	if err != nil {
		h.logError(c, "Stats", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ListLogs handles GET /api/cold-emails?limit=&offset=.
func (h *ColdEmailHandler) ListLogs(c *gin.Context) {
	logs, err := h.svc.ListLogs(c.Request.Context(), profileID(c), queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		h.logError(c, "ListLogs", err)
		writeError(c, err)
		return
	}
	views := make([]logView, 0, len(logs))
	for _, l := range logs {
		views = append(views, toLogView(l))
	}
	c.JSON(http.StatusOK, gin.H{"logs": views})
}

// MarkOpened handles POST /api/cold-emails/:id/opened.
func (h *ColdEmailHandler) MarkOpened(c *gin.Context) {
	h.mark(c, h.svc.MarkOpened)
}

// MarkReplied handles POST /api/cold-emails/:id/replied.
func (h *ColdEmailHandler) MarkReplied(c *gin.Context) {
	h.mark(c, h.svc.MarkReplied)
}

func (h *ColdEmailHandler) mark(c *gin.Context, fn func(ctx context.Context, profileID, logID int64) error) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), profileID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *ColdEmailHandler) logError(c *gin.Context, op string, err error) {
	log := logger.WithTrace(c.Request.Context(), h.logger).With(
		zap.String("op", op),
		zap.Int64("profile_id", profileID(c)),
	)
	var de *coldemail.DispatchError
	if errors.As(err, &de) {
		log.Info("request refused", zap.String("code", string(de.Kind)))
		return
	}
	log.Error("request failed", zap.Error(err))
}
