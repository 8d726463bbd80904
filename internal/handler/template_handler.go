package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"jobpilot/internal/model"
	"jobpilot/internal/service/templates"
	tmpl "jobpilot/internal/template"
)

type TemplateService interface {
	Create(ctx context.Context, t *model.EmailTemplate) error
	SetDefault(ctx context.Context, profileID, templateID int64) error
	List(ctx context.Context, profileID int64) ([]*model.EmailTemplate, error)
}

type TemplateHandler struct {
	svc    TemplateService
	logger *zap.Logger
}

func NewTemplateHandler(svc TemplateService, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{svc: svc, logger: logger}
}

type templateView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	IsDefault bool   `json:"is_default"`
}

func toTemplateView(t *model.EmailTemplate) templateView {
	return templateView{ID: t.ID, Name: t.Name, Subject: t.Subject, Body: t.Body, IsDefault: t.IsDefault}
}

// List handles GET /api/templates. Placeholders lists the tokens a
// template may use.
func (h *TemplateHandler) List(c *gin.Context) {
	ts, err := h.svc.List(c.Request.Context(), profileID(c))
	if err != nil {
		h.logger.Error("List templates failed", zap.Error(err))
		writeError(c, err)
		return
	}
	views := make([]templateView, 0, len(ts))
	for _, t := range ts {
		views = append(views, toTemplateView(t))
	}
	c.JSON(http.StatusOK, gin.H{"templates": views, "placeholders": tmpl.Tokens})
}

// Create handles POST /api/templates.
func (h *TemplateHandler) Create(c *gin.Context) {
	var req templateView
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	t := &model.EmailTemplate{
		ProfileID: profileID(c),
		Name:      req.Name,
		Subject:   req.Subject,
		Body:      req.Body,
		IsDefault: req.IsDefault,
	}
	if err := h.svc.Create(c.Request.Context(), t); err != nil {
		if errors.Is(err, templates.ErrInvalidTemplate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Create template failed", zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTemplateView(t))
}

// SetDefault handles POST /api/templates/:id/default.
func (h *TemplateHandler) SetDefault(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.SetDefault(c.Request.Context(), profileID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
