package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"jobpilot/pkg/outbox"
)

type OutboxReader interface {
	GetFailedEvents(ctx context.Context, limit int) ([]*outbox.Event, error)
}

type OutboxReplayer interface {
	ReplayEvent(ctx context.Context, eventID int64) error
	ReplayFailedEvents(ctx context.Context, limit int) (int, error)
}

type AdminHandler struct {
	events OutboxReader
	replay OutboxReplayer
	logger *zap.Logger
}

func NewAdminHandler(events OutboxReader, replay OutboxReplayer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{events: events, replay: replay, logger: logger}
}

type eventView struct {
	ID          int64      `json:"id"`
	RoutingKey  string     `json:"routing_key"`
	AggregateID *int64     `json:"aggregate_id,omitempty"`
	RetryCount  int        `json:"retry_count"`
	CreatedAt   time.Time  `json:"created_at"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
}

// FailedEvents handles GET /api/admin/outbox/failed?limit=.
func (h *AdminHandler) FailedEvents(c *gin.Context) {
	events, err := h.events.GetFailedEvents(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		h.logger.Error("GetFailedEvents failed", zap.Error(err))
		writeError(c, err)
		return
	}
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{
			ID:          e.ID,
			RoutingKey:  e.RoutingKey,
			AggregateID: e.AggregateID,
			RetryCount:  e.RetryCount,
			CreatedAt:   e.CreatedAt,
			NextRetryAt: e.NextRetryAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": views})
}

// ReplayEvent handles POST /api/admin/outbox/:id/replay.
func (h *AdminHandler) ReplayEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.replay.ReplayEvent(c.Request.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		h.logger.Error("ReplayEvent failed", zap.Int64("event_id", id), zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pending"})
}

// ReplayFailed handles POST /api/admin/outbox/replay-failed?limit=.
func (h *AdminHandler) ReplayFailed(c *gin.Context) {
	n, err := h.replay.ReplayFailedEvents(c.Request.Context(), queryInt(c, "limit", 100))
	if err != nil {
		h.logger.Error("ReplayFailedEvents failed", zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replayed": n})
}
