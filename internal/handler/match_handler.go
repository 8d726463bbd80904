package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"jobpilot/internal/model"
	"jobpilot/internal/service/match"
	"jobpilot/pkg/rbac"
)

type MatchService interface {
	ScoreJob(ctx context.Context, profileID, jobID int64) (*match.Match, error)
	RankJobsForProfile(ctx context.Context, profileID int64, limit int) ([]match.Match, error)
	RankCandidatesForJob(ctx context.Context, jobID int64, limit int) ([]match.Match, error)
}

type JobReader interface {
	GetByID(ctx context.Context, id int64) (*model.Job, error)
}

type MatchHandler struct {
	svc    MatchService
	jobs   JobReader
	logger *zap.Logger
}

func NewMatchHandler(svc MatchService, jobs JobReader, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{svc: svc, jobs: jobs, logger: logger}
}

// Jobs handles GET /api/matches/jobs?limit=.
func (h *MatchHandler) Jobs(c *gin.Context) {
	ms, err := h.svc.RankJobsForProfile(c.Request.Context(), profileID(c), queryInt(c, "limit", 20))
	if err != nil {
		h.logger.Error("RankJobsForProfile failed", zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": ms})
}

// Job handles GET /api/matches/jobs/:id.
func (h *MatchHandler) Job(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	m, err := h.svc.ScoreJob(c.Request.Context(), profileID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Candidates handles GET /api/jobs/:id/candidates?limit=. Recruiters only
// see candidates for their own postings.
func (h *MatchHandler) Candidates(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	job, err := h.jobs.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if c.GetString(CtxRole) != rbac.RoleAdmin && job.RecruiterID != c.GetInt64(CtxUserID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	ms, err := h.svc.RankCandidatesForJob(c.Request.Context(), id, queryInt(c, "limit", 20))
	if err != nil {
		h.logger.Error("RankCandidatesForJob failed", zap.Int64("job_id", id), zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": id, "matches": ms})
}
