package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"jobpilot/internal/handler"
	"jobpilot/pkg/rbac"
)

type Handlers struct {
	ColdEmail *handler.ColdEmailHandler
	Templates *handler.TemplateHandler
	Match     *handler.MatchHandler
	Profile   *handler.ProfileHandler
	Admin     *handler.AdminHandler
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	JWTSecret string
	Profiles  ProfileResolver
	Readiness map[string]ReadinessCheck
}

func NewRouter(h Handlers, opts Options, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), RequestLogger(logger), MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", readyHandler(opts.Readiness))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", AuthMiddleware(opts.JWTSecret))

	// 求职者接口：需要 profile
	me := api.Group("", RequireProfile(opts.Profiles, logger))
	me.POST("/cold-emails", RequirePermission(rbac.PermissionSendColdEmail), h.ColdEmail.Send)
	me.POST("/cold-emails/bulk", RequirePermission(rbac.PermissionBulkColdEmail), h.ColdEmail.SendBulk)
	me.GET("/cold-emails", RequirePermission(rbac.PermissionSendColdEmail), h.ColdEmail.ListLogs)
	me.GET("/cold-emails/stats", RequirePermission(rbac.PermissionReadQuota), h.ColdEmail.Stats)
	me.POST("/cold-emails/:id/opened", RequirePermission(rbac.PermissionSendColdEmail), h.ColdEmail.MarkOpened)
	me.POST("/cold-emails/:id/replied", RequirePermission(rbac.PermissionSendColdEmail), h.ColdEmail.MarkReplied)

	me.GET("/templates", RequirePermission(rbac.PermissionManageTemplate), h.Templates.List)
	me.POST("/templates", RequirePermission(rbac.PermissionManageTemplate), h.Templates.Create)
	me.POST("/templates/:id/default", RequirePermission(rbac.PermissionManageTemplate), h.Templates.SetDefault)

	me.PUT("/profile/email-credentials", RequirePermission(rbac.PermissionSendColdEmail), h.Profile.SetEmailCredentials)

	me.GET("/matches/jobs", RequirePermission(rbac.PermissionMatchJobs), h.Match.Jobs)
	me.GET("/matches/jobs/:id", RequirePermission(rbac.PermissionMatchJobs), h.Match.Job)

	// 招聘方接口
	api.GET("/jobs/:id/candidates", RequirePermission(rbac.PermissionMatchCandidates), h.Match.Candidates)

	// 管理接口
	admin := api.Group("/admin", RequirePermission(rbac.PermissionReplayOutbox))
	admin.GET("/outbox/failed", h.Admin.FailedEvents)
	admin.POST("/outbox/:id/replay", h.Admin.ReplayEvent)
	admin.POST("/outbox/replay-failed", h.Admin.ReplayFailed)

	return r
}

func readyHandler(checks map[string]ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
