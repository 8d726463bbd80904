package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jobpilot/internal/model"
	"jobpilot/internal/service/coldemail"
)

// gin context keys set by the httpserver middleware
const (
	CtxUserID    = "user_id"
	CtxRole      = "role"
	CtxProfileID = "profile_id"
)

func profileID(c *gin.Context) int64 {
	return c.GetInt64(CtxProfileID)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil {
		return v
	}
	return def
}

// dispatchStatus maps a dispatch error kind to an HTTP status.
func dispatchStatus(kind coldemail.Kind) int {
	switch kind {
	case coldemail.KindInvalidRequest:
		return http.StatusBadRequest
	case coldemail.KindCredentialsMissing:
		return http.StatusPreconditionFailed
	case coldemail.KindSubscriptionRequired:
		return http.StatusPaymentRequired
	case coldemail.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case coldemail.KindTransportFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError renders err as JSON. Unknown errors become a bare 500 so
// internals never leak to the client.
func writeError(c *gin.Context, err error) {
	var de *coldemail.DispatchError
	if errors.As(err, &de) {
		c.JSON(dispatchStatus(de.Kind), gin.H{
			"error":            de.Message,
			"code":             de.Kind,
			"upgrade_required": de.UpgradeRequired,
			"quota_exceeded":   de.QuotaExhausted,
			"limit":            de.Limit,
		})
		return
	}
	if errors.Is(err, model.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
