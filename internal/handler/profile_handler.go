package handler

import (
	"context"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CredentialStore interface {
	SetEmailCredentials(ctx context.Context, profileID int64, user, sealedSecret string) error
}

type Sealer interface {
	Seal(plaintext string) (string, error)
}

type ProfileHandler struct {
	store  CredentialStore
	box    Sealer
	logger *zap.Logger
}

func NewProfileHandler(store CredentialStore, box Sealer, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, box: box, logger: logger}
}

type credentialsRequest struct {
	EmailUser   string `json:"email_user"`
	AppPassword string `json:"app_password"`
}

// SetEmailCredentials handles PUT /api/profile/email-credentials. The
// password is sealed before it reaches storage and is never echoed back.
func (h *ProfileHandler) SetEmailCredentials(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.EmailUser = strings.TrimSpace(req.EmailUser)
	if _, err := mail.ParseAddress(req.EmailUser); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email_user"})
		return
	}
	if req.AppPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "app_password is required"})
		return
	}

	sealed, err := h.box.Seal(req.AppPassword)
	if err != nil {
		h.logger.Error("failed to seal credentials", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := h.store.SetEmailCredentials(c.Request.Context(), profileID(c), req.EmailUser, sealed); err != nil {
		h.logger.Error("failed to store credentials", zap.Int64("profile_id", profileID(c)), zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email_user": req.EmailUser, "configured": true})
}
