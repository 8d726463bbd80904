package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobpilot/internal/handler"
	"jobpilot/internal/model"
	"jobpilot/internal/service/coldemail"
	"jobpilot/internal/service/match"
	"jobpilot/pkg/outbox"
	"jobpilot/pkg/rbac"
	"jobpilot/pkg/util"
)

const testSecret = "test-secret"

type stubColdEmail struct {
	sendErr  error
	sendRes  *coldemail.Result
	lastSend coldemail.SendRequest
}

func (s *stubColdEmail) SendColdEmail(_ context.Context, req coldemail.SendRequest) (*coldemail.Result, error) {
	s.lastSend = req
	return s.sendRes, s.sendErr
}

func (s *stubColdEmail) SendBulkEmails(_ context.Context, req coldemail.BulkRequest) (*coldemail.BulkResult, error) {
	return &coldemail.BulkResult{Requested: len(req.Recipients), Sent: len(req.Recipients)}, nil
}

func (s *stubColdEmail) GetStats(context.Context, int64) (*coldemail.Stats, error) {
	return &coldemail.Stats{SentToday: 3, DailyLimit: 20, Remaining: 17, HasSubscription: true}, nil
}

func (s *stubColdEmail) ListLogs(context.Context, int64, int, int) ([]*model.ColdEmailLog, error) {
	return nil, nil
}

func (s *stubColdEmail) MarkOpened(context.Context, int64, int64) error  { return nil }
func (s *stubColdEmail) MarkReplied(context.Context, int64, int64) error { return model.ErrNotFound }

type stubPublisher struct {
	keys []string
}

func (p *stubPublisher) PublishWithContext(_ context.Context, key string, _ any) error {
	p.keys = append(p.keys, key)
	return nil
}

type stubProfiles struct{}

func (stubProfiles) GetByUserID(_ context.Context, userID int64) (*model.Profile, error) {
	if userID == 404 {
		return nil, model.ErrNotFound
	}
	return &model.Profile{ID: userID * 10, UserID: userID}, nil
}

type stubMatch struct{}

func (stubMatch) ScoreJob(context.Context, int64, int64) (*match.Match, error) {
	return &match.Match{Score: 80, Category: "Excellent Match"}, nil
}
func (stubMatch) RankJobsForProfile(context.Context, int64, int) ([]match.Match, error) {
	return nil, nil
}
func (stubMatch) RankCandidatesForJob(context.Context, int64, int) ([]match.Match, error) {
	return []match.Match{{ProfileID: 1, Score: 90}}, nil
}

type stubJobs struct{}

func (stubJobs) GetByID(_ context.Context, id int64) (*model.Job, error) {
	return &model.Job{ID: id, RecruiterID: 2}, nil
}

type stubTemplates struct{}

func (stubTemplates) Create(context.Context, *model.EmailTemplate) error { return nil }
func (stubTemplates) SetDefault(context.Context, int64, int64) error     { return nil }
func (stubTemplates) List(context.Context, int64) ([]*model.EmailTemplate, error) {
	return nil, nil
}

type stubOutbox struct{}

func (stubOutbox) GetFailedEvents(context.Context, int) ([]*outbox.Event, error) { return nil, nil }
func (stubOutbox) ReplayEvent(context.Context, int64) error                     { return nil }
func (stubOutbox) ReplayFailedEvents(context.Context, int) (int, error)         { return 0, nil }

type stubCreds struct{}

func (stubCreds) SetEmailCredentials(context.Context, int64, string, string) error { return nil }

type stubSealer struct{}

func (stubSealer) Seal(string) (string, error) { return "sealed", nil }

func newTestRouter(svc *stubColdEmail, pub *stubPublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	h := Handlers{
		ColdEmail: handler.NewColdEmailHandler(svc, pub, log),
		Templates: handler.NewTemplateHandler(stubTemplates{}, log),
		Match:     handler.NewMatchHandler(stubMatch{}, stubJobs{}, log),
		Profile:   handler.NewProfileHandler(stubCreds{}, stubSealer{}, log),
		Admin:     handler.NewAdminHandler(stubOutbox{}, stubOutbox{}, log),
	}
	return NewRouter(h, Options{
		JWTSecret: testSecret,
		Profiles:  stubProfiles{},
		Readiness: map[string]ReadinessCheck{
			"db": func(context.Context) error { return nil },
		},
	}, log)
}

func do(t *testing.T, r http.Handler, method, path string, userID int64, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := util.GenerateJWT(userID, role, testSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndTrace(t *testing.T) {
	r := newTestRouter(&stubColdEmail{}, &stubPublisher{})

	w := do(t, r, http.MethodGet, "/healthz", 0, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	w = do(t, r, http.MethodGet, "/readyz", 0, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthAndPermissions(t *testing.T) {
	r := newTestRouter(&stubColdEmail{}, &stubPublisher{})

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/api/cold-emails/stats", 0, "", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/api/cold-emails/stats", 2, rbac.RoleRecruiter, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/cold-emails/stats", 404, rbac.RoleCandidate, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodPost, "/api/admin/outbox/replay-failed", 1, rbac.RoleCandidate, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/admin/outbox/replay-failed", 9, rbac.RoleAdmin, nil).Code)

	w := do(t, r, http.MethodGet, "/api/cold-emails/stats", 1, rbac.RoleCandidate, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remaining":17`)
}

func TestSendErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", &coldemail.DispatchError{Kind: coldemail.KindInvalidRequest, Message: "x"}, http.StatusBadRequest},
		{"credentials", &coldemail.DispatchError{Kind: coldemail.KindCredentialsMissing, Message: "x"}, http.StatusPreconditionFailed},
		{"subscription", &coldemail.DispatchError{Kind: coldemail.KindSubscriptionRequired, Message: "x", UpgradeRequired: true}, http.StatusPaymentRequired},
		{"quota", &coldemail.DispatchError{Kind: coldemail.KindQuotaExceeded, Message: "x", QuotaExhausted: true, Limit: 20}, http.StatusTooManyRequests},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&stubColdEmail{sendErr: tt.err}, &stubPublisher{})
			w := do(t, r, http.MethodPost, "/api/cold-emails", 1, rbac.RoleCandidate, map[string]any{"recipient_email": "hr@acme.io"})
			assert.Equal(t, tt.want, w.Code)
			assert.NotContains(t, w.Body.String(), "db down")
		})
	}
}

func TestSendQuotaBodyCarriesFlags(t *testing.T) {
	r := newTestRouter(&stubColdEmail{sendErr: &coldemail.DispatchError{
		Kind: coldemail.KindQuotaExceeded, Message: "limit", QuotaExhausted: true, UpgradeRequired: true, Limit: 20,
	}}, &stubPublisher{})

	w := do(t, r, http.MethodPost, "/api/cold-emails", 1, rbac.RoleCandidate, map[string]any{"recipient_email": "hr@acme.io"})
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["quota_exceeded"])
	assert.Equal(t, true, body["upgrade_required"])
	assert.Equal(t, "quota_exceeded", body["code"])
}

func TestSendTransportFailureReturnsLog(t *testing.T) {
	svc := &stubColdEmail{
		sendRes: &coldemail.Result{Log: &model.ColdEmailLog{ID: 42, Status: model.ColdEmailFailed, ErrorMessage: "535 auth"}, Remaining: 5},
		sendErr: &coldemail.DispatchError{Kind: coldemail.KindTransportFailure, Message: "failed to send email"},
	}
	r := newTestRouter(svc, &stubPublisher{})

	w := do(t, r, http.MethodPost, "/api/cold-emails", 1, rbac.RoleCandidate, map[string]any{"recipient_email": "hr@acme.io"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"log_id":42`)
	assert.Equal(t, int64(10), svc.lastSend.ProfileID)
}

func TestBulkAsyncPublishes(t *testing.T) {
	pub := &stubPublisher{}
	r := newTestRouter(&stubColdEmail{}, pub)

	w := do(t, r, http.MethodPost, "/api/cold-emails/bulk?async=true", 1, rbac.RoleCandidate, map[string]any{
		"recipients": []map[string]string{{"email": "a@x.io"}},
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"coldemail.bulk.requested"}, pub.keys)

	w = do(t, r, http.MethodPost, "/api/cold-emails/bulk", 1, rbac.RoleCandidate, map[string]any{
		"recipients": []map[string]string{{"email": "a@x.io"}, {"email": "b@x.io"}},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sent":2`)
}

func TestCandidatesOwnership(t *testing.T) {
	r := newTestRouter(&stubColdEmail{}, &stubPublisher{})

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/jobs/5/candidates", 2, rbac.RoleRecruiter, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/jobs/5/candidates", 3, rbac.RoleRecruiter, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/jobs/5/candidates", 9, rbac.RoleAdmin, nil).Code)
}

func TestMarkRepliedNotFound(t *testing.T) {
	r := newTestRouter(&stubColdEmail{}, &stubPublisher{})
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/cold-emails/3/opened", 1, rbac.RoleCandidate, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, "/api/cold-emails/3/replied", 1, rbac.RoleCandidate, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/cold-emails/abc/replied", 1, rbac.RoleCandidate, nil).Code)
}
