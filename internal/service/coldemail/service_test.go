package coldemail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/model"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestGetEffectiveDailyLimit(t *testing.T) {
	now := testNow
	active := func(plan string, override *int) *model.Subscription {
		return &model.Subscription{
			Plan:            plan,
			DailyEmailLimit: override,
			Status:          model.SubscriptionActive,
			StartDate:       now.Add(-time.Hour),
			EndDate:         now.Add(time.Hour),
		}
	}
	expired := active("premium", nil)
	expired.EndDate = now.Add(-time.Minute)
	cancelled := active("premium", nil)
	cancelled.Status = model.SubscriptionCancelled

	tests := []struct {
		name string
		sub  *model.Subscription
		want int
	}{
		{"no subscription", nil, 0},
		{"expired", expired, 0},
		{"cancelled", cancelled, 0},
		{"basic", active("basic", nil), 20},
		{"standard", active("Standard", nil), 50},
		{"premium", active("premium", nil), 100},
		{"enterprise", active("enterprise", nil), 200},
		{"unknown plan falls back", active("gold", nil), FallbackDailyLimit},
		{"override wins", active("basic", intPtr(7)), 7},
		{"zero override blocks", active("premium", intPtr(0)), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetEffectiveDailyLimit(tt.sub, now))
		})
	}
}

func TestSendColdEmailPreconditions(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(f *fixture)
		to     string
		kind   *DispatchError
		verify func(t *testing.T, de *DispatchError)
	}{
		{
			name: "empty recipient",
			to:   "   ",
			kind: ErrInvalidRequest,
		},
		{
			name:  "unknown sender",
			setup: func(f *fixture) { delete(f.profiles, 1) },
			to:    "hr@acme.io",
			kind:  ErrInvalidRequest,
		},
		{
			name:  "missing credentials",
			setup: func(f *fixture) { f.profiles[1].EmailSecret = "" },
			to:    "hr@acme.io",
			kind:  ErrCredentialsMissing,
		},
		{
			name:  "no subscription",
			setup: func(f *fixture) { delete(f.subs, 1) },
			to:    "hr@acme.io",
			kind:  ErrSubscriptionRequired,
			verify: func(t *testing.T, de *DispatchError) {
				assert.True(t, de.UpgradeRequired)
				assert.False(t, de.QuotaExhausted)
			},
		},
		{
			name:  "expired subscription",
			setup: func(f *fixture) { f.subs[1].EndDate = testNow.Add(-time.Second) },
			to:    "hr@acme.io",
			kind:  ErrSubscriptionRequired,
		},
		{
			name:  "quota reached",
			setup: func(f *fixture) { f.profiles[1].EmailsSentToday = 20 },
			to:    "hr@acme.io",
			kind:  ErrQuotaExceeded,
			verify: func(t *testing.T, de *DispatchError) {
				assert.True(t, de.QuotaExhausted)
				assert.Equal(t, 20, de.Limit)
				assert.Contains(t, de.Message, "20")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}
			before := 0
			if p, ok := f.profiles[1]; ok {
				before = p.EmailsSentToday
			}

			res, err := f.svc.SendColdEmail(context.Background(), SendRequest{
				ProfileID: 1,
				To:        Recipient{Email: tt.to},
				Content:   Content{Subject: "s", Body: "b"},
			})
			assert.Nil(t, res)
			require.ErrorIs(t, err, tt.kind)

			var de *DispatchError
			require.True(t, errors.As(err, &de))
			assert.NotEmpty(t, de.Message)
			if tt.verify != nil {
				tt.verify(t, de)
			}

			assert.Equal(t, 0, f.outcomes.count(), "no log row for refused sends")
			assert.Equal(t, 0, f.transport.calls())
			if p, ok := f.profiles[1]; ok {
				assert.Equal(t, before, p.EmailsSentToday)
			}
		})
	}
}

func TestSendColdEmailSuccess(t *testing.T) {
	f := newFixture()
	f.profiles[1].EmailsSentToday = 4

	res, err := f.svc.SendColdEmail(context.Background(), SendRequest{
		ProfileID: 1,
		To:        Recipient{Email: " hr@acme.io ", RecruiterName: "Kim", CompanyName: "Acme", JobTitle: "Engineer"},
		Content:   Content{Subject: "Engineer role", Body: "Hello Kim"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.ColdEmailSent, res.Log.Status)
	assert.Equal(t, "hr@acme.io", res.Log.RecipientEmail)
	assert.Equal(t, "Engineer role", res.Log.Subject)
	assert.True(t, res.Log.ResumeAttached)
	assert.Equal(t, "msg-hr@acme.io", res.Log.MessageID)
	assert.Equal(t, 20, res.DailyLimit)
	assert.Equal(t, 15, res.Remaining)
	assert.Equal(t, 5, f.profiles[1].EmailsSentToday)

	require.Len(t, f.transport.sent, 1)
	msg := f.transport.sent[0]
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, "cv.pdf", msg.Attachment.Name)
	assert.Equal(t, "ana@example.com", f.transport.creds[0].User)
}

func TestSendColdEmailMissingResumeStillSends(t *testing.T) {
	f := newFixture()
	delete(f.resumes, "resumes/1/cv.pdf")

	res, err := f.svc.SendColdEmail(context.Background(), SendRequest{
		ProfileID: 1,
		To:        Recipient{Email: "hr@acme.io"},
	})
	require.NoError(t, err)
	assert.False(t, res.Log.ResumeAttached)
	require.Len(t, f.transport.sent, 1)
	assert.Nil(t, f.transport.sent[0].Attachment)
}

func TestSendColdEmailTransportFailure(t *testing.T) {
	f := newFixture()
	f.profiles[1].EmailsSentToday = 3
	f.transport.failTo["hr@acme.io"] = errRelayDown

	res, err := f.svc.SendColdEmail(context.Background(), SendRequest{
		ProfileID: 1,
		To:        Recipient{Email: "hr@acme.io"},
		Content:   Content{Subject: "s", Body: "b"},
	})
	require.ErrorIs(t, err, ErrTransportFailure)
	assert.ErrorIs(t, err, errRelayDown)

	require.NotNil(t, res)
	assert.Equal(t, model.ColdEmailFailed, res.Log.Status)
	assert.Equal(t, errRelayDown.Error(), res.Log.ErrorMessage)
	assert.Equal(t, "network_error", res.Log.ErrorType)
	assert.Equal(t, 17, res.Remaining)
	assert.Equal(t, 1, f.outcomes.count())
	assert.Equal(t, 3, f.profiles[1].EmailsSentToday, "failed sends do not consume quota")
}

func TestSendColdEmailIsNotIdempotent(t *testing.T) {
	f := newFixture()
	req := SendRequest{ProfileID: 1, To: Recipient{Email: "hr@acme.io"}, Content: Content{Subject: "s", Body: "b"}}

	_, err := f.svc.SendColdEmail(context.Background(), req)
	require.NoError(t, err)
	_, err = f.svc.SendColdEmail(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, f.outcomes.count())
	assert.Equal(t, 2, f.profiles[1].EmailsSentToday)
}

func TestSendColdEmailRollsOverStaleCounter(t *testing.T) {
	f := newFixture()
	yesterday := today().AddDate(0, 0, -1)
	f.profiles[1].EmailsSentToday = 20
	f.profiles[1].LastEmailResetDate = &yesterday

	res, err := f.svc.SendColdEmail(context.Background(), SendRequest{ProfileID: 1, To: Recipient{Email: "hr@acme.io"}})
	require.NoError(t, err)
	assert.Equal(t, 19, res.Remaining)
	assert.Equal(t, 1, f.profiles[1].EmailsSentToday)
	assert.True(t, f.profiles[1].LastEmailResetDate.Equal(today()))
}

func TestSendColdEmailConcurrentAtBoundary(t *testing.T) {
	for run := 0; run < 20; run++ {
		f := newFixture()
		f.profiles[1].EmailsSentToday = 19

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.svc.SendColdEmail(context.Background(), SendRequest{
					ProfileID: 1,
					To:        Recipient{Email: "hr@acme.io"},
				})
			}(i)
		}
		wg.Wait()

		successes, exceeded := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrQuotaExceeded):
				exceeded++
			}
		}
		require.Equal(t, 1, successes)
		require.Equal(t, 1, exceeded)
		require.Equal(t, 20, f.profiles[1].EmailsSentToday)
		require.Equal(t, 1, f.outcomes.count())
	}
}

func TestGetStatsRollsOver(t *testing.T) {
	f := newFixture()
	yesterday := today().AddDate(0, 0, -1)
	f.profiles[1].EmailsSentToday = 15
	f.profiles[1].LastEmailResetDate = &yesterday

	st, err := f.svc.GetStats(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 0, st.SentToday)
	assert.Equal(t, 20, st.DailyLimit)
	assert.Equal(t, 20, st.Remaining)
	assert.Equal(t, "basic", st.Plan)
	assert.True(t, st.HasSubscription)
	assert.Equal(t, today().AddDate(0, 0, 1), st.ResetsAt)

	assert.Equal(t, 0, f.profiles[1].EmailsSentToday)
	assert.True(t, f.profiles[1].LastEmailResetDate.Equal(today()))
}

func TestGetStatsWithoutSubscription(t *testing.T) {
	f := newFixture()
	delete(f.subs, 1)
	f.profiles[1].EmailsSentToday = 2

	st, err := f.svc.GetStats(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, st.HasSubscription)
	assert.Equal(t, 0, st.DailyLimit)
	assert.Equal(t, 0, st.Remaining)
	assert.Equal(t, 2, st.SentToday)
}

func TestTemplateResolution(t *testing.T) {
	own := &model.EmailTemplate{ID: 5, ProfileID: 1, Subject: "{{job_role}} at {{company_name}}", Body: "Hi {{recruiter_name}}, I know {{skills}}. {{foo}} -- {{user_name}}"}
	foreign := &model.EmailTemplate{ID: 6, ProfileID: 2, Subject: "not mine", Body: "not mine"}
	def := &model.EmailTemplate{ID: 7, ProfileID: 1, Subject: "Default for {{company_name}}", Body: "default body", IsDefault: true}
	to := Recipient{Email: "hr@acme.io", RecruiterName: "Kim", CompanyName: "Acme", JobTitle: "Engineer"}

	tests := []struct {
		name        string
		content     Content
		withDefault bool
		wantSubject string
		wantBody    string
		wantTmpl    *int64
	}{
		{
			name:        "own template overrides caller text",
			content:     Content{Subject: "ignored", Body: "ignored", TemplateID: int64Ptr(5)},
			wantSubject: "Engineer at Acme",
			wantBody:    "Hi Kim, I know Go, PostgreSQL. {{foo}} -- Ana Lima",
			wantTmpl:    int64Ptr(5),
		},
		{
			name:        "foreign template treated as missing",
			content:     Content{Subject: "mine", Body: "my body", TemplateID: int64Ptr(6)},
			wantSubject: "mine",
			wantBody:    "my body",
		},
		{
			name:        "unknown template falls back to caller text verbatim",
			content:     Content{Subject: "{{job_role}}", Body: "b", TemplateID: int64Ptr(99)},
			wantSubject: "{{job_role}}",
			wantBody:    "b",
		},
		{
			name:        "default template when caller sends nothing",
			withDefault: true,
			wantSubject: "Default for Acme",
			wantBody:    "default body",
			wantTmpl:    int64Ptr(7),
		},
		{
			name:        "caller text beats default template",
			content:     Content{Subject: "mine"},
			withDefault: true,
			wantSubject: "mine",
			wantBody:    FallbackBody,
		},
		{
			name:        "fixed fallback",
			wantSubject: FallbackSubject,
			wantBody:    FallbackBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.templates.byID[5] = own
			f.templates.byID[6] = foreign
			f.templates.byID[7] = def
			if tt.withDefault {
				f.templates.defaults[1] = 7
			}

			res, err := f.svc.SendColdEmail(context.Background(), SendRequest{ProfileID: 1, To: to, Content: tt.content})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, res.Log.Subject)
			assert.Equal(t, tt.wantBody, res.Log.Body)
			assert.Equal(t, tt.wantTmpl, res.Log.TemplateID)
			assert.Equal(t, tt.wantSubject, f.transport.sent[0].Subject)
		})
	}
}

func TestListLogsAndMarkers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, to := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		_, err := f.svc.SendColdEmail(ctx, SendRequest{ProfileID: 1, To: Recipient{Email: to}})
		require.NoError(t, err)
	}

	logs, err := f.svc.ListLogs(ctx, 1, 2, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "c@x.io", logs[0].RecipientEmail)

	require.NoError(t, f.svc.MarkOpened(ctx, 1, logs[0].ID))
	assert.Equal(t, testNow, *logs[0].OpenedAt)
	assert.ErrorIs(t, f.svc.MarkReplied(ctx, 2, logs[0].ID), model.ErrNotFound)
}
