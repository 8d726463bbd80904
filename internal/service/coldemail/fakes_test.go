package coldemail

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobpilot/internal/clock"
	"jobpilot/internal/mailer"
	"jobpilot/internal/model"
	"jobpilot/internal/resume"
)

type fakeProfiles map[int64]*model.Profile

func (f fakeProfiles) GetByID(_ context.Context, id int64) (*model.Profile, error) {
	p, ok := f[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return p, nil
}

type fakeSubs map[int64]*model.Subscription

func (f fakeSubs) FindActive(_ context.Context, profileID int64, now time.Time) (*model.Subscription, error) {
	s, ok := f[profileID]
	if !ok || !s.IsActiveAt(now) {
		return nil, nil
	}
	return s, nil
}

type fakeTemplates struct {
	byID     map[int64]*model.EmailTemplate
	defaults map[int64]int64
}

func (f *fakeTemplates) Get(_ context.Context, id int64) (*model.EmailTemplate, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return t, nil
}

func (f *fakeTemplates) GetDefault(ctx context.Context, profileID int64) (*model.EmailTemplate, error) {
	id, ok := f.defaults[profileID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return f.Get(ctx, id)
}

// fakeQuota mirrors the conditional UPDATEs of the SQL repository under a
// mutex, which is what the row lock gives us in Postgres.
type fakeQuota struct {
	mu       sync.Mutex
	profiles fakeProfiles
	reserves int
}

func (f *fakeQuota) rollover(p *model.Profile, today time.Time) {
	if p.LastEmailResetDate == nil || p.LastEmailResetDate.Before(today) {
		d := today
		p.EmailsSentToday = 0
		p.LastEmailResetDate = &d
	}
}

func (f *fakeQuota) Rollover(_ context.Context, profileID int64, today time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[profileID]
	if !ok {
		return 0, model.ErrNotFound
	}
	f.rollover(p, today)
	return p.EmailsSentToday, nil
}

func (f *fakeQuota) Reserve(_ context.Context, profileID int64, today time.Time, limit int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[profileID]
	if !ok {
		return 0, false, model.ErrNotFound
	}
	effective := p.EmailsSentToday
	if p.LastEmailResetDate == nil || p.LastEmailResetDate.Before(today) {
		effective = 0
	}
	if effective >= limit {
		return limit, false, nil
	}
	f.rollover(p, today)
	p.EmailsSentToday++
	f.reserves++
	return p.EmailsSentToday, true, nil
}

func (f *fakeQuota) Release(_ context.Context, profileID int64, today time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[profileID]
	if ok && p.LastEmailResetDate != nil && p.LastEmailResetDate.Equal(today) && p.EmailsSentToday > 0 {
		p.EmailsSentToday--
	}
	return nil
}

type fakeOutcomes struct {
	mu     sync.Mutex
	quota  *fakeQuota
	logs   []*model.ColdEmailLog
	nextID int64
}

func (f *fakeOutcomes) add(l *model.ColdEmailLog) {
	f.nextID++
	l.ID = f.nextID
	f.logs = append(f.logs, l)
}

func (f *fakeOutcomes) RecordSent(_ context.Context, l *model.ColdEmailLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.add(l)
	return nil
}

func (f *fakeOutcomes) RecordFailed(ctx context.Context, l *model.ColdEmailLog, quotaDay time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.add(l)
	return f.quota.Release(ctx, l.ProfileID, quotaDay)
}

func (f *fakeOutcomes) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.logs)
}

type fakeLogs struct{ *fakeOutcomes }

func (f fakeLogs) ListByProfile(_ context.Context, profileID int64, limit, offset int) ([]*model.ColdEmailLog, error) {
	var out []*model.ColdEmailLog
	for i := len(f.logs) - 1; i >= 0; i-- {
		if f.logs[i].ProfileID == profileID {
			out = append(out, f.logs[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeLogs) MarkOpened(_ context.Context, profileID, logID int64, at time.Time) error {
	for _, l := range f.logs {
		if l.ID == logID && l.ProfileID == profileID {
			if l.OpenedAt == nil {
				l.OpenedAt = &at
			}
			return nil
		}
	}
	return model.ErrNotFound
}

func (f fakeLogs) MarkReplied(_ context.Context, profileID, logID int64, at time.Time) error {
	for _, l := range f.logs {
		if l.ID == logID && l.ProfileID == profileID {
			if l.RepliedAt == nil {
				l.RepliedAt = &at
			}
			return nil
		}
	}
	return model.ErrNotFound
}

type fakeTransport struct {
	mu     sync.Mutex
	failTo map[string]error
	sent   []*mailer.Message
	creds  []mailer.Credentials
}

func (f *fakeTransport) Send(_ context.Context, creds mailer.Credentials, msg *mailer.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	f.creds = append(f.creds, creds)
	if err := f.failTo[msg.To]; err != nil {
		return "", err
	}
	return "msg-" + msg.To, nil
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeResumes map[string]*resume.File

func (f fakeResumes) Fetch(_ context.Context, key string) (*resume.File, error) {
	r, ok := f[key]
	if !ok {
		return nil, resume.ErrMissing
	}
	return r, nil
}

var errRelayDown = errors.New("dial tcp 10.0.0.1:587: connection refused")

// fixture wires a Service against in-memory stores. Profile 1 is a fully
// set up sender on the "basic" plan (limit 20) with a resume on file.
type fixture struct {
	svc       *Service
	clock     *clock.Fixed
	profiles  fakeProfiles
	subs      fakeSubs
	templates *fakeTemplates
	quota     *fakeQuota
	outcomes  *fakeOutcomes
	transport *fakeTransport
	resumes   fakeResumes
}

var testNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func today() time.Time {
	return clock.StartOfDay(testNow)
}

func newFixture() *fixture {
	resetDay := today()
	profiles := fakeProfiles{
		1: {
			ID:                 1,
			UserID:             100,
			FullName:           "Ana Lima",
			Skills:             []string{"Go", "PostgreSQL"},
			Experience:         "Senior backend engineer",
			EmailUser:          "ana@example.com",
			EmailSecret:        "sealed-secret",
			LastEmailResetDate: &resetDay,
			ResumeKey:          "resumes/1/cv.pdf",
		},
	}
	subs := fakeSubs{
		1: {
			ID:        10,
			ProfileID: 1,
			Plan:      "basic",
			Status:    model.SubscriptionActive,
			StartDate: testNow.AddDate(0, -1, 0),
			EndDate:   testNow.AddDate(0, 1, 0),
		},
	}
	templates := &fakeTemplates{byID: map[int64]*model.EmailTemplate{}, defaults: map[int64]int64{}}
	quota := &fakeQuota{profiles: profiles}
	outcomes := &fakeOutcomes{quota: quota}
	transport := &fakeTransport{failTo: map[string]error{}}
	resumes := fakeResumes{
		"resumes/1/cv.pdf": {Name: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	}
	clk := clock.NewFixed(testNow)

	svc := NewService(Stores{
		Profiles:      profiles,
		Subscriptions: subs,
		Templates:     templates,
		Quota:         quota,
		Outcomes:      outcomes,
		Logs:          fakeLogs{outcomes},
	}, transport, resumes, zap.NewNop(), WithClock(clk))

	return &fixture{
		svc:       svc,
		clock:     clk,
		profiles:  profiles,
		subs:      subs,
		templates: templates,
		quota:     quota,
		outcomes:  outcomes,
		transport: transport,
		resumes:   resumes,
	}
}
