package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "jobpilot/contracts/mq"
	"jobpilot/internal/service/coldemail"
	"jobpilot/pkg/util"
)

type stubSender struct {
	calls []coldemail.BulkRequest
	err   error
}

func (s *stubSender) SendBulkEmails(_ context.Context, req coldemail.BulkRequest) (*coldemail.BulkResult, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	return &coldemail.BulkResult{Requested: len(req.Recipients), Sent: len(req.Recipients)}, nil
}

func newHandler(t *testing.T, sender BulkSender) *ColdEmailBulkHandler {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewColdEmailBulkHandler(sender, util.NewDeduper(rdb, time.Hour, zap.NewNop()), zap.NewNop())
}

func payload(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(mqcontracts.ColdEmailBulkRequestedPayload{
		RequestID: "req-1",
		ProfileID: 7,
		Recipients: []mqcontracts.BulkRecipient{
			{Email: "a@x.io", RecruiterName: "A"},
			{Email: "b@x.io", CompanyName: "B"},
		},
		Subject: "hello",
	})
	require.NoError(t, err)
	return raw
}

func TestBulkHandlerProcessesOnce(t *testing.T) {
	sender := &stubSender{}
	h := newHandler(t, sender)

	require.NoError(t, h.Handle(context.Background(), payload(t)))
	require.NoError(t, h.Handle(context.Background(), payload(t)))

	require.Len(t, sender.calls, 1)
	req := sender.calls[0]
	assert.Equal(t, int64(7), req.ProfileID)
	assert.Equal(t, "hello", req.Content.Subject)
	require.Len(t, req.Recipients, 2)
	assert.Equal(t, "A", req.Recipients[0].RecruiterName)
	assert.Equal(t, "B", req.Recipients[1].CompanyName)
}

func TestBulkHandlerAcksRejections(t *testing.T) {
	sender := &stubSender{err: &coldemail.DispatchError{Kind: coldemail.KindQuotaExceeded, Message: "limit"}}
	h := newHandler(t, sender)

	assert.NoError(t, h.Handle(context.Background(), payload(t)))
	assert.NoError(t, h.Handle(context.Background(), payload(t)))
	assert.Len(t, sender.calls, 1)
}

func TestBulkHandlerAllowsRedeliveryOnInfraError(t *testing.T) {
	sender := &stubSender{err: errors.New("connection reset by peer")}
	h := newHandler(t, sender)

	assert.Error(t, h.Handle(context.Background(), payload(t)))
	sender.err = nil
	assert.NoError(t, h.Handle(context.Background(), payload(t)))
	assert.Len(t, sender.calls, 2)
}

func TestBulkHandlerBadPayload(t *testing.T) {
	h := newHandler(t, &stubSender{})
	assert.Error(t, h.Handle(context.Background(), json.RawMessage(`{"profile_id":"x"`)))
}
