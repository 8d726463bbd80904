package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"jobpilot/pkg/circuitbreaker"
)

func TestBuildMessage(t *testing.T) {
	m, id, err := buildMessage("ana@example.com", &Message{
		FromName: "Ana",
		To:       "hr@acme.io",
		ToName:   "Kim",
		Subject:  "Engineer at Acme",
		Body:     "Hello",
		Attachment: &Attachment{
			Name:        "cv.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF"),
		},
	})
	require.NoError(t, err)
	assert.Contains(t, id, "@example.com")
	assert.Equal(t, []string{"Engineer at Acme"}, m.GetGenHeader(mail.HeaderSubject))
	assert.Len(t, m.GetAttachments(), 1)

	rcpts, err := m.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"hr@acme.io"}, rcpts)
}

func TestBuildMessageWithoutAttachment(t *testing.T) {
	m, _, err := buildMessage("ana@example.com", &Message{To: "hr@acme.io", Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Empty(t, m.GetAttachments())
}

func TestBuildMessageRejectsBadRecipient(t *testing.T) {
	_, _, err := buildMessage("ana@example.com", &Message{To: "not an address"})
	assert.Error(t, err)
}

func TestCredentialsStringHidesSecret(t *testing.T) {
	c := Credentials{User: "ana@example.com", Secret: "hunter2"}
	assert.NotContains(t, fmt.Sprintf("%v %s", c, c), "hunter2")
}

type stubTransport struct {
	err   error
	calls int
}

func (s *stubTransport) Send(context.Context, Credentials, *Message) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "id@x", nil
}

func newGuarded(next Transport) *GuardedTransport {
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Hour,
		HalfOpenMaxRequests: 1,
	})
	return NewGuardedTransport(next, cb, zap.NewNop())
}

func TestGuardedTransportOpensOnRelayFailures(t *testing.T) {
	stub := &stubTransport{err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}
	g := newGuarded(stub)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.Send(ctx, Credentials{}, &Message{})
		require.Error(t, err)
	}
	_, err := g.Send(ctx, Credentials{}, &Message{})
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitBreakerOpen)
	assert.Equal(t, 2, stub.calls)
}

func TestGuardedTransportIgnoresSenderErrors(t *testing.T) {
	stub := &stubTransport{err: errors.New("535 5.7.8 authentication failed")}
	g := newGuarded(stub)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := g.Send(ctx, Credentials{}, &Message{})
		assert.ErrorContains(t, err, "535")
	}
	assert.Equal(t, 5, stub.calls)
	assert.Equal(t, circuitbreaker.StateClosed, g.cb.GetState())
}
