package mailer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"jobpilot/pkg/circuitbreaker"
	"jobpilot/pkg/metrics"
	"jobpilot/pkg/util"
)

// GuardedTransport puts a circuit breaker and latency metrics around a
// Transport. Only relay-level failures (network, TLS, timeouts) count
// against the breaker; a single sender's bad password or a rejected
// recipient must not open it for everyone.
type GuardedTransport struct {
	next   Transport
	cb     *circuitbreaker.CircuitBreaker
	logger *zap.Logger
}

func NewGuardedTransport(next Transport, cb *circuitbreaker.CircuitBreaker, logger *zap.Logger) *GuardedTransport {
	cb.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warn("smtp circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return &GuardedTransport{next: next, cb: cb, logger: logger}
}

func (g *GuardedTransport) Send(ctx context.Context, creds Credentials, msg *Message) (string, error) {
	start := time.Now()

	var messageID string
	var sendErr error
	cbErr := g.cb.Execute(func() error {
		messageID, sendErr = g.next.Send(ctx, creds, msg)
		if sendErr != nil && relayFailure(sendErr) {
			return sendErr
		}
		return nil
	})
	if cbErr != nil {
		sendErr = cbErr
	}

	status := "success"
	errType := ""
	if sendErr != nil {
		status = "failure"
		errType = util.ClassifySendError(sendErr)
	}
	metrics.RecordTransportLatency(status, errType, time.Since(start))

	return messageID, sendErr
}

func relayFailure(err error) bool {
	switch util.ClassifySendError(err) {
	case "timeout", "network_timeout", "network_error", "tls_error":
		return true
	}
	return false
}
