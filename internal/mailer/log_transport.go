package mailer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogTransport only logs. Used when no SMTP relay is configured (local dev).
type LogTransport struct {
	logger *zap.Logger
}

func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, creds Credentials, msg *Message) (string, error) {
	id := uuid.NewString() + "@dev.local"
	fields := []zap.Field{
		zap.String("message_id", id),
		zap.String("from", creds.User),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	}
	if msg.Attachment != nil {
		fields = append(fields, zap.String("attachment", msg.Attachment.Name))
	}
	t.logger.Info("cold email (log transport)", fields...)
	return id, nil
}
