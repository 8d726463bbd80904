package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"jobpilot/pkg/config"
	"jobpilot/pkg/secret"
)

var ErrBadCredentials = errors.New("mailer: sender auth credentials unusable")

// SMTPTransport authenticates as the sender against one SMTP relay.
type SMTPTransport struct {
	cfg    config.SMTPConfig
	box    *secret.Box
	logger *zap.Logger
}

func NewSMTPTransport(cfg config.SMTPConfig, box *secret.Box, logger *zap.Logger) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, box: box, logger: logger}
}

func (t *SMTPTransport) Send(ctx context.Context, creds Credentials, msg *Message) (string, error) {
	password, err := t.box.Open(creds.Secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadCredentials, err)
	}

	m, messageID, err := buildMessage(creds.User, msg)
	if err != nil {
		return "", err
	}

	client, err := mail.NewClient(t.cfg.Host, t.clientOptions(creds.User, password)...)
	if err != nil {
		return "", fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}

	t.logger.Debug("smtp message accepted",
		zap.String("message_id", messageID),
		zap.Bool("attachment", msg.Attachment != nil),
	)
	return messageID, nil
}

func (t *SMTPTransport) clientOptions(user, password string) []mail.Option {
	opts := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(user),
		mail.WithPassword(password),
		mail.WithTimeout(t.cfg.Timeout()),
	}
	if t.cfg.Port > 0 {
		opts = append(opts, mail.WithPort(t.cfg.Port))
	}
	switch strings.ToLower(t.cfg.TLS) {
	case "ssl":
		opts = append(opts, mail.WithSSL())
	case "opportunistic":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	return opts
}

// buildMessage assembles the MIME message and assigns a Message-ID on the
// sender's domain.
func buildMessage(from string, msg *Message) (*mail.Msg, string, error) {
	m := mail.NewMsg()
	if msg.FromName != "" {
		if err := m.FromFormat(msg.FromName, from); err != nil {
			return nil, "", fmt.Errorf("invalid sender address: %w", err)
		}
	} else if err := m.From(from); err != nil {
		return nil, "", fmt.Errorf("invalid sender address: %w", err)
	}

	if msg.ToName != "" {
		if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
			return nil, "", fmt.Errorf("invalid recipient address: %w", err)
		}
	} else if err := m.To(msg.To); err != nil {
		return nil, "", fmt.Errorf("invalid recipient address: %w", err)
	}

	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	messageID := fmt.Sprintf("%s@%s", uuid.NewString(), domain)
	m.SetMessageIDWithValue(messageID)
	m.SetDate()
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if a := msg.Attachment; a != nil && len(a.Data) > 0 {
		opts := []mail.FileOption{}
		if a.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(a.ContentType)))
		}
		if err := m.AttachReader(a.Name, bytes.NewReader(a.Data), opts...); err != nil {
			return nil, "", fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	return m, messageID, nil
}
