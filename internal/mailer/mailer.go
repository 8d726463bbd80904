// Package mailer delivers cold emails through the sender's own mailbox.
package mailer

import "context"

// Credentials identify the sending mailbox. Secret is stored sealed and is
// only opened inside a Transport.
type Credentials struct {
	User   string
	Secret string
}

// String keeps the secret out of logs and fmt verbs.
func (c Credentials) String() string {
	return c.User + ":******"
}

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Message struct {
	FromName   string
	To         string
	ToName     string
	Subject    string
	Body       string
	Attachment *Attachment // nil when nothing is attached
}

// Transport sends one message synchronously and returns its Message-ID.
type Transport interface {
	Send(ctx context.Context, creds Credentials, msg *Message) (string, error)
}
