// Package resume locates a candidate's resume file for attaching to
// outgoing mail.
package resume

import (
	"context"
	"errors"
	"mime"
	"path"
	"strings"
)

// MaxSize caps how much of a resume is read into memory.
const MaxSize = 10 << 20

// ErrMissing means the reference points at nothing. Callers treat this as
// "send without attachment".
var ErrMissing = errors.New("resume file missing")

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Locator interface {
	Fetch(ctx context.Context, key string) (*File, error)
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
