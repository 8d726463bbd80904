package model

import "time"

type ColdEmailStatus string

const (
	ColdEmailSent    ColdEmailStatus = "sent"
	ColdEmailFailed  ColdEmailStatus = "failed"
	ColdEmailPending ColdEmailStatus = "pending"
	ColdEmailQueued  ColdEmailStatus = "queued"
)

// ColdEmailLog records one send attempt. Rows are append-only apart from
// OpenedAt and RepliedAt.
type ColdEmailLog struct {
	ID             int64
	ProfileID      int64
	RecipientEmail string
	RecipientName  string
	CompanyName    string
	JobTitle       string
	JobID          *int64
	TemplateID     *int64
	Subject        string
	Body           string
	Status         ColdEmailStatus
	ErrorMessage   string
	ErrorType      string
	ResumeAttached bool
	MessageID      string
	SentAt         time.Time
	OpenedAt       *time.Time
	RepliedAt      *time.Time
}
