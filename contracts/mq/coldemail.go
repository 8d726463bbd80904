package mq

import "time"

// ColdEmailSentPayload is published on coldemail.sent.
type ColdEmailSentPayload struct {
	LogID          int64     `json:"log_id"`
	ProfileID      int64     `json:"profile_id"`
	RecipientEmail string    `json:"recipient_email"`
	CompanyName    string    `json:"company_name,omitempty"`
	JobID          *int64    `json:"job_id,omitempty"`
	TemplateID     *int64    `json:"template_id,omitempty"`
	ResumeAttached bool      `json:"resume_attached"`
	MessageID      string    `json:"message_id,omitempty"`
	SentAt         time.Time `json:"sent_at"`
	TraceID        string    `json:"trace_id,omitempty"`
}

// ColdEmailFailedPayload is published on coldemail.failed.
type ColdEmailFailedPayload struct {
	LogID          int64     `json:"log_id"`
	ProfileID      int64     `json:"profile_id"`
	RecipientEmail string    `json:"recipient_email"`
	Error          string    `json:"error"`
	ErrorType      string    `json:"error_type"` // smtp_auth / network_timeout / circuit_open ...
	FailedAt       time.Time `json:"failed_at"`
	TraceID        string    `json:"trace_id,omitempty"`
}

type BulkRecipient struct {
	Email         string `json:"email"`
	RecruiterName string `json:"recruiter_name,omitempty"`
	CompanyName   string `json:"company_name,omitempty"`
	JobTitle      string `json:"job_title,omitempty"`
	JobID         *int64 `json:"job_id,omitempty"`
}

// ColdEmailBulkRequestedPayload is published on coldemail.bulk.requested
// when a bulk send is accepted for background processing.
type ColdEmailBulkRequestedPayload struct {
	RequestID  string          `json:"request_id"`
	ProfileID  int64           `json:"profile_id"`
	Recipients []BulkRecipient `json:"recipients"`
	Subject    string          `json:"subject,omitempty"`
	Body       string          `json:"body,omitempty"`
	TemplateID *int64          `json:"template_id,omitempty"`
	TraceID    string          `json:"trace_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
