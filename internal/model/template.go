package model

import "time"

// EmailTemplate is a reusable subject/body pair owned by a profile.
// At most one template per profile has IsDefault set.
type EmailTemplate struct {
	ID        int64
	ProfileID int64
	Name      string
	Subject   string
	Body      string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
