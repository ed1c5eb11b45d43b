// Package notify models workflow notifications and composes their content.
// Composition is pure: the composer turns an application snapshot into
// message values; persisting them is the caller's concern.
package notify

import "time"

// RecipientClass distinguishes operator-facing from applicant-facing messages.
type RecipientClass string

const (
	RecipientAdmin     RecipientClass = "admin"
	RecipientApplicant RecipientClass = "applicant"
)

// Notification is an append-only event record. Only the Read flag ever
// changes after creation, and only from false to true.
type Notification struct {
	ID            string         `json:"id"`
	Recipient     RecipientClass `json:"recipient"`
	Address       string         `json:"address"`
	ApplicationID string         `json:"application_id"`
	Subject       string         `json:"subject"`
	Body          string         `json:"body"`
	Read          bool           `json:"read"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Snapshot carries the application fields the composer needs. It is a
// value copy; composing never observes later mutations.
type Snapshot struct {
	ApplicationID  string
	FirstName      string
	LastName       string
	Email          string
	Amount         float64
	OldStatus      string
	NewStatus      string
	ApprovalToken  string
	UploadToken    string
	RequestMessage string
}

func (s Snapshot) fullName() string {
	return s.FirstName + " " + s.LastName
}
