package registration

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCheckedIn Status = "checked_in"
	StatusCompleted Status = "completed"
)

type Registration struct {
	ID                  string     `json:"id"`
	ActivityID          string     `json:"activity_id"`
	ParticipantID       string     `json:"participant_id"`
	Status              Status     `json:"status"`
	ReviewerNote        string     `json:"reviewer_note,omitempty"`
	EvidenceURL         string     `json:"evidence_url,omitempty"`
	EvidenceNote        string     `json:"evidence_note,omitempty"`
	EvidenceSubmittedAt *time.Time `json:"evidence_submitted_at,omitempty"`
	RegisteredAt        time.Time  `json:"registered_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// HasEvidence reports whether a link or a note is on file.
func (r Registration) HasEvidence() bool {
	return r.EvidenceURL != "" || r.EvidenceNote != ""
}

type EvidenceInput struct {
	URL  string `json:"evidence_url" validate:"omitempty,url,max=2000"`
	Note string `json:"evidence_note" validate:"max=2000"`
}

type ReasonInput struct {
	Reason string `json:"reason"`
}
