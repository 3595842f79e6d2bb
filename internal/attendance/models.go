package attendance

import "time"

type Method string

const (
	MethodGeolocation Method = "geolocation"
	MethodToken       Method = "token"
	MethodManual      Method = "manual"
)

type Attendance struct {
	ID            string    `json:"id"`
	ActivityID    string    `json:"activity_id"`
	ParticipantID string    `json:"participant_id"`
	Method        Method    `json:"method"`
	CheckedInAt   time.Time `json:"checked_in_at"`
	Lat           *float64  `json:"lat,omitempty"`
	Lng           *float64  `json:"lng,omitempty"`
	Note          string    `json:"note,omitempty"`
	RecordedBy    string    `json:"recorded_by"`
}

// VerificationToken is the single active check-in code of an activity.
type VerificationToken struct {
	ActivityID string     `json:"activity_id"`
	Value      string     `json:"value"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Active     bool       `json:"active"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (t VerificationToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

type LocationInput struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

type TokenInput struct {
	Token string `json:"token" validate:"notblank"`
}

type ManualInput struct {
	ParticipantID string `json:"participant_id" validate:"notblank"`
	Note          string `json:"note" validate:"max=500"`
}

// IssueTokenInput of zero seconds issues a token without expiry.
type IssueTokenInput struct {
	ExpiresInSeconds int `json:"expires_in_seconds" validate:"gte=0"`
}
