package attendance

import "github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"

var (
	ErrNotYetOpen       = apperr.Validation("check-in not yet open")
	ErrWindowClosed     = apperr.Validation("check-in window closed")
	ErrNotCheckInable   = apperr.IllegalTransition("activity is not accepting check-ins")
	ErrNotRegistered    = apperr.NotFound("no registration for this activity")
	ErrOutsideGeofence  = apperr.Validation("too far from the venue")
	ErrNoToken          = apperr.InvalidToken("no verification token for this activity")
	ErrTokenExpired     = apperr.InvalidToken("verification token has expired")
	ErrTokenInactive    = apperr.InvalidToken("verification token is not active")
	ErrTokenMismatch    = apperr.InvalidToken("verification token does not match")
	ErrNotActivityOwner = apperr.Authorization("only the activity owner can manage attendance")
)
