package registration

import "github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"

var (
	ErrNotFound          = apperr.NotFound("registration not found")
	ErrAlreadyRegistered = apperr.Validation("already registered for this activity")
	ErrActivityFull      = apperr.Validation("activity is full")
	ErrNotEnrollable     = apperr.IllegalTransition("activity is not open for enrollment")
	ErrNotActivityOwner  = apperr.Authorization("only the activity owner can review registrations")
	ErrNotParticipant    = apperr.Authorization("not your registration")
	ErrStale             = apperr.IllegalTransition("registration was modified concurrently")
	ErrDeadlinePassed    = apperr.Validation("evidence deadline has passed")
)
