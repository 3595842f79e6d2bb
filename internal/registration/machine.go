package registration

import "github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/fsm"

type Action string

const (
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionCheckIn         Action = "check_in"
	ActionApproveEvidence Action = "approve_evidence"
	ActionRejectEvidence  Action = "reject_evidence"
)

// Machine is the registration transition table. A repeated check-in keeps the
// registration checked in so the attendance upsert can overwrite the earlier record.
var Machine = fsm.New[Status, Action]("registration").
	Allow(ActionApprove, StatusApproved, StatusPending).
	Allow(ActionReject, StatusRejected, StatusPending).
	Allow(ActionCheckIn, StatusCheckedIn, StatusApproved, StatusCheckedIn).
	Allow(ActionApproveEvidence, StatusCompleted, StatusCheckedIn).
	Allow(ActionRejectEvidence, StatusCheckedIn, StatusCheckedIn, StatusCompleted)

// Sources returns the legal source statuses of action as strings for ANY($n) guards.
func Sources(action Action) []string {
	from := Machine.Sources(action)
	out := make([]string, len(from))
	for i, s := range from {
		out[i] = string(s)
	}
	return out
}
