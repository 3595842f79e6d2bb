package activity

import (
	"strings"
	"time"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/fsm"
)

type Action string

const (
	ActionSubmit               Action = "submit"
	ActionRevise               Action = "revise"
	ActionResubmit             Action = "resubmit"
	ActionApprove              Action = "approve"
	ActionApproveWithCondition Action = "approve_with_condition"
	ActionRequestEdit          Action = "request_edit"
	ActionReject               Action = "reject"
	ActionOpen                 Action = "open"
	ActionComplete             Action = "complete"
	ActionCancel               Action = "cancel"
)

var reviewable = []Status{StatusPending, StatusNeedEdit}

var nonTerminal = []Status{
	StatusDraft, StatusPending, StatusApproved, StatusApprovedWithCondition, StatusNeedEdit, StatusOpen,
}

// Machine is the activity transition table.
var Machine = fsm.New[Status, Action]("activity").
	Allow(ActionSubmit, StatusPending, StatusDraft).
	Allow(ActionRevise, StatusDraft, StatusNeedEdit).
	Allow(ActionResubmit, StatusPending, StatusNeedEdit).
	Allow(ActionApprove, StatusApproved, reviewable...).
	Allow(ActionApproveWithCondition, StatusApprovedWithCondition, reviewable...).
	Allow(ActionRequestEdit, StatusNeedEdit, reviewable...).
	Allow(ActionReject, StatusRejected, reviewable...).
	Allow(ActionOpen, StatusOpen, StatusApproved, StatusApprovedWithCondition).
	Allow(ActionComplete, StatusCompleted, StatusOpen, StatusApproved, StatusApprovedWithCondition).
	Allow(ActionCancel, StatusCancelled, nonTerminal...)

// reviewActions are the transitions that record a reviewer and an annotation.
var reviewActions = map[Action]AnnotationKind{
	ActionApprove:              AnnotationApproval,
	ActionApproveWithCondition: AnnotationCondition,
	ActionRequestEdit:          AnnotationEditRequest,
	ActionReject:               AnnotationRejection,
}

// Transition is a fully computed status change ready to be persisted.
type Transition struct {
	Action     Action
	From       Status
	To         Status
	ReviewerID string
	Annotation Annotation
	// KeepReview leaves reviewer and annotation columns untouched.
	KeepReview bool
}

// Plan validates action against the current activity and computes the resulting fields.
// It never mutates a.
func Plan(a Activity, action Action, actorID, note string) (Transition, error) {
	to, err := Machine.Next(a.Status, action)
	if err != nil {
		return Transition{}, err
	}
	t := Transition{Action: action, From: a.Status, To: to}

	note = strings.TrimSpace(note)
	if kind, ok := reviewActions[action]; ok {
		switch action {
		case ActionApproveWithCondition:
			if note == "" {
				return Transition{}, apperr.Validation("condition note is required")
			}
		case ActionRequestEdit:
			if note == "" {
				return Transition{}, apperr.Validation("edit feedback is required")
			}
		case ActionReject:
			if note == "" {
				return Transition{}, apperr.Validation("rejection reason is required")
			}
		}
		if strings.TrimSpace(actorID) == "" {
			return Transition{}, apperr.Validation("reviewer identity is required")
		}
		t.ReviewerID = actorID
		t.Annotation = Annotation{Kind: kind, Note: note}
		return t, nil
	}

	switch action {
	case ActionSubmit, ActionResubmit, ActionRevise:
		if a.OwnerID != actorID {
			return Transition{}, apperr.Authorization("only the proposer can change a draft")
		}
	}
	t.KeepReview = true
	return t, nil
}

// ValidateWindows enforces end > start and checkInEnd > checkInStart.
func ValidateWindows(d Draft) error {
	if d.StartTime.IsZero() || d.EndTime.IsZero() {
		return apperr.Validation("start_time and end_time are required")
	}
	if !d.EndTime.After(d.StartTime) {
		return apperr.Validation("end_time must be after start_time")
	}
	if (d.CheckInStart == nil) != (d.CheckInEnd == nil) {
		return apperr.Validation("check-in window needs both start and end")
	}
	if d.CheckInStart != nil && !d.CheckInEnd.After(*d.CheckInStart) {
		return apperr.Validation("end_checkin_time must be after start_checkin_time")
	}
	if (d.VenueLat == nil) != (d.VenueLng == nil) {
		return apperr.Validation("venue coordinates need both lat and lng")
	}
	return nil
}

// EvidenceDeadlinePassed reports whether evidence submission is closed at now.
func EvidenceDeadlinePassed(a Activity, now time.Time) bool {
	return a.EvidenceDeadline != nil && now.After(*a.EvidenceDeadline)
}
