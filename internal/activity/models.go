package activity

import "time"

type Status string

const (
	StatusDraft                 Status = "draft"
	StatusPending               Status = "pending"
	StatusApproved              Status = "approved"
	StatusApprovedWithCondition Status = "approved_with_condition"
	StatusNeedEdit              Status = "need_edit"
	StatusRejected              Status = "rejected"
	StatusOpen                  Status = "open"
	StatusCompleted             Status = "completed"
	StatusCancelled             Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

// ParticipantFacing reports whether participants may enroll.
func (s Status) ParticipantFacing() bool {
	return s == StatusApproved || s == StatusApprovedWithCondition || s == StatusOpen
}

// ParticipantFacingStatuses lists the statuses accepting enrollment.
var ParticipantFacingStatuses = []Status{StatusApproved, StatusApprovedWithCondition, StatusOpen}

type AnnotationKind string

const (
	AnnotationNone        AnnotationKind = "none"
	AnnotationApproval    AnnotationKind = "approval"
	AnnotationCondition   AnnotationKind = "condition"
	AnnotationEditRequest AnnotationKind = "edit_request"
	AnnotationRejection   AnnotationKind = "rejection"
)

// Annotation is the single review note attached to an activity. At most one kind is set.
type Annotation struct {
	Kind AnnotationKind `json:"kind"`
	Note string         `json:"note,omitempty"`
}

func (a Annotation) IsZero() bool {
	return a.Kind == "" || a.Kind == AnnotationNone
}

type Activity struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Location         string     `json:"location"`
	VenueLat         *float64   `json:"venue_lat,omitempty"`
	VenueLng         *float64   `json:"venue_lng,omitempty"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          time.Time  `json:"end_time"`
	CheckInStart     *time.Time `json:"start_checkin_time,omitempty"`
	CheckInEnd       *time.Time `json:"end_checkin_time,omitempty"`
	AttendanceTime   *time.Time `json:"attendance_time,omitempty"`
	EvidenceDeadline *time.Time `json:"evidence_deadline,omitempty"`
	Status           Status     `json:"status"`
	MaxParticipants  int        `json:"max_participants"`
	ParticipantCount int        `json:"participant_count"`
	OwnerID          string     `json:"owner_id"`
	ReviewerID       string     `json:"reviewer_id,omitempty"`
	Annotation       Annotation `json:"annotation"`
	SourceActivityID string     `json:"source_activity_id,omitempty"`
	Version          int        `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Draft carries the proposer-editable fields of an activity.
type Draft struct {
	Title            string     `json:"title" validate:"notblank,max=200"`
	Description      string     `json:"description" validate:"max=5000"`
	Location         string     `json:"location" validate:"notblank,max=200"`
	VenueLat         *float64   `json:"venue_lat" validate:"omitempty,latitude"`
	VenueLng         *float64   `json:"venue_lng" validate:"omitempty,longitude"`
	StartTime        time.Time  `json:"start_time" validate:"required"`
	EndTime          time.Time  `json:"end_time" validate:"required"`
	CheckInStart     *time.Time `json:"start_checkin_time"`
	CheckInEnd       *time.Time `json:"end_checkin_time"`
	AttendanceTime   *time.Time `json:"attendance_time"`
	EvidenceDeadline *time.Time `json:"evidence_deadline"`
	MaxParticipants  int        `json:"max_participants" validate:"gte=0"`
}

type ProposeInput struct {
	Draft
	OwnerID         string `json:"-"`
	InitialStatus   Status `json:"status" validate:"omitempty,oneof=draft pending"`
	IgnoreConflicts bool   `json:"ignore_conflicts"`
}

type UpdateInput struct {
	Draft
	Version         int  `json:"version" validate:"gte=1"`
	IgnoreConflicts bool `json:"ignore_conflicts"`
}

type ConflictQuery struct {
	Location  string    `json:"location" validate:"notblank"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	ExcludeID string    `json:"exclude_id"`
}

// Conflict is the display view of an activity overlapping a candidate window.
type Conflict struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Location  string    `json:"location"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    Status    `json:"status"`
}

// Slot is an advisory alternative window.
type Slot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type ConflictReport struct {
	Conflicts   []Conflict `json:"conflicts"`
	Suggestions []Slot     `json:"suggestions"`
}

func (r ConflictReport) HasConflicts() bool {
	return len(r.Conflicts) > 0
}
