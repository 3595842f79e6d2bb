package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/db"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/notify"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/observability"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/validate"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const selectColumns = `id, title, description, location, venue_lat, venue_lng, start_time, end_time,
		       start_checkin_time, end_checkin_time, attendance_time, evidence_deadline, status,
		       max_participants, participant_count, owner_id, COALESCE(reviewer_id,''), annotation_kind,
		       COALESCE(annotation_note,''), COALESCE(source_activity_id,''), version, created_at, updated_at`

var (
	editable  = []Status{StatusDraft, StatusNeedEdit}
	deletable = []Status{StatusDraft, StatusNeedEdit, StatusRejected, StatusCancelled}
)

type Service struct {
	db          db.Querier
	notify      *notify.Sender
	log         zerolog.Logger
	suggestions int
	now         func() time.Time
}

func NewService(db db.Querier, sender *notify.Sender, log zerolog.Logger, suggestions int) *Service {
	return &Service{db: db, notify: sender, log: log, suggestions: suggestions, now: time.Now}
}

// Actor identifies the caller of an operational transition.
type Actor struct {
	ID       string
	Reviewer bool
}

func (s *Service) Get(ctx context.Context, id string) (Activity, error) {
	a, err := scanActivity(s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM activities WHERE id=$1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Activity{}, ErrNotFound
		}
		return Activity{}, fmt.Errorf("load activity: %w", err)
	}
	return a, nil
}

// Propose creates an activity in Draft or Pending after screening for conflicts.
func (s *Service) Propose(ctx context.Context, in ProposeInput) (Activity, error) {
	if err := validate.Struct(ctx, in); err != nil {
		return Activity{}, err
	}
	if in.OwnerID == "" {
		return Activity{}, apperr.Validation("owner is required")
	}
	if err := ValidateWindows(in.Draft); err != nil {
		return Activity{}, err
	}
	status := in.InitialStatus
	if status == "" {
		status = StatusDraft
	}
	if !in.IgnoreConflicts {
		if err := s.screen(ctx, in.Location, in.StartTime, in.EndTime, ""); err != nil {
			return Activity{}, err
		}
	}

	now := s.now().UTC()
	a := fromDraft(in.Draft)
	a.ID = uuid.NewString()
	a.Status = status
	a.OwnerID = in.OwnerID
	a.Annotation = Annotation{Kind: AnnotationNone}
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.insert(ctx, &a); err != nil {
		return Activity{}, err
	}

	s.log.Info().Str("activity_id", a.ID).Str("status", string(a.Status)).Msg("activity proposed")
	if a.Status == StatusPending {
		s.notifyReviewers(ctx, a, "New activity awaiting review")
	}
	return a, nil
}

// CheckConflicts is the dry-run screen: it never writes.
func (s *Service) CheckConflicts(ctx context.Context, q ConflictQuery) (ConflictReport, error) {
	if err := validate.Struct(ctx, q); err != nil {
		return ConflictReport{}, err
	}
	if !q.EndTime.After(q.StartTime) {
		return ConflictReport{}, apperr.Validation("end_time must be after start_time")
	}
	return s.report(ctx, q.Location, q.StartTime, q.EndTime, q.ExcludeID)
}

// Update edits an activity in place. Only the owner may edit, only in Draft or NeedEdit,
// and only against the version they last read.
func (s *Service) Update(ctx context.Context, id, ownerID string, in UpdateInput) (Activity, error) {
	if err := validate.Struct(ctx, in); err != nil {
		return Activity{}, err
	}
	if err := ValidateWindows(in.Draft); err != nil {
		return Activity{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if current.OwnerID != ownerID {
		return Activity{}, ErrNotOwner
	}
	if !current.Status.in(editable) {
		return Activity{}, apperr.IllegalTransition(fmt.Sprintf("activity cannot be edited while %s", current.Status))
	}
	if current.Version != in.Version {
		return Activity{}, ErrStale
	}
	if !in.IgnoreConflicts {
		if err := s.screen(ctx, in.Location, in.StartTime, in.EndTime, id); err != nil {
			return Activity{}, err
		}
	}

	d := in.Draft
	row := s.db.QueryRow(ctx, `
		UPDATE activities
		SET title=$4, description=$5, location=$6, venue_lat=$7, venue_lng=$8, start_time=$9, end_time=$10,
		    start_checkin_time=$11, end_checkin_time=$12, attendance_time=$13, evidence_deadline=$14,
		    max_participants=$15, version=version+1, updated_at=$16
		WHERE id=$1 AND owner_id=$2 AND version=$3 AND status = ANY($17)
		RETURNING `+selectColumns,
		id, ownerID, in.Version, d.Title, d.Description, d.Location, d.VenueLat, d.VenueLng, d.StartTime, d.EndTime,
		d.CheckInStart, d.CheckInEnd, d.AttendanceTime, d.EvidenceDeadline, d.MaxParticipants, s.now().UTC(), statusStrings(editable))
	updated, err := scanActivity(row)
	if err != nil {
		if db.IsNoRows(err) {
			return Activity{}, ErrStale
		}
		return Activity{}, fmt.Errorf("update activity: %w", err)
	}
	return updated, nil
}

type CloneInput struct {
	StartTime       time.Time `json:"start_time" validate:"required"`
	EndTime         time.Time `json:"end_time" validate:"required"`
	IgnoreConflicts bool      `json:"ignore_conflicts"`
}

// Clone copies sourceID into a new Draft owned by ownerID, shifting every
// time field by the same offset as the new start.
func (s *Service) Clone(ctx context.Context, sourceID, ownerID string, in CloneInput) (Activity, error) {
	if err := validate.Struct(ctx, in); err != nil {
		return Activity{}, err
	}
	src, err := s.Get(ctx, sourceID)
	if err != nil {
		return Activity{}, err
	}
	offset := in.StartTime.Sub(src.StartTime)
	d := Draft{
		Title:            src.Title,
		Description:      src.Description,
		Location:         src.Location,
		VenueLat:         src.VenueLat,
		VenueLng:         src.VenueLng,
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		CheckInStart:     shift(src.CheckInStart, offset),
		CheckInEnd:       shift(src.CheckInEnd, offset),
		AttendanceTime:   shift(src.AttendanceTime, offset),
		EvidenceDeadline: shift(src.EvidenceDeadline, offset),
		MaxParticipants:  src.MaxParticipants,
	}
	if err := ValidateWindows(d); err != nil {
		return Activity{}, err
	}
	if !in.IgnoreConflicts {
		if err := s.screen(ctx, d.Location, d.StartTime, d.EndTime, ""); err != nil {
			return Activity{}, err
		}
	}

	now := s.now().UTC()
	a := fromDraft(d)
	a.ID = uuid.NewString()
	a.Status = StatusDraft
	a.OwnerID = ownerID
	a.Annotation = Annotation{Kind: AnnotationNone}
	a.SourceActivityID = src.ID
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.insert(ctx, &a); err != nil {
		return Activity{}, err
	}
	return a, nil
}

// Delete removes an activity together with its registrations, attendance and token.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.OwnerID != ownerID {
		return ErrNotOwner
	}
	if !a.Status.in(deletable) {
		return apperr.IllegalTransition(fmt.Sprintf("activity cannot be deleted while %s", a.Status))
	}
	return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM attendance WHERE activity_id=$1`, id); err != nil {
			return fmt.Errorf("delete attendance: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM verification_tokens WHERE activity_id=$1`, id); err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM registrations WHERE activity_id=$1`, id); err != nil {
			return fmt.Errorf("delete registrations: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM activities WHERE id=$1 AND status = ANY($2)`, id, statusStrings(deletable))
		if err != nil {
			return fmt.Errorf("delete activity: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrStale
		}
		return nil
	})
}

// Submit moves a Draft to Pending.
func (s *Service) Submit(ctx context.Context, id, ownerID string) (Activity, error) {
	a, err := s.transition(ctx, id, ActionSubmit, ownerID, "")
	if err != nil {
		return Activity{}, err
	}
	s.notifyReviewers(ctx, a, "Activity submitted for review")
	return a, nil
}

// Revise returns a NeedEdit activity to Draft, or straight to Pending when resubmit is set.
func (s *Service) Revise(ctx context.Context, id, ownerID string, resubmit bool) (Activity, error) {
	action := ActionRevise
	if resubmit {
		action = ActionResubmit
	}
	a, err := s.transition(ctx, id, action, ownerID, "")
	if err != nil {
		return Activity{}, err
	}
	if resubmit {
		s.notifyReviewers(ctx, a, "Revised activity resubmitted for review")
	}
	return a, nil
}

func (s *Service) ReviewApprove(ctx context.Context, id, reviewerID, note string) (Activity, error) {
	return s.review(ctx, id, ActionApprove, reviewerID, note)
}

func (s *Service) ReviewApproveWithCondition(ctx context.Context, id, reviewerID, condition string) (Activity, error) {
	return s.review(ctx, id, ActionApproveWithCondition, reviewerID, condition)
}

func (s *Service) ReviewNeedEdit(ctx context.Context, id, reviewerID, feedback string) (Activity, error) {
	return s.review(ctx, id, ActionRequestEdit, reviewerID, feedback)
}

func (s *Service) ReviewReject(ctx context.Context, id, reviewerID, reason string) (Activity, error) {
	return s.review(ctx, id, ActionReject, reviewerID, reason)
}

// Advance applies an operational transition (open, complete, cancel).
// Reviewers may advance any activity; owners only their own.
func (s *Service) Advance(ctx context.Context, id string, actor Actor, action Action) (Activity, error) {
	switch action {
	case ActionOpen, ActionComplete, ActionCancel:
	default:
		return Activity{}, apperr.Validationf("unsupported action %q", action)
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if !actor.Reviewer && a.OwnerID != actor.ID {
		return Activity{}, ErrNotOwner
	}
	t, err := Plan(a, action, actor.ID, "")
	if err != nil {
		return Activity{}, err
	}
	updated, err := s.apply(ctx, a, t)
	if err != nil {
		return Activity{}, err
	}
	if action == ActionCancel {
		s.notify.Send(ctx, notify.Notification{
			Title:             "Activity cancelled",
			Message:           fmt.Sprintf("%q has been cancelled", updated.Title),
			TargetAudience:    notify.UserAudience(updated.OwnerID),
			RelatedActivityID: updated.ID,
		})
	}
	return updated, nil
}

func (s *Service) review(ctx context.Context, id string, action Action, reviewerID, note string) (Activity, error) {
	a, err := s.transition(ctx, id, action, reviewerID, note)
	if err != nil {
		return Activity{}, err
	}
	s.notify.Send(ctx, notify.Notification{
		Title:             reviewTitle(action),
		Message:           reviewMessage(a),
		TargetAudience:    notify.UserAudience(a.OwnerID),
		RelatedActivityID: a.ID,
	})
	return a, nil
}

func (s *Service) transition(ctx context.Context, id string, action Action, actorID, note string) (Activity, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	t, err := Plan(a, action, actorID, note)
	if err != nil {
		return Activity{}, err
	}
	return s.apply(ctx, a, t)
}

// apply persists t with a single conditional update guarded by the action's legal source states.
func (s *Service) apply(ctx context.Context, a Activity, t Transition) (Activity, error) {
	sources := statusStrings(Machine.Sources(t.Action))
	now := s.now().UTC()

	var row pgx.Row
	if t.KeepReview {
		row = s.db.QueryRow(ctx, `
			UPDATE activities
			SET status=$2, version=version+1, updated_at=$3
			WHERE id=$1 AND status = ANY($4)
			RETURNING `+selectColumns,
			a.ID, string(t.To), now, sources)
	} else {
		row = s.db.QueryRow(ctx, `
			UPDATE activities
			SET status=$2, reviewer_id=$3, annotation_kind=$4, annotation_note=$5, version=version+1, updated_at=$6
			WHERE id=$1 AND status = ANY($7)
			RETURNING `+selectColumns,
			a.ID, string(t.To), t.ReviewerID, string(t.Annotation.Kind), t.Annotation.Note, now, sources)
	}
	updated, err := scanActivity(row)
	if err != nil {
		if db.IsNoRows(err) {
			return Activity{}, ErrStale
		}
		return Activity{}, fmt.Errorf("apply %s: %w", t.Action, err)
	}

	observability.RecordActivityTransition(string(t.Action), string(t.To))
	s.log.Info().
		Str("activity_id", a.ID).
		Str("action", string(t.Action)).
		Str("from", string(t.From)).
		Str("to", string(t.To)).
		Msg("activity transition")
	return updated, nil
}

func (s *Service) screen(ctx context.Context, location string, start, end time.Time, excludeID string) error {
	report, err := s.report(ctx, location, start, end, excludeID)
	if err != nil {
		return err
	}
	if report.HasConflicts() {
		return &ConflictError{Report: report}
	}
	return nil
}

func (s *Service) report(ctx context.Context, location string, start, end time.Time, excludeID string) (ConflictReport, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+selectColumns+`
		FROM activities
		WHERE lower(trim(location)) = lower(trim($1))
		  AND status NOT IN ('cancelled', 'rejected')
		  AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`, location, start, end)
	if err != nil {
		return ConflictReport{}, fmt.Errorf("load schedule: %w", err)
	}
	defer rows.Close()

	var existing []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return ConflictReport{}, fmt.Errorf("scan schedule: %w", err)
		}
		existing = append(existing, a)
	}
	if err := rows.Err(); err != nil {
		return ConflictReport{}, fmt.Errorf("load schedule: %w", err)
	}

	report := Screen(location, start, end, excludeID, existing, s.suggestions)
	if report.HasConflicts() {
		observability.RecordScheduleConflict()
	}
	return report, nil
}

func (s *Service) insert(ctx context.Context, a *Activity) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO activities (id, title, description, location, venue_lat, venue_lng, start_time, end_time,
		                        start_checkin_time, end_checkin_time, attendance_time, evidence_deadline, status,
		                        max_participants, owner_id, annotation_kind, source_activity_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		RETURNING version
	`, a.ID, a.Title, a.Description, a.Location, a.VenueLat, a.VenueLng, a.StartTime, a.EndTime,
		a.CheckInStart, a.CheckInEnd, a.AttendanceTime, a.EvidenceDeadline, string(a.Status),
		a.MaxParticipants, a.OwnerID, string(a.Annotation.Kind), nullString(a.SourceActivityID), a.CreatedAt, a.UpdatedAt)
	if err := row.Scan(&a.Version); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *Service) notifyReviewers(ctx context.Context, a Activity, title string) {
	s.notify.Send(ctx, notify.Notification{
		Title:             title,
		Message:           fmt.Sprintf("%q at %s on %s", a.Title, a.Location, a.StartTime.Format(time.RFC3339)),
		TargetAudience:    notify.ReviewerPool,
		RelatedActivityID: a.ID,
	})
}

func reviewTitle(action Action) string {
	switch action {
	case ActionApprove:
		return "Activity approved"
	case ActionApproveWithCondition:
		return "Activity approved with conditions"
	case ActionRequestEdit:
		return "Changes requested"
	default:
		return "Activity rejected"
	}
}

func reviewMessage(a Activity) string {
	if a.Annotation.Note == "" {
		return fmt.Sprintf("%q is now %s", a.Title, a.Status)
	}
	return fmt.Sprintf("%q is now %s: %s", a.Title, a.Status, a.Annotation.Note)
}

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Location, &a.VenueLat, &a.VenueLng, &a.StartTime, &a.EndTime,
		&a.CheckInStart, &a.CheckInEnd, &a.AttendanceTime, &a.EvidenceDeadline, &a.Status,
		&a.MaxParticipants, &a.ParticipantCount, &a.OwnerID, &a.ReviewerID, &a.Annotation.Kind,
		&a.Annotation.Note, &a.SourceActivityID, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func fromDraft(d Draft) Activity {
	return Activity{
		Title:            d.Title,
		Description:      d.Description,
		Location:         d.Location,
		VenueLat:         d.VenueLat,
		VenueLng:         d.VenueLng,
		StartTime:        d.StartTime,
		EndTime:          d.EndTime,
		CheckInStart:     d.CheckInStart,
		CheckInEnd:       d.CheckInEnd,
		AttendanceTime:   d.AttendanceTime,
		EvidenceDeadline: d.EvidenceDeadline,
		MaxParticipants:  d.MaxParticipants,
	}
}

func (s Status) in(set []Status) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func statusStrings(set []Status) []string {
	out := make([]string, len(set))
	for i, v := range set {
		out[i] = string(v)
	}
	return out
}

func shift(t *time.Time, d time.Duration) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Add(d)
	return &v
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
