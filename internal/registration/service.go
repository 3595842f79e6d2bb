package registration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/activity"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/db"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/notify"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/observability"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const selectColumns = `id, activity_id, participant_id, status, reviewer_note, evidence_url, evidence_note,
		       evidence_submitted_at, registered_at, updated_at`

// ActivityLookup resolves the activity a registration belongs to.
type ActivityLookup interface {
	Get(ctx context.Context, id string) (activity.Activity, error)
}

type Service struct {
	db         db.Querier
	activities ActivityLookup
	notify     *notify.Sender
	log        zerolog.Logger
	now        func() time.Time
}

func NewService(db db.Querier, activities ActivityLookup, sender *notify.Sender, log zerolog.Logger) *Service {
	return &Service{db: db, activities: activities, notify: sender, log: log, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id string) (Registration, error) {
	r, err := scanRegistration(s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM registrations WHERE id=$1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Registration{}, ErrNotFound
		}
		return Registration{}, fmt.Errorf("load registration: %w", err)
	}
	return r, nil
}

// WithActivity loads a registration together with its activity.
func (s *Service) WithActivity(ctx context.Context, id string) (Registration, activity.Activity, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return Registration{}, activity.Activity{}, err
	}
	a, err := s.activities.Get(ctx, r.ActivityID)
	if err != nil {
		return Registration{}, activity.Activity{}, err
	}
	return r, a, nil
}

// Enroll creates a pending registration and bumps the activity's participant counter
// in one transaction. Capacity and status are re-checked by the counter update itself.
func (s *Service) Enroll(ctx context.Context, activityID, participantID string) (Registration, error) {
	if strings.TrimSpace(participantID) == "" {
		return Registration{}, apperr.Validation("participant is required")
	}
	a, err := s.activities.Get(ctx, activityID)
	if err != nil {
		return Registration{}, err
	}
	if !a.Status.ParticipantFacing() {
		return Registration{}, ErrNotEnrollable
	}
	if a.MaxParticipants > 0 && a.ParticipantCount >= a.MaxParticipants {
		return Registration{}, ErrActivityFull
	}

	r := Registration{
		ID:            uuid.NewString(),
		ActivityID:    activityID,
		ParticipantID: participantID,
		Status:        StatusPending,
	}
	now := s.now().UTC()
	err = db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO registrations (id, activity_id, participant_id, status, registered_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$5)
			ON CONFLICT (activity_id, participant_id) DO NOTHING
			RETURNING registered_at, updated_at
		`, r.ID, r.ActivityID, r.ParticipantID, string(r.Status), now)
		if err := row.Scan(&r.RegisteredAt, &r.UpdatedAt); err != nil {
			if db.IsNoRows(err) || db.IsUniqueViolation(err) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("insert registration: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE activities
			SET participant_count = participant_count + 1
			WHERE id=$1 AND status = ANY($2)
			  AND (max_participants = 0 OR participant_count < max_participants)
		`, activityID, enrollable())
		if err != nil {
			return fmt.Errorf("bump participant count: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return s.enrollRefusal(ctx, tx, activityID)
		}
		return nil
	})
	if err != nil {
		return Registration{}, err
	}

	s.log.Info().Str("activity_id", activityID).Str("participant_id", participantID).Msg("participant enrolled")
	s.notify.Send(ctx, notify.Notification{
		Title:             "New registration",
		Message:           fmt.Sprintf("A participant registered for %q", a.Title),
		TargetAudience:    notify.UserAudience(a.OwnerID),
		RelatedActivityID: a.ID,
	})
	return r, nil
}

// enrollRefusal explains why the guarded counter update matched no row.
func (s *Service) enrollRefusal(ctx context.Context, tx pgx.Tx, activityID string) error {
	var (
		status           activity.Status
		capacity, filled int
	)
	err := tx.QueryRow(ctx, `SELECT status, max_participants, participant_count FROM activities WHERE id=$1`, activityID).
		Scan(&status, &capacity, &filled)
	if err != nil {
		if db.IsNoRows(err) {
			return activity.ErrNotFound
		}
		return fmt.Errorf("reload activity: %w", err)
	}
	if !status.ParticipantFacing() {
		return ErrNotEnrollable
	}
	return ErrActivityFull
}

// Approve is idempotent: approving an approved registration returns it unchanged.
func (s *Service) Approve(ctx context.Context, id, ownerID string) (Registration, error) {
	r, a, err := s.ownedBy(ctx, id, ownerID)
	if err != nil {
		return Registration{}, err
	}
	if r.Status == StatusApproved {
		return r, nil
	}
	updated, err := s.transition(ctx, r, ActionApprove, `status=$2, updated_at=$3`, "", s.now().UTC())
	if err != nil {
		return Registration{}, err
	}
	s.notifyParticipant(ctx, updated, a, "Registration approved", fmt.Sprintf("You are registered for %q", a.Title))
	return updated, nil
}

// Reject is idempotent on an already rejected registration. A reason is required.
func (s *Service) Reject(ctx context.Context, id, ownerID, reason string) (Registration, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Registration{}, apperr.Validation("rejection reason is required")
	}
	r, a, err := s.ownedBy(ctx, id, ownerID)
	if err != nil {
		return Registration{}, err
	}
	if r.Status == StatusRejected {
		return r, nil
	}
	updated, err := s.transition(ctx, r, ActionReject, `status=$2, updated_at=$3, reviewer_note=$5`, "", s.now().UTC(), reason)
	if err != nil {
		return Registration{}, err
	}
	s.notifyParticipant(ctx, updated, a, "Registration rejected", reason)
	return updated, nil
}

func (s *Service) ownedBy(ctx context.Context, id, ownerID string) (Registration, activity.Activity, error) {
	r, a, err := s.WithActivity(ctx, id)
	if err != nil {
		return Registration{}, activity.Activity{}, err
	}
	if a.OwnerID != ownerID {
		return Registration{}, activity.Activity{}, ErrNotActivityOwner
	}
	return r, a, nil
}

// transition applies action with a conditional update. set may reference $2 (new status),
// $3 (timestamp) and $5 onward (extra); guard, when set, further restricts the WHERE clause.
func (s *Service) transition(ctx context.Context, r Registration, action Action, set, guard string, now time.Time, extra ...any) (Registration, error) {
	to, err := Machine.Next(r.Status, action)
	if err != nil {
		return Registration{}, err
	}
	where := `id=$1 AND status = ANY($4)`
	if guard != "" {
		where += ` AND ` + guard
	}
	args := append([]any{r.ID, string(to), now, Sources(action)}, extra...)
	row := s.db.QueryRow(ctx, `
		UPDATE registrations
		SET `+set+`
		WHERE `+where+`
		RETURNING `+selectColumns, args...)
	updated, err := scanRegistration(row)
	if err != nil {
		if db.IsNoRows(err) {
			return Registration{}, ErrStale
		}
		return Registration{}, fmt.Errorf("apply %s: %w", action, err)
	}

	observability.RecordRegistrationTransition(string(action), string(to))
	s.log.Info().
		Str("registration_id", r.ID).
		Str("action", string(action)).
		Str("from", string(r.Status)).
		Str("to", string(to)).
		Msg("registration transition")
	return updated, nil
}

func (s *Service) notifyParticipant(ctx context.Context, r Registration, a activity.Activity, title, message string) {
	s.notify.Send(ctx, notify.Notification{
		Title:             title,
		Message:           message,
		TargetAudience:    notify.UserAudience(r.ParticipantID),
		RelatedActivityID: a.ID,
	})
}

func enrollable() []string {
	out := make([]string, len(activity.ParticipantFacingStatuses))
	for i, s := range activity.ParticipantFacingStatuses {
		out[i] = string(s)
	}
	return out
}

func scanRegistration(row pgx.Row) (Registration, error) {
	var r Registration
	err := row.Scan(&r.ID, &r.ActivityID, &r.ParticipantID, &r.Status, &r.ReviewerNote, &r.EvidenceURL,
		&r.EvidenceNote, &r.EvidenceSubmittedAt, &r.RegisteredAt, &r.UpdatedAt)
	return r, err
}
