package registration

import (
	"context"
	"fmt"
	"strings"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/db"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/notify"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/validate"
)

func validateEvidence(ctx context.Context, in EvidenceInput) error {
	if err := validate.Struct(ctx, in); err != nil {
		return err
	}
	if in.URL == "" && in.Note == "" {
		return apperr.Validation("evidence url or note is required")
	}
	return nil
}

// SubmitEvidence records a link and/or note on a checked-in registration.
// Status stays checked_in until the owner reviews it.
func (s *Service) SubmitEvidence(ctx context.Context, id, participantID string, in EvidenceInput) (Registration, error) {
	in.URL = strings.TrimSpace(in.URL)
	in.Note = strings.TrimSpace(in.Note)
	if err := validateEvidence(ctx, in); err != nil {
		return Registration{}, err
	}
	r, a, err := s.WithActivity(ctx, id)
	if err != nil {
		return Registration{}, err
	}
	if r.ParticipantID != participantID {
		return Registration{}, ErrNotParticipant
	}
	if r.Status != StatusCheckedIn {
		return Registration{}, apperr.IllegalTransition(fmt.Sprintf("evidence cannot be submitted while %s", r.Status))
	}

	now := s.now().UTC()
	row := s.db.QueryRow(ctx, `
		UPDATE registrations
		SET evidence_url=$3, evidence_note=$4, evidence_submitted_at=$5, updated_at=$5
		WHERE id=$1 AND participant_id=$2 AND status='checked_in'
		RETURNING `+selectColumns,
		id, participantID, in.URL, in.Note, now)
	updated, err := scanRegistration(row)
	if err != nil {
		if db.IsNoRows(err) {
			return Registration{}, ErrStale
		}
		return Registration{}, fmt.Errorf("submit evidence: %w", err)
	}

	s.notify.Send(ctx, notify.Notification{
		Title:             "Evidence submitted",
		Message:           fmt.Sprintf("New evidence awaits review for %q", a.Title),
		TargetAudience:    notify.UserAudience(a.OwnerID),
		RelatedActivityID: a.ID,
	})
	return updated, nil
}

// ApproveEvidence completes a checked-in registration that has evidence on file.
func (s *Service) ApproveEvidence(ctx context.Context, id, ownerID string) (Registration, error) {
	r, a, err := s.ownedBy(ctx, id, ownerID)
	if err != nil {
		return Registration{}, err
	}
	if _, err := Machine.Next(r.Status, ActionApproveEvidence); err != nil {
		return Registration{}, err
	}
	if !r.HasEvidence() {
		return Registration{}, apperr.Validation("no evidence to approve")
	}
	updated, err := s.transition(ctx, r, ActionApproveEvidence,
		`status=$2, updated_at=$3`, `(evidence_url <> '' OR evidence_note <> '')`, s.now().UTC())
	if err != nil {
		return Registration{}, err
	}
	s.notifyParticipant(ctx, updated, a, "Evidence approved", fmt.Sprintf("Your participation in %q is complete", a.Title))
	return updated, nil
}

// RejectEvidence clears both evidence fields and returns the registration to checked_in.
func (s *Service) RejectEvidence(ctx context.Context, id, ownerID, reason string) (Registration, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Registration{}, apperr.Validation("rejection reason is required")
	}
	r, a, err := s.ownedBy(ctx, id, ownerID)
	if err != nil {
		return Registration{}, err
	}
	updated, err := s.transition(ctx, r, ActionRejectEvidence,
		`status=$2, updated_at=$3, reviewer_note=$5, evidence_url='', evidence_note='', evidence_submitted_at=NULL`, "",
		s.now().UTC(), reason)
	if err != nil {
		return Registration{}, err
	}
	s.notifyParticipant(ctx, updated, a, "Evidence rejected", reason)
	return updated, nil
}
