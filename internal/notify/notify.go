// Package notify dispatches lifecycle notifications to reviewers and participants.
// Dispatch is fire-and-forget from the engine's point of view: Sender logs failures
// and never returns them to the caller.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/stream"

	"github.com/rs/zerolog"
)

// ReviewerPool is the audience shared by every reviewer.
const ReviewerPool = stream.ReviewerAudience

// UserAudience addresses a single proposer or participant.
func UserAudience(userID string) string {
	return stream.UserAudience(userID)
}

type Notification struct {
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	TargetAudience    string    `json:"target_audience"`
	RelatedActivityID string    `json:"related_activity_id"`
	CreatedAt         time.Time `json:"created_at"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Fanout sends to every dispatcher and joins their errors.
type Fanout []Dispatcher

func (f Fanout) Dispatch(ctx context.Context, n Notification) error {
	var errs []error
	for _, d := range f {
		if d == nil {
			continue
		}
		if err := d.Dispatch(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sender wraps a Dispatcher so that failures are logged and swallowed.
type Sender struct {
	d   Dispatcher
	log zerolog.Logger
	now func() time.Time
}

func NewSender(d Dispatcher, log zerolog.Logger) *Sender {
	return &Sender{d: d, log: log, now: time.Now}
}

func (s *Sender) Send(ctx context.Context, n Notification) {
	if s == nil || s.d == nil {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	if err := s.d.Dispatch(ctx, n); err != nil {
		s.log.Warn().Err(err).
			Str("audience", n.TargetAudience).
			Str("activity_id", n.RelatedActivityID).
			Msg("notification dispatch failed")
	}
}
