package attendance

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/activity"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/db"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/observability"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/registration"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/geo"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/validate"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var tokenValueFn = newTokenValue

type ActivityLookup interface {
	Get(ctx context.Context, id string) (activity.Activity, error)
}

type Service struct {
	db         db.Querier
	activities ActivityLookup
	cache      *TokenCache
	log        zerolog.Logger
	geofenceM  float64
	now        func() time.Time
}

// NewService builds the attendance verifier. A geofenceM of 0 disables the distance check.
func NewService(db db.Querier, activities ActivityLookup, cache *TokenCache, log zerolog.Logger, geofenceM float64) *Service {
	return &Service{db: db, activities: activities, cache: cache, log: log, geofenceM: geofenceM, now: time.Now}
}

func (s *Service) CheckInByLocation(ctx context.Context, activityID, participantID string, in LocationInput) (rec Attendance, err error) {
	defer func() { observe(MethodGeolocation, err) }()

	if err := validate.Struct(ctx, in); err != nil {
		return Attendance{}, err
	}
	now := s.now().UTC()
	a, err := s.checkInable(ctx, activityID, now)
	if err != nil {
		return Attendance{}, err
	}
	if s.geofenceM > 0 && a.VenueLat != nil && a.VenueLng != nil &&
		!geo.WithinRadius(*a.VenueLat, *a.VenueLng, *in.Lat, *in.Lng, s.geofenceM) {
		return Attendance{}, ErrOutsideGeofence
	}
	return s.record(ctx, Attendance{
		ActivityID:    a.ID,
		ParticipantID: participantID,
		Method:        MethodGeolocation,
		CheckedInAt:   now,
		Lat:           in.Lat,
		Lng:           in.Lng,
		RecordedBy:    participantID,
	})
}

func (s *Service) CheckInByToken(ctx context.Context, activityID, participantID string, in TokenInput) (rec Attendance, err error) {
	defer func() { observe(MethodToken, err) }()

	if err := validate.Struct(ctx, in); err != nil {
		return Attendance{}, err
	}
	now := s.now().UTC()
	a, err := s.checkInable(ctx, activityID, now)
	if err != nil {
		return Attendance{}, err
	}
	presented := strings.TrimSpace(in.Token)
	tok, cached, err := s.currentToken(ctx, a.ID)
	if err != nil {
		return Attendance{}, err
	}
	err = verifyToken(tok, presented, now)
	if err != nil && cached {
		// A cached token may predate a reissue; Postgres decides before refusing.
		if tok, err = s.loadToken(ctx, a.ID); err != nil {
			return Attendance{}, err
		}
		if err := s.cache.Put(ctx, tok, now); err != nil {
			s.log.Warn().Err(err).Str("activity_id", a.ID).Msg("token cache write failed")
		}
		err = verifyToken(tok, presented, now)
	}
	if err != nil {
		return Attendance{}, err
	}
	return s.record(ctx, Attendance{
		ActivityID:    a.ID,
		ParticipantID: participantID,
		Method:        MethodToken,
		CheckedInAt:   now,
		Note:          tok.Value,
		RecordedBy:    participantID,
	})
}

// CheckInManual lets the owner record attendance for a participant. The check-in
// window does not apply.
func (s *Service) CheckInManual(ctx context.Context, activityID, ownerID string, in ManualInput) (rec Attendance, err error) {
	defer func() { observe(MethodManual, err) }()

	if err := validate.Struct(ctx, in); err != nil {
		return Attendance{}, err
	}
	a, err := s.owned(ctx, activityID, ownerID)
	if err != nil {
		return Attendance{}, err
	}
	if !a.Status.ParticipantFacing() {
		return Attendance{}, ErrNotCheckInable
	}
	return s.record(ctx, Attendance{
		ActivityID:    a.ID,
		ParticipantID: strings.TrimSpace(in.ParticipantID),
		Method:        MethodManual,
		CheckedInAt:   s.now().UTC(),
		Note:          strings.TrimSpace(in.Note),
		RecordedBy:    ownerID,
	})
}

// verifyToken checks expiry before the active flag so an expired token is
// always reported as expired.
func verifyToken(tok VerificationToken, presented string, now time.Time) error {
	if tok.Expired(now) {
		return ErrTokenExpired
	}
	if !tok.Active {
		return ErrTokenInactive
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(tok.Value)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

func (s *Service) checkInable(ctx context.Context, activityID string, now time.Time) (activity.Activity, error) {
	a, err := s.activities.Get(ctx, activityID)
	if err != nil {
		return activity.Activity{}, err
	}
	if !a.Status.ParticipantFacing() {
		return activity.Activity{}, ErrNotCheckInable
	}
	if err := CheckWindow(a, now); err != nil {
		return activity.Activity{}, err
	}
	return a, nil
}

func (s *Service) owned(ctx context.Context, activityID, ownerID string) (activity.Activity, error) {
	a, err := s.activities.Get(ctx, activityID)
	if err != nil {
		return activity.Activity{}, err
	}
	if a.OwnerID != ownerID {
		return activity.Activity{}, ErrNotActivityOwner
	}
	return a, nil
}

// record moves the registration to checked_in and upserts the attendance row in
// one transaction. A repeated check-in overwrites the earlier record.
func (s *Service) record(ctx context.Context, rec Attendance) (Attendance, error) {
	rec.ID = uuid.NewString()
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE registrations
			SET status=$3, updated_at=$4
			WHERE activity_id=$1 AND participant_id=$2 AND status = ANY($5)
		`, rec.ActivityID, rec.ParticipantID, string(registration.StatusCheckedIn), rec.CheckedInAt,
			registration.Sources(registration.ActionCheckIn))
		if err != nil {
			return fmt.Errorf("check in registration: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return refusal(ctx, tx, rec.ActivityID, rec.ParticipantID)
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO attendance (id, activity_id, participant_id, method, checked_in_at, lat, lng, note, recorded_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (activity_id, participant_id) DO UPDATE
			SET method=EXCLUDED.method, checked_in_at=EXCLUDED.checked_in_at, lat=EXCLUDED.lat, lng=EXCLUDED.lng,
			    note=EXCLUDED.note, recorded_by=EXCLUDED.recorded_by
			RETURNING id
		`, rec.ID, rec.ActivityID, rec.ParticipantID, string(rec.Method), rec.CheckedInAt, rec.Lat, rec.Lng, rec.Note, rec.RecordedBy)
		if err := row.Scan(&rec.ID); err != nil {
			return fmt.Errorf("upsert attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return Attendance{}, err
	}

	observability.RecordRegistrationTransition(string(registration.ActionCheckIn), string(registration.StatusCheckedIn))
	s.log.Info().
		Str("activity_id", rec.ActivityID).
		Str("participant_id", rec.ParticipantID).
		Str("method", string(rec.Method)).
		Msg("participant checked in")
	return rec, nil
}

func refusal(ctx context.Context, tx pgx.Tx, activityID, participantID string) error {
	var status registration.Status
	err := tx.QueryRow(ctx, `SELECT status FROM registrations WHERE activity_id=$1 AND participant_id=$2`, activityID, participantID).
		Scan(&status)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrNotRegistered
		}
		return fmt.Errorf("reload registration: %w", err)
	}
	return apperr.IllegalTransition(fmt.Sprintf("cannot check in a %s registration", status))
}

// currentToken reports whether the token came from the cache.
func (s *Service) currentToken(ctx context.Context, activityID string) (VerificationToken, bool, error) {
	tok, ok, err := s.cache.Get(ctx, activityID)
	if err != nil {
		s.log.Warn().Err(err).Str("activity_id", activityID).Msg("token cache read failed")
	}
	if ok {
		return tok, true, nil
	}
	if tok, err = s.loadToken(ctx, activityID); err != nil {
		return VerificationToken{}, false, err
	}
	if err := s.cache.Fill(ctx, tok, s.now()); err != nil {
		s.log.Warn().Err(err).Str("activity_id", activityID).Msg("token cache write failed")
	}
	return tok, false, nil
}

func (s *Service) loadToken(ctx context.Context, activityID string) (VerificationToken, error) {
	var tok VerificationToken
	err := s.db.QueryRow(ctx, `
		SELECT activity_id, value, expires_at, active, created_by, created_at
		FROM verification_tokens WHERE activity_id=$1
	`, activityID).Scan(&tok.ActivityID, &tok.Value, &tok.ExpiresAt, &tok.Active, &tok.CreatedBy, &tok.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return VerificationToken{}, ErrNoToken
		}
		return VerificationToken{}, fmt.Errorf("load verification token: %w", err)
	}
	return tok, nil
}

// IssueVerificationToken replaces the activity's token with a fresh active one.
func (s *Service) IssueVerificationToken(ctx context.Context, activityID, ownerID string, in IssueTokenInput) (VerificationToken, error) {
	if err := validate.Struct(ctx, in); err != nil {
		return VerificationToken{}, err
	}
	a, err := s.owned(ctx, activityID, ownerID)
	if err != nil {
		return VerificationToken{}, err
	}
	if !a.Status.ParticipantFacing() {
		return VerificationToken{}, ErrNotCheckInable
	}
	value, err := tokenValueFn()
	if err != nil {
		return VerificationToken{}, fmt.Errorf("generate token: %w", err)
	}

	now := s.now().UTC()
	tok := VerificationToken{ActivityID: a.ID, Value: value, Active: true, CreatedBy: ownerID, CreatedAt: now}
	if in.ExpiresInSeconds > 0 {
		exp := now.Add(time.Duration(in.ExpiresInSeconds) * time.Second)
		tok.ExpiresAt = &exp
	}
	if err := s.cache.Drop(ctx, a.ID); err != nil {
		return VerificationToken{}, fmt.Errorf("invalidate token cache: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO verification_tokens (activity_id, value, expires_at, active, created_by, created_at)
		VALUES ($1,$2,$3,true,$4,$5)
		ON CONFLICT (activity_id) DO UPDATE
		SET value=EXCLUDED.value, expires_at=EXCLUDED.expires_at, active=true, created_by=EXCLUDED.created_by, created_at=EXCLUDED.created_at
	`, tok.ActivityID, tok.Value, tok.ExpiresAt, tok.CreatedBy, tok.CreatedAt)
	if err != nil {
		return VerificationToken{}, fmt.Errorf("store verification token: %w", err)
	}
	if err := s.cache.Put(ctx, tok, now); err != nil {
		s.log.Warn().Err(err).Str("activity_id", a.ID).Msg("token cache write failed")
	}
	s.log.Info().Str("activity_id", a.ID).Msg("verification token issued")
	return tok, nil
}

// RevokeVerificationToken deactivates the token and caches the inactive row so
// the old value is refused without a Postgres read.
func (s *Service) RevokeVerificationToken(ctx context.Context, activityID, ownerID string) error {
	if _, err := s.owned(ctx, activityID, ownerID); err != nil {
		return err
	}
	if err := s.cache.Drop(ctx, activityID); err != nil {
		return fmt.Errorf("invalidate token cache: %w", err)
	}
	var tok VerificationToken
	err := s.db.QueryRow(ctx, `
		UPDATE verification_tokens SET active=false WHERE activity_id=$1
		RETURNING activity_id, value, expires_at, active, created_by, created_at
	`, activityID).Scan(&tok.ActivityID, &tok.Value, &tok.ExpiresAt, &tok.Active, &tok.CreatedBy, &tok.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrNoToken
		}
		return fmt.Errorf("revoke verification token: %w", err)
	}
	if err := s.cache.Put(ctx, tok, s.now()); err != nil {
		s.log.Warn().Err(err).Str("activity_id", activityID).Msg("token cache write failed")
	}
	s.log.Info().Str("activity_id", activityID).Msg("verification token revoked")
	return nil
}

// List returns the attendance sheet of an activity to its owner.
func (s *Service) List(ctx context.Context, activityID, ownerID string) ([]Attendance, error) {
	if _, err := s.owned(ctx, activityID, ownerID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, activity_id, participant_id, method, checked_in_at, lat, lng, note, recorded_by
		FROM attendance WHERE activity_id=$1 ORDER BY checked_in_at
	`, activityID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	out := []Attendance{}
	for rows.Next() {
		var a Attendance
		if err := rows.Scan(&a.ID, &a.ActivityID, &a.ParticipantID, &a.Method, &a.CheckedInAt, &a.Lat, &a.Lng, &a.Note, &a.RecordedBy); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func observe(method Method, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	observability.RecordCheckIn(string(method), outcome)
}

func newTokenValue() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
