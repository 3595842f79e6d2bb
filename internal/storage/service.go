package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/db"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/validate"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrUnavailable = errors.New("evidence storage is not configured")

// Presigner is satisfied by *minio.Client.
type Presigner interface {
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
}

type Options struct {
	Bucket       string
	MaxBytes     int64
	AllowedTypes []string
	Expiry       time.Duration
}

type Service struct {
	db        db.Querier
	presigner Presigner
	opts      Options
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(db db.Querier, presigner Presigner, opts Options, log zerolog.Logger) *Service {
	if opts.Expiry <= 0 {
		opts.Expiry = 15 * time.Minute
	}
	return &Service{db: db, presigner: presigner, opts: opts, log: log, now: time.Now}
}

// ParseTypes splits a comma separated MIME list.
func ParseTypes(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = baseMIME(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// CreateEvidenceUpload checks the declared file and returns a presigned PUT URL for it.
func (s *Service) CreateEvidenceUpload(ctx context.Context, userID string, in UploadRequest) (Upload, error) {
	if err := validate.Struct(ctx, in); err != nil {
		return Upload{}, err
	}
	if s.opts.MaxBytes > 0 && in.SizeBytes > s.opts.MaxBytes {
		return Upload{}, apperr.Validationf("file exceeds %d bytes", s.opts.MaxBytes)
	}
	if !s.allowed(in.ContentType) {
		return Upload{}, apperr.Validationf("file type %s is not allowed", baseMIME(in.ContentType))
	}
	if s.presigner == nil {
		return Upload{}, ErrUnavailable
	}

	id := uuid.NewString()
	key := fmt.Sprintf("evidence/%s/%s-%s", userID, id, sanitizeFilename(in.FileName))
	signed, err := s.presigner.PresignedPutObject(ctx, s.opts.Bucket, key, s.opts.Expiry)
	if err != nil {
		return Upload{}, fmt.Errorf("presign upload: %w", err)
	}
	object := *signed
	object.RawQuery = ""

	now := s.now().UTC()
	_, err = s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, object_key, content_type, size_bytes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, id, userID, key, baseMIME(in.ContentType), in.SizeBytes, now)
	if err != nil {
		return Upload{}, fmt.Errorf("record upload: %w", err)
	}

	s.log.Info().Str("user_id", userID).Str("object_key", key).Msg("evidence upload presigned")
	return Upload{
		ID:        id,
		ObjectKey: key,
		UploadURL: signed.String(),
		ObjectURL: object.String(),
		ExpiresAt: now.Add(s.opts.Expiry),
	}, nil
}

func (s *Service) allowed(contentType string) bool {
	if len(s.opts.AllowedTypes) == 0 {
		return true
	}
	incoming := baseMIME(contentType)
	for _, t := range s.opts.AllowedTypes {
		if baseMIME(t) == incoming {
			return true
		}
	}
	return false
}

func baseMIME(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(mime))
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r < 32 || r == 127, r == '"', r == '\\', r == '/':
			continue
		case r == ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	s := strings.ReplaceAll(b.String(), "..", "")
	if s == "" {
		return "file"
	}
	return s
}
