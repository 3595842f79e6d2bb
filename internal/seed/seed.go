// Package seed creates the accounts a fresh deployment needs.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/auth"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var hashPasswordFn = bcrypt.GenerateFromPassword

// Reviewer inserts a reviewer account unless one with the same email exists.
// Reviewers cannot self-register, so this is the only way to create the first one.
func Reviewer(ctx context.Context, q db.Querier, email, password string, log zerolog.Logger) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}
	hash, err := hashPasswordFn([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash reviewer password: %w", err)
	}
	id := uuid.NewString()
	username, _, _ := strings.Cut(email, "@")
	tag, err := insertReviewer(ctx, q, id, email, username, string(hash))
	if db.IsUniqueViolation(err) {
		// The email conflict is absorbed by the insert, so this is a taken username.
		tag, err = insertReviewer(ctx, q, id, email, username+"-"+id[:8], string(hash))
	}
	if err != nil {
		return false, fmt.Errorf("seed reviewer: %w", err)
	}
	created := tag.RowsAffected() == 1
	if created {
		log.Info().Str("email", email).Msg("reviewer account seeded")
	}
	return created, nil
}

func insertReviewer(ctx context.Context, q db.Querier, id, email, username, hash string) (pgconn.CommandTag, error) {
	return q.Exec(ctx, `
		INSERT INTO users (id, email, username, password_hash, full_name, role)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (email) DO NOTHING
	`, id, email, username, hash, "Reviewer", string(auth.RoleReviewer))
}
