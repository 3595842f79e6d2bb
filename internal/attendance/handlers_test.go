package attendance

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/auth"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/ratelimit"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pashagolub/pgxmock/v3"
)

const testSecret = "test-secret"

func bearer(t *testing.T, userID string, role auth.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + signed
}

func newTestApp(svc *Service, limiter fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler})
	RegisterRoutes(app, svc, auth.JWTMiddleware(testSecret), limiter)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, authz string, body any) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authz)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp
}

func TestTokenCheckInRoute(t *testing.T) {
	svc, mock := newTestService(t, fakeActivities{"act-1": openActivity()}, nil)
	app := newTestApp(svc, ratelimit.Middleware(0, 0, nil))

	expired := clock.Add(5 * time.Minute)
	mock.ExpectQuery(`FROM verification_tokens WHERE activity_id=\$1`).WithArgs("act-1").
		WillReturnRows(tokenRows(VerificationToken{ActivityID: "act-1", Value: "s3cret", ExpiresAt: &expired, Active: true, CreatedBy: "owner", CreatedAt: clock}))

	resp := postJSON(t, app, "/attendance/act-1/token", bearer(t, "student", auth.RoleStudent), TokenInput{Token: "s3cret"})
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("expected gone for expired token, got %d", resp.StatusCode)
	}
	var payload map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload["kind"] != "expired_or_invalid_token" {
		t.Fatalf("unexpected payload %v", payload)
	}

	mock.ExpectQuery(`FROM verification_tokens WHERE activity_id=\$1`).WithArgs("act-1").
		WillReturnRows(tokenRows(VerificationToken{ActivityID: "act-1", Value: "s3cret", Active: true, CreatedBy: "owner", CreatedAt: clock}))
	expectCheckIn(mock, "student", MethodToken, "s3cret")

	resp = postJSON(t, app, "/attendance/act-1/token", bearer(t, "student", auth.RoleStudent), TokenInput{Token: "s3cret"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected created, got %d", resp.StatusCode)
	}
	var rec Attendance
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil || rec.ParticipantID != "student" {
		t.Fatalf("unexpected record %+v %v", rec, err)
	}
}

func TestCheckInRoutesAreRateLimited(t *testing.T) {
	svc, _ := newTestService(t, fakeActivities{"act-1": openActivity()}, nil)
	app := newTestApp(svc, ratelimit.Middleware(0.001, 1, auth.CallerID))

	// Window is closed, so the first call fails fast without touching the database.
	svc.now = func() time.Time { return clock.Add(2 * time.Hour) }
	lat, lng := 16.0544, 108.2022
	first := postJSON(t, app, "/attendance/act-1/location", bearer(t, "student", auth.RoleStudent), LocationInput{Lat: &lat, Lng: &lng})
	if first.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected window closed, got %d", first.StatusCode)
	}
	second := postJSON(t, app, "/attendance/act-1/location", bearer(t, "student", auth.RoleStudent), LocationInput{Lat: &lat, Lng: &lng})
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected rate limit, got %d", second.StatusCode)
	}
}

func TestIssueTokenRoute(t *testing.T) {
	svc, mock := newTestService(t, fakeActivities{"act-1": openActivity()}, nil)
	app := newTestApp(svc, ratelimit.Middleware(0, 0, nil))

	resp := postJSON(t, app, "/attendance/act-1/tokens", bearer(t, "student", auth.RoleStudent), IssueTokenInput{})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden, got %d", resp.StatusCode)
	}

	mock.ExpectExec(`INSERT INTO verification_tokens`).
		WithArgs("act-1", pgxmock.AnyArg(), pgxmock.AnyArg(), "owner", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	resp = postJSON(t, app, "/attendance/act-1/tokens", bearer(t, "owner", auth.RoleOrganizer), IssueTokenInput{ExpiresInSeconds: 60})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected created, got %d", resp.StatusCode)
	}
	var tok VerificationToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil || tok.Value == "" || !tok.Active {
		t.Fatalf("unexpected token %+v %v", tok, err)
	}
}
