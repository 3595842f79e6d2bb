package activity

import (
	"fmt"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrNotFound = apperr.NotFound("activity not found")
	ErrNotOwner = apperr.Authorization("not your activity")
	// ErrStale is returned when an edit or transition lost a race with another writer.
	ErrStale = apperr.IllegalTransition("activity was modified concurrently")
)

// ConflictError reports a scheduling overlap and advisory alternative slots.
// Callers may resubmit with ignore_conflicts to accept the overlap.
type ConflictError struct {
	Report ConflictReport
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schedule conflict with %d activit%s", len(e.Report.Conflicts), plural(len(e.Report.Conflicts)))
}

func (e *ConflictError) ErrKind() apperr.Kind { return apperr.KindConflict }

func (e *ConflictError) Details() fiber.Map {
	return fiber.Map{"conflicts": e.Report.Conflicts, "suggestions": e.Report.Suggestions}
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
