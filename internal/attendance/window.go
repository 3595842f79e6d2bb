package attendance

import (
	"time"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/activity"
)

// CheckWindow reports whether now falls inside the check-in window of a.
// An explicit window applies only when both edges are set and is half open,
// [start, end). Without one, an attendance marker limits check-in to the
// activity's own [start, end). Otherwise any time is accepted.
func CheckWindow(a activity.Activity, now time.Time) error {
	switch {
	case a.CheckInStart != nil && a.CheckInEnd != nil:
		return within(now, *a.CheckInStart, *a.CheckInEnd)
	case a.AttendanceTime != nil:
		return within(now, a.StartTime, a.EndTime)
	}
	return nil
}

func within(now, start, end time.Time) error {
	if now.Before(start) {
		return ErrNotYetOpen
	}
	if !now.Before(end) {
		return ErrWindowClosed
	}
	return nil
}
