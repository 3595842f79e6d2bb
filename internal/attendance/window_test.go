package attendance

import (
	"errors"
	"testing"
	"time"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/activity"
)

var clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func TestCheckWindowExplicit(t *testing.T) {
	a := activity.Activity{
		StartTime:    clock,
		EndTime:      clock.Add(3 * time.Hour),
		CheckInStart: ptr(clock.Add(30 * time.Minute)),
		CheckInEnd:   ptr(clock.Add(time.Hour)),
	}

	cases := []struct {
		name string
		now  time.Time
		want error
	}{
		{"before start", clock.Add(29 * time.Minute), ErrNotYetOpen},
		{"exactly at start", clock.Add(30 * time.Minute), nil},
		{"inside", clock.Add(45 * time.Minute), nil},
		{"exactly at end", clock.Add(time.Hour), ErrWindowClosed},
		{"after end", clock.Add(2 * time.Hour), ErrWindowClosed},
	}
	for _, tc := range cases {
		if got := CheckWindow(a, tc.now); !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestCheckWindowNeedsBothEdges(t *testing.T) {
	a := activity.Activity{
		StartTime:      clock,
		EndTime:        clock.Add(time.Hour),
		CheckInStart:   ptr(clock.Add(30 * time.Minute)),
		AttendanceTime: ptr(clock),
	}
	if err := CheckWindow(a, clock.Add(10*time.Minute)); err != nil {
		t.Fatalf("a lone check-in start should defer to the activity times, got %v", err)
	}
	if err := CheckWindow(a, clock.Add(time.Hour)); !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("expected window closed at activity end, got %v", err)
	}
}

func TestCheckWindowFallsBackToActivityTimes(t *testing.T) {
	a := activity.Activity{StartTime: clock, EndTime: clock.Add(2 * time.Hour), AttendanceTime: ptr(clock.Add(time.Hour))}

	if err := CheckWindow(a, clock.Add(-time.Minute)); !errors.Is(err, ErrNotYetOpen) {
		t.Fatalf("expected not yet open, got %v", err)
	}
	if err := CheckWindow(a, clock); err != nil {
		t.Fatalf("start should be accepted, got %v", err)
	}
	if err := CheckWindow(a, clock.Add(2*time.Hour)); !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("marker window should expire at activity end, got %v", err)
	}
}

func TestCheckWindowUnrestricted(t *testing.T) {
	a := activity.Activity{StartTime: clock, EndTime: clock.Add(time.Hour)}
	for _, now := range []time.Time{clock.Add(-24 * time.Hour), clock.Add(24 * time.Hour)} {
		if err := CheckWindow(a, now); err != nil {
			t.Fatalf("no window configured should accept %v, got %v", now, err)
		}
	}
}
