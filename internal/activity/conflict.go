package activity

import (
	"strings"
	"time"
)

// Overlaps reports whether [s1,e1) and [s2,e2) intersect. Touching windows do not.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// SameLocation compares free-text locations ignoring case and surrounding space.
func SameLocation(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// blocksSchedule reports whether an activity in status s still occupies its slot.
func blocksSchedule(s Status) bool {
	return s != StatusCancelled && s != StatusRejected
}

// DetectConflicts scans existing for activities at location overlapping [start,end),
// skipping excludeID and any cancelled or rejected activity.
func DetectConflicts(location string, start, end time.Time, excludeID string, existing []Activity) []Conflict {
	var out []Conflict
	for _, a := range existing {
		if excludeID != "" && a.ID == excludeID {
			continue
		}
		if !blocksSchedule(a.Status) || !SameLocation(a.Location, location) {
			continue
		}
		if !Overlaps(start, end, a.StartTime, a.EndTime) {
			continue
		}
		out = append(out, Conflict{
			ID:        a.ID,
			Title:     a.Title,
			Location:  a.Location,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
			Status:    a.Status,
		})
	}
	return out
}

// SuggestSlots proposes n back-to-back windows of the candidate's duration starting at
// the latest end among conflicts. Slot i starts at end + i*duration.
func SuggestSlots(conflicts []Conflict, start, end time.Time, n int) []Slot {
	if len(conflicts) == 0 || n <= 0 {
		return nil
	}
	duration := end.Sub(start)
	if duration <= 0 {
		return nil
	}
	anchor := conflicts[0].EndTime
	for _, c := range conflicts[1:] {
		if c.EndTime.After(anchor) {
			anchor = c.EndTime
		}
	}
	slots := make([]Slot, 0, n)
	for i := 0; i < n; i++ {
		s := anchor.Add(time.Duration(i) * duration)
		slots = append(slots, Slot{StartTime: s, EndTime: s.Add(duration)})
	}
	return slots
}

// Screen runs detection and suggestion together.
func Screen(location string, start, end time.Time, excludeID string, existing []Activity, suggestions int) ConflictReport {
	conflicts := DetectConflicts(location, start, end, excludeID, existing)
	return ConflictReport{
		Conflicts:   conflicts,
		Suggestions: SuggestSlots(conflicts, start, end, suggestions),
	}
}
