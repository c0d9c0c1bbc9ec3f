package appointments

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SlotError indicates a time-slot label that is not a 12-hour "hh:mm AM/PM"
// clock reading.
type SlotError struct {
	Label string
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("appointments: malformed time slot %q", e.Label)
}

// ParseSlot parses a 12-hour slot label like "09:00 AM" or "2:30 PM" into a
// 24-hour hour and minute. 12 AM maps to hour 0 and any PM hour other than 12
// adds twelve.
func ParseSlot(label string) (hour, minute int, err error) {
	s := strings.ToUpper(strings.TrimSpace(label))
	var meridiem string
	switch {
	case strings.HasSuffix(s, "AM"):
		meridiem = "AM"
	case strings.HasSuffix(s, "PM"):
		meridiem = "PM"
	default:
		return 0, 0, &SlotError{Label: label}
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, meridiem))

	clock := strings.SplitN(s, ":", 2)
	if len(clock) != 2 {
		return 0, 0, &SlotError{Label: label}
	}
	hour, err = strconv.Atoi(strings.TrimSpace(clock[0]))
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, &SlotError{Label: label}
	}
	minute, err = strconv.Atoi(strings.TrimSpace(clock[1]))
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, &SlotError{Label: label}
	}

	if meridiem == "AM" {
		if hour == 12 {
			hour = 0
		}
	} else if hour != 12 {
		hour += 12
	}
	return hour, minute, nil
}

// ScheduleTime combines an ISO calendar date and a slot label into the
// effective instant of the visit.
func ScheduleTime(dateISO, slot string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", strings.TrimSpace(dateISO))
	if err != nil {
		return time.Time{}, fmt.Errorf("appointments: malformed date %q: %w", dateISO, err)
	}
	hour, minute, err := ParseSlot(slot)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC), nil
}

// sortKey is the ordering instant for an appointment. Records with a missing
// or malformed date or slot sort to the earliest possible instant so they
// stay visible at the top of the list instead of being dropped.
func sortKey(a Appointment) time.Time {
	if a.PreferredDate == "" || a.TimeSlot == "" {
		return time.Time{}
	}
	at, err := ScheduleTime(a.PreferredDate, a.TimeSlot)
	if err != nil {
		return time.Time{}
	}
	return at
}

// SortBySchedule orders appointments ascending by scheduled instant. The sort
// is stable so equal keys keep their snapshot order, and re-sorting the same
// snapshot is idempotent.
func SortBySchedule(appts []Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		return sortKey(appts[i]).Before(sortKey(appts[j]))
	})
}
