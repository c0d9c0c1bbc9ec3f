// Package reports manages patient health reports: CRUD storage, printable
// document rendering with S3 archival, and AI simplification of medical
// text.
package reports

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a report id does not exist.
var ErrNotFound = errors.New("reports: not found")

// Content is the report body.
type Content struct {
	Diagnosis       string `json:"diagnosis"`
	Recommendations string `json:"recommendations"`
}

// Report is a single patient health report. Date is server-assigned at
// creation.
type Report struct {
	ID       string    `json:"id"`
	IconName string    `json:"icon_name"`
	Title    string    `json:"title"`
	Date     time.Time `json:"-"`
	Content  Content   `json:"content"`
}

// displayDateFormat matches the dashboard's long-form date, e.g.
// "June 05, 2026".
const displayDateFormat = "January 02, 2006"

// FormattedDate returns the display form of the report date.
func (r Report) FormattedDate() string {
	return r.Date.Format(displayDateFormat)
}

// MarshalJSON emits the date in display form, which is what the dashboard
// renders directly.
func (r Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{
		alias: alias(r),
		Date:  r.FormattedDate(),
	})
}
