package appointments

import (
	"errors"
	"strconv"
	"strings"
)

// Type identifies the kind of visit being requested.
type Type string

const (
	TypeRegularCheckup         Type = "regular_checkup"
	TypeFollowUp               Type = "follow_up"
	TypeSpecialistConsultation Type = "specialist_consultation"
)

var typeLabels = map[Type]string{
	TypeRegularCheckup:         "Regular Check-up",
	TypeFollowUp:               "Follow-up",
	TypeSpecialistConsultation: "Specialist Consultation",
}

// Types lists the selectable appointment types in display order.
func Types() []Type {
	return []Type{TypeRegularCheckup, TypeFollowUp, TypeSpecialistConsultation}
}

// Label returns the display name for the type, or the raw value when unknown.
func (t Type) Label() string {
	if label, ok := typeLabels[t]; ok {
		return label
	}
	return string(t)
}

// Valid reports whether t is one of the selectable types.
func (t Type) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

// Appointment lifecycle statuses. New requests start pending; confirmation is
// issued by the care team, not by this service.
const (
	StatusPendingConfirmation = "pending_confirmation"
	StatusConfirmed           = "confirmed"
)

// ErrNotFound is returned when an appointment id does not exist in the store.
var ErrNotFound = errors.New("appointments: not found")

// Appointment is a patient's request for a visit. ID is empty until the store
// accepts the record and immutable afterwards; a reschedule produces a new
// record with a new id rather than mutating this one.
type Appointment struct {
	ID                  string   `json:"id,omitempty"`
	PatientName         string   `json:"patientName"`
	PatientAge          int      `json:"patientAge"`
	Symptoms            string   `json:"symptoms"`
	Priority            Priority `json:"priority"`
	AppointmentType     Type     `json:"appointmentType"`
	AppointmentTypeName string   `json:"appointmentTypeName,omitempty"`
	DoctorID            string   `json:"doctorId"`
	DoctorName          string   `json:"doctorName"`
	PreferredDate       string   `json:"preferredDate"`
	TimeSlot            string   `json:"timeSlot"`
	Status              string   `json:"status"`
	RequestedAt         string   `json:"requestedAt"`
	UserID              string   `json:"userId"`
	AppID               string   `json:"appId"`
}

// ParseAge converts free-form age input to a non-negative integer. Anything
// unparseable or negative coerces to 0.
func ParseAge(raw string) int {
	age, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || age < 0 {
		return 0
	}
	return age
}
