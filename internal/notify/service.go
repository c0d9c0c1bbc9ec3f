// Package notify sends appointment confirmations to the care team inbox so
// pending requests get human follow-up.
package notify

import (
	"context"
	"fmt"

	"github.com/careconnect-ai/platform/internal/appointments"
	"github.com/careconnect-ai/platform/pkg/logging"
)

// Service handles appointment notifications.
type Service struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewService creates a notification service. With no sender or recipients it
// degrades to a no-op.
func NewService(email EmailSender, recipients []string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, recipients: recipients, logger: logger}
}

// NotifyAppointmentRequested emails the care team about a new pending
// request. Failures are logged per recipient; the first error is returned.
func (s *Service) NotifyAppointmentRequested(ctx context.Context, appt appointments.Appointment) error {
	if s.email == nil || len(s.recipients) == 0 {
		s.logger.Debug("notify: email not configured, skipping appointment notification")
		return nil
	}

	subject := fmt.Sprintf("New appointment request - %s", appt.PatientName)
	body := fmt.Sprintf(`A new appointment has been requested.

Patient: %s (age %d)
Symptoms: %s
Priority: %s
Type: %s
Provider: %s
Requested for: %s at %s
Status: %s

Please review and confirm the request in the scheduling console.`,
		appt.PatientName, appt.PatientAge, appt.Symptoms,
		appt.Priority.Label(), appt.AppointmentTypeName, appt.DoctorName,
		appt.PreferredDate, appt.TimeSlot, appt.Status)

	var firstErr error
	for _, to := range s.recipients {
		if err := s.email.Send(ctx, EmailMessage{
			To:      to,
			Subject: subject,
			Body:    body,
		}); err != nil {
			s.logger.Error("notify: appointment email failed", "error", err, "to", to)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
