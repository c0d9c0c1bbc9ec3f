package appointments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/careconnect-ai/platform/internal/observability/metrics"
	"github.com/careconnect-ai/platform/pkg/logging"
)

var coordinatorTracer = otel.Tracer("careconnect/appointments")

// IdentityResolver yields the authenticated user id. An empty id with a nil
// error means authentication has resolved to no user, which blocks writes.
type IdentityResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Notifier is told about newly created requests so the care team can follow
// up. Notification is best-effort and never blocks the submit path.
type Notifier interface {
	NotifyAppointmentRequested(ctx context.Context, appt Appointment) error
}

// State is the coordinator's submission workflow state.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSettled    State = "settled"
)

// MessageKind tags the transient user-facing status message.
type MessageKind string

const (
	MessageNone    MessageKind = ""
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
	MessageInfo    MessageKind = "info"
)

// Message is the single user-facing status slot.
type Message struct {
	Kind MessageKind `json:"type"`
	Text string      `json:"text"`
}

// Outcome classifies a settled submission.
type Outcome string

const (
	OutcomeScheduled Outcome = "scheduled"
	// OutcomePartialReschedule means the new record was written but the
	// superseded one could not be deleted: both now exist. Surfaced as a
	// distinct outcome instead of plain success so callers can detect the
	// inconsistency.
	OutcomePartialReschedule Outcome = "partial_reschedule"
	OutcomeRescheduled       Outcome = "rescheduled"
)

var (
	ErrBusy             = errors.New("appointments: a mutation is already in flight")
	ErrNotAuthenticated = errors.New("appointments: user not authenticated")
	ErrValidation       = errors.New("appointments: required fields missing")
)

// Form holds the editable appointment request fields. PatientAge is kept as
// raw input and coerced at submit time.
type Form struct {
	PatientName     string `json:"patientName"`
	PatientAge      string `json:"patientAge"`
	Symptoms        string `json:"symptoms"`
	AppointmentType Type   `json:"appointmentType"`
	DoctorID        string `json:"doctorId"`
	PreferredDate   string `json:"preferredDate"`
	TimeSlot        string `json:"timeSlot"`
}

// CoordinatorConfig wires a Coordinator's collaborators.
type CoordinatorConfig struct {
	Store    Store
	Catalog  *Catalog
	Identity IdentityResolver
	Notifier Notifier
	AppID    string
	Logger   *logging.Logger
	Metrics  *metrics.AppointmentMetrics

	// DismissAfter clears the status message after a plain schedule or
	// cancel; RescheduleDismissAfter applies after a reschedule, longer so
	// the fuller confirmation can be read.
	DismissAfter           time.Duration
	RescheduleDismissAfter time.Duration
}

// Coordinator owns the appointment request form, the slot set for the
// selected provider, the reschedule marker, and the locally materialized
// collection snapshot. All store traffic goes through the injected Store.
type Coordinator struct {
	store    Store
	catalog  *Catalog
	identity IdentityResolver
	notifier Notifier
	appID    string
	logger   *logging.Logger
	metrics  *metrics.AppointmentMetrics

	dismissAfter           time.Duration
	rescheduleDismissAfter time.Duration

	mu             sync.Mutex
	form           Form
	priority       Priority
	availableSlots []string
	reschedulingID string
	appointments   []Appointment
	message        Message
	state          State
	inFlight       bool
	dismissTimer   *time.Timer
	unsubscribe    func()
}

// NewCoordinator creates a coordinator in the Idle state with the form at
// its defaults.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Store == nil {
		panic("appointments: store required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.DismissAfter <= 0 {
		cfg.DismissAfter = 3 * time.Second
	}
	if cfg.RescheduleDismissAfter <= 0 {
		cfg.RescheduleDismissAfter = 5 * time.Second
	}

	c := &Coordinator{
		store:                  cfg.Store,
		catalog:                cfg.Catalog,
		identity:               cfg.Identity,
		notifier:               cfg.Notifier,
		appID:                  cfg.AppID,
		logger:                 cfg.Logger,
		metrics:                cfg.Metrics,
		dismissAfter:           cfg.DismissAfter,
		rescheduleDismissAfter: cfg.RescheduleDismissAfter,
		state:                  StateIdle,
	}
	c.resetFormLocked()
	return c
}

// Start subscribes to the store and keeps the materialized list current.
// Each pushed snapshot is re-sorted by scheduled instant; the subscription is
// the sole source of truth for the displayed list.
func (c *Coordinator) Start(ctx context.Context) error {
	ch, cancel, err := c.store.Subscribe(ctx)
	if err != nil {
		c.mu.Lock()
		c.message = Message{Kind: MessageError, Text: "Could not load appointments."}
		c.mu.Unlock()
		return fmt.Errorf("appointments: subscribe failed: %w", err)
	}

	c.mu.Lock()
	c.unsubscribe = cancel
	c.mu.Unlock()

	// The store buffers the initial snapshot before Subscribe returns; apply
	// it here so callers see a populated list as soon as Start completes.
	select {
	case snapshot := <-ch:
		c.applySnapshot(snapshot)
	default:
	}

	go func() {
		for snapshot := range ch {
			c.applySnapshot(snapshot)
		}
	}()
	return nil
}

// Close releases the subscription and any pending message timer.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	if c.dismissTimer != nil {
		c.dismissTimer.Stop()
		c.dismissTimer = nil
	}
}

func (c *Coordinator) applySnapshot(snapshot []Appointment) {
	for i := range snapshot {
		if snapshot[i].RequestedAt == "" {
			// Malformed record: tolerate with a fallback timestamp.
			snapshot[i].RequestedAt = time.Now().UTC().Format(time.RFC3339)
		}
	}
	SortBySchedule(snapshot)

	c.mu.Lock()
	c.appointments = snapshot
	c.mu.Unlock()

	c.metrics.ObserveSnapshot(len(snapshot))
}

// SetDoctor selects a provider: available slots become exactly that
// provider's catalog entry and any previously chosen slot is invalidated.
func (c *Coordinator) SetDoctor(doctorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.DoctorID = doctorID
	c.availableSlots = c.catalog.SlotsFor(doctorID)
	c.form.TimeSlot = ""
}

// SetSymptoms updates the symptom text and recomputes the triage priority
// immediately, so the derived priority always reflects the current text.
func (c *Coordinator) SetSymptoms(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.Symptoms = text
	c.priority = ClassifyPriority(text)
}

// SetTimeSlot selects a slot. Labels outside the current provider's offering
// are ignored, keeping the slot/provider coupling intact.
func (c *Coordinator) SetTimeSlot(slot string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.availableSlots {
		if s == slot {
			c.form.TimeSlot = slot
			return true
		}
	}
	return false
}

func (c *Coordinator) SetPatientName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.PatientName = name
}

func (c *Coordinator) SetPatientAge(age string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.PatientAge = age
}

func (c *Coordinator) SetAppointmentType(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Valid() {
		c.form.AppointmentType = t
	}
}

func (c *Coordinator) SetPreferredDate(dateISO string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.PreferredDate = dateISO
}

// BeginReschedule loads the target's editable fields into the form, clears
// the slot so the user must re-pick one, and records the id to be replaced.
func (c *Coordinator) BeginReschedule(appt Appointment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.form = Form{
		PatientName:     appt.PatientName,
		PatientAge:      fmt.Sprintf("%d", appt.PatientAge),
		Symptoms:        appt.Symptoms,
		AppointmentType: appt.AppointmentType,
		DoctorID:        appt.DoctorID,
		PreferredDate:   appt.PreferredDate,
		TimeSlot:        "",
	}
	c.priority = ClassifyPriority(appt.Symptoms)
	c.availableSlots = c.catalog.SlotsFor(appt.DoctorID)
	c.reschedulingID = appt.ID
	c.message = Message{
		Kind: MessageInfo,
		Text: fmt.Sprintf("Rescheduling appointment for %s. Select a new date and time.", appt.PatientName),
	}
}

// CancelReschedule resets the form to defaults and clears the replacement
// marker without contacting the store.
func (c *Coordinator) CancelReschedule() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetFormLocked()
	c.reschedulingID = ""
	c.message = Message{}
}

// Submit validates the form and writes a new appointment record. When a
// reschedule is pending, the superseded record is deleted afterwards as a
// best-effort compensation; a failed delete settles as
// OutcomePartialReschedule.
func (c *Coordinator) Submit(ctx context.Context) (Outcome, error) {
	ctx, span := coordinatorTracer.Start(ctx, "appointments.submit")
	defer span.End()

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return "", ErrBusy
	}

	userID, err := c.resolveIdentity(ctx)
	if err != nil || userID == "" {
		c.message = Message{Kind: MessageError, Text: "User not authenticated."}
		c.scheduleDismissLocked(c.dismissAfter)
		c.mu.Unlock()
		c.metrics.ObserveSubmit("rejected")
		return "", ErrNotAuthenticated
	}

	f := c.form
	if f.DoctorID == "" || f.TimeSlot == "" || f.PreferredDate == "" || f.AppointmentType == "" {
		c.message = Message{Kind: MessageError, Text: "Please complete all required fields."}
		c.scheduleDismissLocked(c.dismissAfter)
		c.mu.Unlock()
		c.metrics.ObserveSubmit("rejected")
		return "", ErrValidation
	}

	priority := c.priority
	rescheduleID := c.reschedulingID
	doctorName := "Unknown Doctor"
	if p, ok := c.catalog.Provider(f.DoctorID); ok {
		doctorName = p.Name
	}

	appt := Appointment{
		PatientName:         f.PatientName,
		PatientAge:          ParseAge(f.PatientAge),
		Symptoms:            f.Symptoms,
		Priority:            priority,
		AppointmentType:     f.AppointmentType,
		AppointmentTypeName: f.AppointmentType.Label(),
		DoctorID:            f.DoctorID,
		DoctorName:          doctorName,
		PreferredDate:       f.PreferredDate,
		TimeSlot:            f.TimeSlot,
		Status:              StatusPendingConfirmation,
		UserID:              userID,
		AppID:               c.appID,
	}

	c.inFlight = true
	c.state = StateSubmitting
	c.mu.Unlock()

	span.SetAttributes(
		attribute.Int("appointment.priority", int(priority)),
		attribute.String("appointment.type", string(f.AppointmentType)),
		attribute.Bool("appointment.reschedule", rescheduleID != ""),
	)

	id, createErr := c.store.Create(ctx, appt)

	var deleteErr error
	if createErr == nil && rescheduleID != "" {
		deleteErr = c.store.Delete(ctx, rescheduleID)
	}

	if createErr == nil && c.notifier != nil {
		created := appt
		created.ID = id
		go func() {
			nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.notifier.NotifyAppointmentRequested(nctx, created); err != nil {
				c.logger.Error("appointment notification failed", "error", err, "id", id)
			}
		}()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.state = StateSettled

	switch {
	case createErr != nil:
		// Keep the form so the user can retry.
		c.logger.Error("appointment submit failed", "error", createErr, "user_id", userID)
		c.message = Message{Kind: MessageError, Text: "Failed to schedule appointment."}
		c.scheduleDismissLocked(c.dismissAfter)
		c.metrics.ObserveSubmit("error")
		return "", fmt.Errorf("appointments: create failed: %w", createErr)

	case rescheduleID != "" && deleteErr != nil:
		// Partial failure: the new record exists and the old one is still
		// there. The form is cleared anyway so the user is not stuck
		// mid-reschedule.
		c.logger.Error("reschedule compensation failed",
			"error", deleteErr, "superseded_id", rescheduleID, "new_id", id)
		c.resetFormLocked()
		c.reschedulingID = ""
		c.message = Message{
			Kind: MessageError,
			Text: "Appointment rebooked, but the previous booking could not be removed. Please cancel it manually.",
		}
		c.scheduleDismissLocked(c.rescheduleDismissAfter)
		c.metrics.ObserveSubmit(string(OutcomePartialReschedule))
		return OutcomePartialReschedule, nil

	case rescheduleID != "":
		c.logger.Info("appointment rescheduled", "id", id, "superseded_id", rescheduleID)
		c.resetFormLocked()
		c.reschedulingID = ""
		c.message = Message{
			Kind: MessageSuccess,
			Text: fmt.Sprintf("Appointment rescheduled (ID: %s).", id),
		}
		c.scheduleDismissLocked(c.rescheduleDismissAfter)
		c.metrics.ObserveSubmit(string(OutcomeRescheduled))
		c.metrics.ObservePriority(priority.Label())
		return OutcomeRescheduled, nil

	default:
		c.logger.Info("appointment requested", "id", id, "priority", int(priority))
		c.resetFormLocked()
		c.message = Message{
			Kind: MessageSuccess,
			Text: fmt.Sprintf("Appointment request sent (ID: %s).", id),
		}
		c.scheduleDismissLocked(c.dismissAfter)
		c.metrics.ObserveSubmit(string(OutcomeScheduled))
		c.metrics.ObservePriority(priority.Label())
		return OutcomeScheduled, nil
	}
}

// Cancel deletes the given record. Only one mutation may be in flight at a
// time.
func (c *Coordinator) Cancel(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	c.inFlight = true
	c.state = StateSubmitting
	c.mu.Unlock()

	err := c.store.Delete(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.state = StateSettled

	if err != nil {
		c.logger.Error("appointment cancel failed", "error", err, "id", id)
		c.message = Message{Kind: MessageError, Text: "Failed to cancel appointment."}
		c.scheduleDismissLocked(c.dismissAfter)
		c.metrics.ObserveCancel("error")
		return fmt.Errorf("appointments: cancel failed: %w", err)
	}

	c.message = Message{Kind: MessageSuccess, Text: fmt.Sprintf("Appointment %s cancelled.", id)}
	c.scheduleDismissLocked(c.dismissAfter)
	c.metrics.ObserveCancel("ok")
	return nil
}

// Appointments returns the current sorted snapshot.
func (c *Coordinator) Appointments() []Appointment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Appointment, len(c.appointments))
	copy(out, c.appointments)
	return out
}

// Form returns the current form values.
func (c *Coordinator) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Priority returns the triage level derived from the current symptom text.
func (c *Coordinator) Priority() Priority {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.priority
}

// AvailableSlots returns the slot labels for the selected provider.
func (c *Coordinator) AvailableSlots() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.availableSlots))
	copy(out, c.availableSlots)
	return out
}

// ReschedulingID returns the id of the record being replaced, or empty.
func (c *Coordinator) ReschedulingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reschedulingID
}

// Message returns the current status message.
func (c *Coordinator) Message() Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// State returns the submission workflow state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) resolveIdentity(ctx context.Context) (string, error) {
	if c.identity == nil {
		return "", ErrNotAuthenticated
	}
	return c.identity.Resolve(ctx)
}

// resetFormLocked restores form defaults: first catalog provider selected,
// everything else empty. Caller holds c.mu.
func (c *Coordinator) resetFormLocked() {
	doctorID := ""
	if providers := c.catalog.Providers(); len(providers) > 0 {
		doctorID = providers[0].ID
	}
	c.form = Form{
		AppointmentType: TypeRegularCheckup,
		DoctorID:        doctorID,
	}
	c.priority = PriorityLow
	c.availableSlots = c.catalog.SlotsFor(doctorID)
}

// scheduleDismissLocked arms the message-dismissal timer, replacing any
// armed one. Caller holds c.mu.
func (c *Coordinator) scheduleDismissLocked(after time.Duration) {
	if c.dismissTimer != nil {
		c.dismissTimer.Stop()
	}
	c.dismissTimer = time.AfterFunc(after, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.message = Message{}
		c.state = StateIdle
	})
}
