package appointments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticIdentity string

func (s staticIdentity) Resolve(ctx context.Context) (string, error) {
	if s == "" {
		return "", nil
	}
	return string(s), nil
}

type flakyStore struct {
	*MemoryStore
	failCreate bool
	failDelete bool
	creates    int
	deletes    int
}

func (f *flakyStore) Create(ctx context.Context, a Appointment) (string, error) {
	f.creates++
	if f.failCreate {
		return "", errors.New("backend unavailable")
	}
	return f.MemoryStore.Create(ctx, a)
}

func (f *flakyStore) Delete(ctx context.Context, id string) error {
	f.deletes++
	if f.failDelete {
		return errors.New("backend unavailable")
	}
	return f.MemoryStore.Delete(ctx, id)
}

func newTestCoordinator(t *testing.T, store Store) *Coordinator {
	t.Helper()
	c := NewCoordinator(CoordinatorConfig{
		Store:    store,
		Identity: staticIdentity("user-1"),
		AppID:    "test-app",
	})
	t.Cleanup(c.Close)
	return c
}

func fillForm(c *Coordinator) {
	c.SetPatientName("Jane Roe")
	c.SetPatientAge("34")
	c.SetSymptoms("severe migraine")
	c.SetAppointmentType(TypeFollowUp)
	c.SetDoctor("doc1")
	c.SetPreferredDate("2026-05-22")
	c.SetTimeSlot("10:00 AM")
}

func TestSetDoctorResetsTimeSlot(t *testing.T) {
	c := newTestCoordinator(t, NewMemoryStore())

	c.SetDoctor("doc1")
	require.True(t, c.SetTimeSlot("10:00 AM"))
	assert.Equal(t, "10:00 AM", c.Form().TimeSlot)

	c.SetDoctor("doc2")
	assert.Empty(t, c.Form().TimeSlot)
	assert.Equal(t, DefaultCatalog().SlotsFor("doc2"), c.AvailableSlots())
}

func TestSetTimeSlotRejectsForeignSlot(t *testing.T) {
	c := newTestCoordinator(t, NewMemoryStore())

	c.SetDoctor("doc1")
	assert.False(t, c.SetTimeSlot("08:00 AM"))
	assert.Empty(t, c.Form().TimeSlot)
}

func TestSetSymptomsReclassifiesPriority(t *testing.T) {
	c := newTestCoordinator(t, NewMemoryStore())

	assert.Equal(t, PriorityLow, c.Priority())
	c.SetSymptoms("chest pain after exercise")
	assert.Equal(t, PriorityUrgent, c.Priority())
	c.SetSymptoms("mild cough")
	assert.Equal(t, PriorityMedium, c.Priority())
}

func TestSubmitValidationNeverTouchesStore(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	c := newTestCoordinator(t, store)

	_, err := c.Submit(context.Background())
	require.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, store.creates)
	assert.Equal(t, MessageError, c.Message().Kind)
	assert.Equal(t, "Please complete all required fields.", c.Message().Text)
}

func TestSubmitRejectsUnauthenticated(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	c := NewCoordinator(CoordinatorConfig{
		Store:    store,
		Identity: staticIdentity(""),
		AppID:    "test-app",
	})
	t.Cleanup(c.Close)
	fillForm(c)

	_, err := c.Submit(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, store.creates)
	assert.Equal(t, "User not authenticated.", c.Message().Text)
}

func TestSubmitCreatesRecord(t *testing.T) {
	store := NewMemoryStore()
	c := newTestCoordinator(t, store)
	fillForm(c)

	outcome, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeScheduled, outcome)

	snapshot, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	got := snapshot[0]
	assert.Equal(t, "Jane Roe", got.PatientName)
	assert.Equal(t, 34, got.PatientAge)
	assert.Equal(t, PriorityHigh, got.Priority)
	assert.Equal(t, TypeFollowUp, got.AppointmentType)
	assert.Equal(t, "Follow-up", got.AppointmentTypeName)
	assert.Equal(t, "Dr. Evelyn Reed (Cardiology)", got.DoctorName)
	assert.Equal(t, StatusPendingConfirmation, got.Status)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "test-app", got.AppID)
	assert.NotEmpty(t, got.RequestedAt)

	// Form is cleared back to defaults on success.
	assert.Empty(t, c.Form().PatientName)
	assert.Equal(t, TypeRegularCheckup, c.Form().AppointmentType)
	assert.Equal(t, MessageSuccess, c.Message().Kind)
	assert.Equal(t, StateSettled, c.State())
}

func TestSubmitFailureKeepsForm(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(), failCreate: true}
	c := newTestCoordinator(t, store)
	fillForm(c)

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Jane Roe", c.Form().PatientName)
	assert.Equal(t, "10:00 AM", c.Form().TimeSlot)
	assert.Equal(t, MessageError, c.Message().Kind)
}

func TestRescheduleRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	c := newTestCoordinator(t, store)
	fillForm(c)

	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	snapshot, _ := store.Snapshot(context.Background())
	original := snapshot[0]

	c.BeginReschedule(original)
	assert.Equal(t, original.ID, c.ReschedulingID())
	assert.Equal(t, "Jane Roe", c.Form().PatientName)
	assert.Empty(t, c.Form().TimeSlot, "slot must be re-picked")
	assert.Equal(t, MessageInfo, c.Message().Kind)
	assert.Contains(t, c.Message().Text, "Jane Roe")

	c.SetPreferredDate("2026-05-25")
	require.True(t, c.SetTimeSlot("02:00 PM"))

	outcome, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeRescheduled, outcome)
	assert.Empty(t, c.ReschedulingID())

	snapshot, _ = store.Snapshot(context.Background())
	require.Len(t, snapshot, 1, "old record deleted, new record created")
	assert.NotEqual(t, original.ID, snapshot[0].ID)
	assert.Equal(t, "2026-05-25", snapshot[0].PreferredDate)
	assert.Equal(t, "02:00 PM", snapshot[0].TimeSlot)
}

func TestCancelRescheduleRestoresDefaults(t *testing.T) {
	c := newTestCoordinator(t, NewMemoryStore())

	c.BeginReschedule(Appointment{
		ID:          "appt-1",
		PatientName: "John Doe",
		DoctorID:    "doc2",
		Symptoms:    "chest pain",
	})
	require.Equal(t, "appt-1", c.ReschedulingID())

	c.CancelReschedule()
	assert.Empty(t, c.ReschedulingID())
	assert.Empty(t, c.Form().PatientName)
	assert.Equal(t, DefaultCatalog().Providers()[0].ID, c.Form().DoctorID)
	assert.Equal(t, PriorityLow, c.Priority())
	assert.Equal(t, MessageNone, c.Message().Kind)
}

func TestPartialRescheduleSurfacedDistinctly(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	c := newTestCoordinator(t, store)
	fillForm(c)
	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	snapshot, _ := store.Snapshot(context.Background())

	c.BeginReschedule(snapshot[0])
	require.True(t, c.SetTimeSlot("10:00 AM"))
	store.failDelete = true

	outcome, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePartialReschedule, outcome)
	assert.Empty(t, c.ReschedulingID(), "form settles even on partial failure")
	assert.Equal(t, MessageError, c.Message().Kind)
	assert.Contains(t, c.Message().Text, "could not be removed")

	// Both records now exist.
	snapshot, _ = store.MemoryStore.Snapshot(context.Background())
	assert.Len(t, snapshot, 2)
}

func TestMessageDismissedAfterTimeout(t *testing.T) {
	c := NewCoordinator(CoordinatorConfig{
		Store:        NewMemoryStore(),
		Identity:     staticIdentity("user-1"),
		DismissAfter: 20 * time.Millisecond,
	})
	t.Cleanup(c.Close)
	fillForm(c)

	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, MessageSuccess, c.Message().Kind)

	assert.Eventually(t, func() bool {
		return c.Message().Kind == MessageNone && c.State() == StateIdle
	}, time.Second, 5*time.Millisecond)
}

func TestStartDeliversSortedSnapshots(t *testing.T) {
	store := NewMemoryStore()
	c := newTestCoordinator(t, store)
	require.NoError(t, c.Start(context.Background()))

	ctx := context.Background()
	_, err := store.Create(ctx, Appointment{PatientName: "b", PreferredDate: "2026-05-22", TimeSlot: "02:30 PM"})
	require.NoError(t, err)
	_, err = store.Create(ctx, Appointment{PatientName: "a", PreferredDate: "2026-05-20", TimeSlot: "09:00 AM"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		appts := c.Appointments()
		return len(appts) == 2 && appts[0].PatientName == "a"
	}, time.Second, 5*time.Millisecond)
}

func TestCancelRemovesRecord(t *testing.T) {
	store := NewMemoryStore()
	c := newTestCoordinator(t, store)
	fillForm(c)
	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	snapshot, _ := store.Snapshot(context.Background())

	require.NoError(t, c.Cancel(context.Background(), snapshot[0].ID))
	snapshot, _ = store.Snapshot(context.Background())
	assert.Empty(t, snapshot)

	err = c.Cancel(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, MessageError, c.Message().Kind)
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []Appointment
}

func (n *recordingNotifier) NotifyAppointmentRequested(ctx context.Context, appt Appointment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, appt)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.seen)
}

func TestSubmitNotifiesCareTeam(t *testing.T) {
	notifier := &recordingNotifier{}
	c := NewCoordinator(CoordinatorConfig{
		Store:    NewMemoryStore(),
		Identity: staticIdentity("user-1"),
		Notifier: notifier,
	})
	fillForm(c)

	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 10*time.Millisecond)
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.NotEmpty(t, notifier.seen[0].ID)
	assert.Equal(t, "Dr. Evelyn Reed (Cardiology)", notifier.seen[0].DoctorName)
}
