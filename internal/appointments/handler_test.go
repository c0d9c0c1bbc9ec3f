package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careconnect-ai/platform/internal/auth"
)

func doJSON(t *testing.T, method, url, userID string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("X-Test-User", userID)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// headerAuthMiddleware stands in for the bearer-token middleware: the test
// user id travels in a header and lands on the request context.
func headerAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := r.Header.Get("X-Test-User"); userID != "" {
			r = r.WithContext(auth.WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

func newAuthedServer(t *testing.T, store Store) *httptest.Server {
	t.Helper()
	h := NewHandler(HandlerConfig{
		Store: store,
		AppID: "test-app",
	})
	r := chi.NewRouter()
	r.Use(headerAuthMiddleware)
	r.Route("/api/appointments", h.Routes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func validBody() map[string]string {
	return map[string]string{
		"patientName":     "Jane Roe",
		"patientAge":      "34",
		"symptoms":        "severe migraine",
		"appointmentType": "follow_up",
		"doctorId":        "doc1",
		"preferredDate":   "2026-05-22",
		"timeSlot":        "10:00 AM",
	}
}

func TestHandleSubmitCreatesAppointment(t *testing.T) {
	store := NewMemoryStore()
	srv := newAuthedServer(t, store)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/appointments", "user-1", validBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out submitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, OutcomeScheduled, out.Outcome)
	assert.Equal(t, MessageSuccess, out.Message.Kind)

	snapshot, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, PriorityHigh, snapshot[0].Priority)
	assert.Equal(t, "user-1", snapshot[0].UserID)
}

func TestHandleSubmitRequiresAuth(t *testing.T) {
	srv := newAuthedServer(t, NewMemoryStore())

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/appointments", "", validBody())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleSubmitValidation(t *testing.T) {
	store := NewMemoryStore()
	srv := newAuthedServer(t, store)

	body := validBody()
	delete(body, "timeSlot")
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/appointments", "user-1", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	snapshot, _ := store.Snapshot(context.Background())
	assert.Empty(t, snapshot)
}

func TestHandleSubmitRejectsForeignSlot(t *testing.T) {
	srv := newAuthedServer(t, NewMemoryStore())

	body := validBody()
	body["timeSlot"] = "08:30 AM" // doc2's slot, not doc1's
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/appointments", "user-1", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleListSorted(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, err := store.Create(ctx, Appointment{PatientName: "later", PreferredDate: "2026-05-22", TimeSlot: "02:30 PM"})
	require.NoError(t, err)
	_, err = store.Create(ctx, Appointment{PatientName: "sooner", PreferredDate: "2026-05-20", TimeSlot: "09:00 AM"})
	require.NoError(t, err)

	srv := newAuthedServer(t, store)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/appointments", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Appointments []Appointment `json:"appointments"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Appointments, 2)
	assert.Equal(t, "sooner", out.Appointments[0].PatientName)
}

func TestHandleListRequiresIdentity(t *testing.T) {
	srv := newAuthedServer(t, NewMemoryStore())
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// The list is fed by the session's store subscription, so a submitted
// appointment shows up in a subsequent list once the snapshot propagates.
func TestHandleListReflectsSubmit(t *testing.T) {
	store := NewMemoryStore()
	srv := newAuthedServer(t, store)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/appointments", "user-1", validBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/appointments", "user-1", nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var out struct {
			Appointments []Appointment `json:"appointments"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return false
		}
		return len(out.Appointments) == 1 && out.Appointments[0].PatientName == "Jane Roe"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHandleCancel(t *testing.T) {
	store := NewMemoryStore()
	id, err := store.Create(context.Background(), Appointment{PatientName: "Jane Roe"})
	require.NoError(t, err)

	srv := newAuthedServer(t, store)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/appointments/"+id, "user-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/appointments/"+id, "user-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleRescheduleReplacesRecord(t *testing.T) {
	store := NewMemoryStore()
	srv := newAuthedServer(t, store)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/appointments", "user-1", validBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	snapshot, _ := store.Snapshot(context.Background())
	require.Len(t, snapshot, 1)
	originalID := snapshot[0].ID

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/appointments/"+originalID+"/reschedule", "user-1",
		map[string]string{"preferredDate": "2026-05-25", "timeSlot": "02:00 PM"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out submitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, OutcomeRescheduled, out.Outcome)

	snapshot, _ = store.Snapshot(context.Background())
	require.Len(t, snapshot, 1)
	assert.NotEqual(t, originalID, snapshot[0].ID)
	assert.Equal(t, "2026-05-25", snapshot[0].PreferredDate)
	assert.Equal(t, "02:00 PM", snapshot[0].TimeSlot)
	assert.Equal(t, "Jane Roe", snapshot[0].PatientName, "fields carried over from the superseded record")
}

func TestHandleRescheduleUnknownID(t *testing.T) {
	srv := newAuthedServer(t, NewMemoryStore())

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/appointments/ghost/reschedule", "user-1",
		map[string]string{"preferredDate": "2026-05-25", "timeSlot": "02:00 PM"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleCatalog(t *testing.T) {
	srv := newAuthedServer(t, NewMemoryStore())

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/appointments/catalog", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Doctors []Provider `json:"doctors"`
		Types   []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"appointmentTypes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out.Doctors, 3)
	assert.Len(t, out.Types, 3)
	assert.Equal(t, "doc_smith_figma", out.Doctors[0].ID)
}
