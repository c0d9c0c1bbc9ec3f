package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/careconnect-ai/platform/internal/appointments"
	"github.com/careconnect-ai/platform/internal/auth"
	"github.com/careconnect-ai/platform/internal/vitals"
	"github.com/careconnect-ai/platform/pkg/logging"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.Default()
	authSvc := auth.NewService("router-test-secret", time.Hour)

	apptHandler := appointments.NewHandler(appointments.HandlerConfig{
		Store:  appointments.NewMemoryStore(),
		Logger: logger,
	})

	cfg := &Config{
		Logger:              logger,
		AppID:               "careconnect-ai-app",
		AuthService:         authSvc,
		AuthHandler:         auth.NewHandler(authSvc, logger),
		AppointmentsHandler: apptHandler,
		VitalsHandler:       vitals.NewHandler(vitals.NewSimulatedSource(1)),
	}

	return New(cfg)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterIssuesAndAcceptsToken(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/anonymous", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var tok struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&tok); err != nil {
		t.Fatalf("failed to decode token response: %v", err)
	}
	if tok.Token == "" {
		t.Fatal("expected a token")
	}

	// An authenticated submit should reach the appointments handler.
	payload := map[string]string{
		"patientName":     "Router Test",
		"patientAge":      "40",
		"symptoms":        "cough",
		"appointmentType": "regular_checkup",
		"doctorId":        "doc1",
		"preferredDate":   "2026-09-10",
		"timeSlot":        "09:00 AM",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/appointments/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.Token)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
}

func TestRouterRejectsUnauthenticatedSubmit(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/appointments/", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterVitalsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/vitals", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var reading vitals.Reading
	if err := json.NewDecoder(rr.Body).Decode(&reading); err != nil {
		t.Fatalf("failed to decode vitals response: %v", err)
	}
	if reading.HeartRate < 65 || reading.HeartRate > 100 {
		t.Errorf("heart rate out of range: %d", reading.HeartRate)
	}
}
