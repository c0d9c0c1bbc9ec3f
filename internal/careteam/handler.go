// Package careteam exposes the patient-to-care-team contact surface: SMS
// relay via Twilio and on-demand video consultations via Zoom.
package careteam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/careconnect-ai/platform/internal/careteam/twilioclient"
	"github.com/careconnect-ai/platform/internal/careteam/zoomclient"
	"github.com/careconnect-ai/platform/pkg/logging"
)

// SMSSender relays a message and returns the provider message id.
type SMSSender interface {
	Send(ctx context.Context, msg twilioclient.Message) (string, error)
}

// MeetingCreator provisions a video consultation.
type MeetingCreator interface {
	CreateConsultation(ctx context.Context, topic string) (zoomclient.Meeting, error)
}

// Handler serves the care team contact endpoints.
type Handler struct {
	sms        SMSSender
	meetings   MeetingCreator
	teamNumber string
	logger     *logging.Logger
}

// NewHandler creates the care team handler. Either client may be nil, which
// disables its endpoint with a 503.
func NewHandler(sms SMSSender, meetings MeetingCreator, teamNumber string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{sms: sms, meetings: meetings, teamNumber: teamNumber, logger: logger}
}

// Routes mounts the care team endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/send-message", h.HandleSendMessage)
	r.Post("/reply-sms", h.HandleReplySMS)
	r.Post("/consultations", h.HandleCreateConsultation)
}

// HandleSendMessage relays a patient message to the care team number.
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	if h.sms == nil {
		http.Error(w, "messaging not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Body string `json:"body"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		http.Error(w, "body is required", http.StatusBadRequest)
		return
	}
	to := req.To
	if to == "" {
		to = h.teamNumber
	}

	sid, err := h.sms.Send(r.Context(), twilioclient.Message{To: to, Body: req.Body})
	if err != nil {
		h.logger.Error("careteam: send message failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"status":  "error",
			"message": "failed to send message",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "sid": sid})
}

// HandleReplySMS answers Twilio's inbound-message webhook with TwiML.
func (h *Handler) HandleReplySMS(w http.ResponseWriter, r *http.Request) {
	const twiml = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<Response><Message>Thanks for reaching out. A member of your care team will reply shortly.</Message></Response>`
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(twiml))
}

// HandleCreateConsultation provisions a Zoom meeting and returns its join
// details.
func (h *Handler) HandleCreateConsultation(w http.ResponseWriter, r *http.Request) {
	if h.meetings == nil {
		http.Error(w, "video consultations not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Topic string `json:"topic"`
	}
	if r.Body != nil {
		// Body is optional; ignore decode errors from an empty body.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	meeting, err := h.meetings.CreateConsultation(r.Context(), req.Topic)
	if err != nil {
		if errors.Is(err, zoomclient.ErrNoActiveUsers) {
			http.Error(w, "no meeting host available", http.StatusConflict)
			return
		}
		h.logger.Error("careteam: create consultation failed", "error", err)
		http.Error(w, "failed to create consultation", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, meeting)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
