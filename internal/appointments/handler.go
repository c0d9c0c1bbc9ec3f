package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/websocket"

	"github.com/careconnect-ai/platform/internal/auth"
	"github.com/careconnect-ai/platform/internal/observability/metrics"
	"github.com/careconnect-ai/platform/internal/tenancy"
	"github.com/careconnect-ai/platform/pkg/logging"
)

var handlerTracer = otel.Tracer("careconnect/appointments/http")

// HandlerConfig wires the HTTP surface of the scheduling workflow.
type HandlerConfig struct {
	Store    Store
	Catalog  *Catalog
	Identity IdentityResolver
	Notifier Notifier
	AppID    string
	Logger   *logging.Logger
	Metrics  *metrics.AppointmentMetrics

	DismissAfter           time.Duration
	RescheduleDismissAfter time.Duration
}

// Handler exposes the scheduling workflow over HTTP and streams collection
// snapshots over WebSocket. Each authenticated user gets a long-lived
// Coordinator so the in-flight guard and reschedule marker survive across
// requests.
type Handler struct {
	store    Store
	catalog  *Catalog
	identity IdentityResolver
	notifier Notifier
	appID    string
	logger   *logging.Logger
	metrics  *metrics.AppointmentMetrics

	dismissAfter           time.Duration
	rescheduleDismissAfter time.Duration

	mu       sync.Mutex
	sessions map[string]*Coordinator // userID -> workflow
}

// NewHandler creates the appointments HTTP handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Store == nil {
		panic("appointments: store required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Identity == nil {
		cfg.Identity = auth.ContextResolver{}
	}
	return &Handler{
		store:                  cfg.Store,
		catalog:                cfg.Catalog,
		identity:               cfg.Identity,
		notifier:               cfg.Notifier,
		appID:                  cfg.AppID,
		logger:                 cfg.Logger,
		metrics:                cfg.Metrics,
		dismissAfter:           cfg.DismissAfter,
		rescheduleDismissAfter: cfg.RescheduleDismissAfter,
		sessions:               make(map[string]*Coordinator),
	}
}

// Routes mounts the appointment endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleSubmit)
	r.Delete("/{id}", h.HandleCancel)
	r.Post("/{id}/reschedule", h.HandleReschedule)
	r.Get("/catalog", h.HandleCatalog)
	r.Get("/stream", h.HandleStream)
}

// submitRequest carries the appointment form fields. Age arrives as free
// text and is coerced server-side.
type submitRequest struct {
	PatientName     string `json:"patientName"`
	PatientAge      string `json:"patientAge"`
	Symptoms        string `json:"symptoms"`
	AppointmentType string `json:"appointmentType"`
	DoctorID        string `json:"doctorId"`
	PreferredDate   string `json:"preferredDate"`
	TimeSlot        string `json:"timeSlot"`
}

type submitResponse struct {
	Outcome Outcome `json:"outcome"`
	Message Message `json:"message"`
}

// HandleList returns every appointment in this deployment's partition,
// ordered by scheduled instant. The list is served from the caller's
// workflow, whose store subscription keeps it current; a read immediately
// after a write may briefly lag until the next snapshot lands.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	c, ok := h.session(r.Context(), w)
	if !ok {
		return
	}
	snapshot := c.Appointments()
	if snapshot == nil {
		snapshot = []Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": snapshot})
}

// HandleSubmit runs the full scheduling workflow for the request body.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := handlerTracer.Start(r.Context(), "appointments.http.submit")
	defer span.End()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	c, ok := h.session(ctx, w)
	if !ok {
		return
	}

	h.applyForm(c, req)
	outcome, err := c.Submit(ctx)
	if err != nil {
		h.writeSubmitError(w, c, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{Outcome: outcome, Message: c.Message()})
}

// HandleReschedule replaces an existing appointment: the target's fields
// seed the workflow, the body supplies the new date and slot, and the old
// record is removed after the new one is written.
func (h *Handler) HandleReschedule(w http.ResponseWriter, r *http.Request) {
	ctx, span := handlerTracer.Start(r.Context(), "appointments.http.reschedule")
	defer span.End()

	id := chi.URLParam(r, "id")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snapshot, err := h.store.Snapshot(ctx)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}
	var target *Appointment
	for i := range snapshot {
		if snapshot[i].ID == id {
			target = &snapshot[i]
			break
		}
	}
	if target == nil {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}

	c, ok := h.session(ctx, w)
	if !ok {
		return
	}

	c.BeginReschedule(*target)
	h.applyForm(c, req)

	outcome, err := c.Submit(ctx)
	if err != nil {
		c.CancelReschedule()
		h.writeSubmitError(w, c, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Outcome: outcome, Message: c.Message()})
}

// HandleCancel deletes an appointment.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, ok := h.session(r.Context(), w)
	if !ok {
		return
	}

	if err := c.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrBusy):
			http.Error(w, "another request is in progress", http.StatusConflict)
		case errors.Is(err, ErrNotFound):
			http.Error(w, "appointment not found", http.StatusNotFound)
		default:
			http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCatalog returns the care team roster and selectable visit types.
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	types := make([]map[string]string, 0, len(Types()))
	for _, t := range Types() {
		types = append(types, map[string]string{"id": string(t), "label": t.Label()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doctors":          h.catalog.Providers(),
		"appointmentTypes": types,
	})
}

// streamEvent is one WebSocket frame: the full sorted collection.
type streamEvent struct {
	Type         string        `json:"type"`
	Appointments []Appointment `json:"appointments"`
}

// HandleStream upgrades to WebSocket and pushes the full sorted collection
// on connect and after every change, mirroring a live query subscription.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveStream(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveStream(conn *websocket.Conn, r *http.Request) {
	ch, cancel, err := h.store.Subscribe(r.Context())
	if err != nil {
		h.logger.Error("appointments: stream subscribe failed", "error", err)
		_ = websocket.JSON.Send(conn, map[string]string{"type": "error", "text": "Could not load appointments."})
		return
	}
	defer cancel()

	h.logger.Info("appointments: stream opened", "remote", r.RemoteAddr)

	// Detect client disconnect so the snapshot loop can exit.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		var discard any
		for {
			if err := websocket.JSON.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			SortBySchedule(snapshot)
			if snapshot == nil {
				snapshot = []Appointment{}
			}
			if err := websocket.JSON.Send(conn, streamEvent{Type: "snapshot", Appointments: snapshot}); err != nil {
				h.logger.Debug("appointments: stream closed", "error", err)
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// session returns the caller's workflow, creating it on first use. Writes a
// 401 and returns false when the request carries no identity.
func (h *Handler) session(ctx context.Context, w http.ResponseWriter) (*Coordinator, bool) {
	userID, err := h.identity.Resolve(ctx)
	if err != nil || userID == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return nil, false
	}

	appID := h.appID
	if fromCtx, ok := tenancy.AppIDFromContext(ctx); ok {
		appID = fromCtx
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.sessions[userID]
	if !ok {
		c = NewCoordinator(CoordinatorConfig{
			Store:                  h.store,
			Catalog:                h.catalog,
			Identity:               h.identity,
			Notifier:               h.notifier,
			AppID:                  appID,
			Logger:                 h.logger,
			Metrics:                h.metrics,
			DismissAfter:           h.dismissAfter,
			RescheduleDismissAfter: h.rescheduleDismissAfter,
		})
		// The session outlives this request, so the subscription is not
		// tied to the request context.
		if err := c.Start(context.Background()); err != nil {
			h.logger.Error("appointments: session start failed", "user", userID, "error", err)
		}
		h.sessions[userID] = c
	}
	return c, true
}

// Close releases every session's store subscription. Called on shutdown.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.sessions {
		c.Close()
	}
	h.sessions = make(map[string]*Coordinator)
}

// applyForm pushes request fields through the workflow setters, preserving
// their coupling rules: the provider is set before the slot so the slot is
// validated against that provider's offering.
func (h *Handler) applyForm(c *Coordinator, req submitRequest) {
	if req.PatientName != "" {
		c.SetPatientName(req.PatientName)
	}
	if req.PatientAge != "" {
		c.SetPatientAge(req.PatientAge)
	}
	if req.Symptoms != "" {
		c.SetSymptoms(req.Symptoms)
	}
	if req.AppointmentType != "" {
		c.SetAppointmentType(Type(req.AppointmentType))
	}
	if req.DoctorID != "" {
		c.SetDoctor(req.DoctorID)
	}
	if req.PreferredDate != "" {
		c.SetPreferredDate(req.PreferredDate)
	}
	if req.TimeSlot != "" {
		c.SetTimeSlot(req.TimeSlot)
	}
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, c *Coordinator, err error) {
	switch {
	case errors.Is(err, ErrBusy):
		http.Error(w, "another request is in progress", http.StatusConflict)
	case errors.Is(err, ErrNotAuthenticated):
		http.Error(w, "authentication required", http.StatusUnauthorized)
	case errors.Is(err, ErrValidation):
		writeJSON(w, http.StatusBadRequest, submitResponse{Message: c.Message()})
	default:
		writeJSON(w, http.StatusBadGateway, submitResponse{Message: c.Message()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
