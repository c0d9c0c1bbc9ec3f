package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/careconnect-ai/platform/pkg/logging"
)

// TextSimplifier rewrites clinical text in plain language.
type TextSimplifier interface {
	Simplify(ctx context.Context, text string) (string, error)
}

// TextTranslator renders simplified text in another language.
type TextTranslator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// Handler serves the reports endpoints.
type Handler struct {
	repo       Repository
	archiver   *Archiver
	simplifier TextSimplifier
	translator TextTranslator
	logger     *logging.Logger
}

// NewHandler creates the reports handler. archiver, simplifier and
// translator may be nil; the corresponding features degrade gracefully.
func NewHandler(repo Repository, archiver *Archiver, simplifier TextSimplifier, translator TextTranslator, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("reports: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, archiver: archiver, simplifier: simplifier, translator: translator, logger: logger}
}

// Routes mounts the reports endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}/document", h.HandleDocument)
	r.Post("/process-text", h.HandleProcessText)
}

// HandleList returns all reports, newest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("reports: list failed", "error", err)
		http.Error(w, "failed to fetch reports", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []Report{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCreate stores a new report.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title           string `json:"title"`
		Diagnosis       string `json:"diagnosis"`
		Recommendations string `json:"recommendations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(r.Context(), Report{
		Title: req.Title,
		Content: Content{
			Diagnosis:       req.Diagnosis,
			Recommendations: req.Recommendations,
		},
	})
	if err != nil {
		h.logger.Error("reports: create failed", "error", err)
		http.Error(w, "failed to create report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleDocument renders the printable document for a report and archives a
// copy when an archive bucket is configured.
func (h *Handler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "report not found", http.StatusNotFound)
			return
		}
		h.logger.Error("reports: get failed", "error", err, "report_id", id)
		http.Error(w, "failed to fetch report", http.StatusInternalServerError)
		return
	}

	document, err := RenderDocument(report)
	if err != nil {
		h.logger.Error("reports: render failed", "error", err, "report_id", id)
		http.Error(w, "failed to generate document", http.StatusInternalServerError)
		return
	}

	// Best effort: the patient still gets the document if S3 is down.
	if err := h.archiver.ArchiveDocument(r.Context(), report, document); err != nil {
		h.logger.Warn("reports: archive failed", "error", err, "report_id", id)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "Report-"+report.ID+".html"))
	_, _ = w.Write(document)
}

// HandleProcessText rewrites clinical text in plain language and, when a
// non-English language is requested, translates the rewrite as well. The
// translated text defaults to the simplified text so callers can always
// read the translatedText field.
func (h *Handler) HandleProcessText(w http.ResponseWriter, r *http.Request) {
	if h.simplifier == nil {
		http.Error(w, "text processing not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	simplified, err := h.simplifier.Simplify(r.Context(), req.Text)
	if err != nil {
		h.logger.Error("reports: process text failed", "error", err)
		http.Error(w, "AI processing failed", http.StatusBadGateway)
		return
	}

	translated := simplified
	if req.Language != "en" && h.translator != nil {
		translated, err = h.translator.Translate(r.Context(), simplified, req.Language)
		if err != nil {
			h.logger.Error("reports: translate failed", "error", err, "language", req.Language)
			http.Error(w, "AI processing failed", http.StatusBadGateway)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"simplifiedText": simplified,
		"translatedText": translated,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
