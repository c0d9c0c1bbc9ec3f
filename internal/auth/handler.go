package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/careconnect-ai/platform/pkg/logging"
)

// Handler exposes anonymous session issuance over HTTP.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type tokenResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	ExpiresIn int64  `json:"expiresIn"`
}

// HandleToken mints a fresh anonymous session token.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	token, userID, err := h.svc.Issue()
	if err != nil {
		if errors.Is(err, ErrNoSecret) {
			http.Error(w, "authentication not configured", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("token issue failed", "error", err)
		http.Error(w, "could not issue token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResponse{
		Token:     token,
		UserID:    userID,
		ExpiresIn: int64(h.svc.ttl / time.Second),
	})
}
