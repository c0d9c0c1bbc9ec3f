package assist

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/careconnect-ai/platform/internal/auth"
	"github.com/careconnect-ai/platform/pkg/logging"
)

// Handler manages assistant chat connections and messages.
type Handler struct {
	publisher  *Publisher
	transcript *TranscriptStore
	knowledge  KnowledgeQuerier
	logger     *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // sessionID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// InboundMessage is what the chat widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "error", "pong"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates the assistant chat handler. knowledge may be nil; the
// knowledge-query endpoint then reports itself unconfigured.
func NewHandler(publisher *Publisher, transcript *TranscriptStore, knowledge KnowledgeQuerier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		publisher:  publisher,
		transcript: transcript,
		knowledge:  knowledge,
		logger:     logger,
		sessions:   make(map[string]*wsConn),
	}
}

// Routes mounts the assistant endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/ws", h.HandleWebSocket)
	r.Post("/chat", h.HandleChat)
	r.Get("/history", h.HandleHistory)
	r.Post("/knowledge-query", h.HandleKnowledgeQuery)
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time chat.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})

	if msgs, err := h.transcript.List(r.Context(), sessionID, 50); err == nil && len(msgs) > 0 {
		history := make([]HistoryMessage, 0, len(msgs))
		for _, m := range msgs {
			history = append(history, HistoryMessage{
				Role:      m.Role,
				Text:      m.Body,
				Timestamp: m.Timestamp.Format(time.RFC3339),
			})
		}
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
	}

	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.sessions[sessionID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[sessionID] == wsc {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
		close(wsc.done)
	}()

	h.logger.Info("assist: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("assist: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		h.processMessage(r.Context(), userID, sessionID, msg.Text)
	}
}

func (h *Handler) processMessage(ctx context.Context, userID, sessionID, text string) {
	_ = h.transcript.Append(ctx, sessionID, TranscriptMessage{
		Role: "user",
		Body: text,
	})

	h.sendToSession(sessionID, OutboundMessage{Type: "typing"})

	err := h.publisher.EnqueueChat(ctx, Job{
		UserID:    userID,
		SessionID: sessionID,
		Prompt:    text,
	})
	if err != nil {
		h.logger.Error("assist: failed to enqueue chat", "error", err, "session_id", sessionID)
		h.sendToSession(sessionID, OutboundMessage{
			Type: "error",
			Text: "Sorry, something went wrong. Please try again.",
		})
	}
}

// NotifyReply pushes a generated answer to the session's live connection.
// It satisfies the worker's ReplyNotifier.
func (h *Handler) NotifyReply(sessionID string, msg TranscriptMessage) {
	h.sendToSession(sessionID, OutboundMessage{
		Type:      "message",
		Role:      msg.Role,
		Text:      msg.Body,
		Timestamp: msg.Timestamp.Format(time.RFC3339),
	})
}

func (h *Handler) sendToSession(sessionID string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = websocket.JSON.Send(wsc.conn, msg)
}

// HandleChat is the HTTP fallback for sending messages.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Prompt    string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	h.processMessage(r.Context(), userID, req.SessionID, req.Prompt)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":     "queued",
		"session_id": req.SessionID,
	})
}

// HandleKnowledgeQuery answers a prompt directly from the indexed health
// records, bypassing the conversational queue.
func (h *Handler) HandleKnowledgeQuery(w http.ResponseWriter, r *http.Request) {
	if h.knowledge == nil {
		http.Error(w, "knowledge base not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}

	answer, err := h.knowledge.Query(r.Context(), req.Prompt)
	if err != nil {
		h.logger.Error("assist: knowledge query failed", "error", err)
		http.Error(w, "knowledge query failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"response": answer,
		"source":   "knowledge_base",
	})
}

// HandleHistory returns chat history for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	msgs, err := h.transcript.List(r.Context(), sessionID, 100)
	if err != nil {
		h.logger.Error("assist: failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      m.Role,
			Text:      m.Body,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": history})
}
