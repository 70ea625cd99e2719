package adapter

import (
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/treadwise/agent/internal/config"
)

//go:embed static/index.html
var indexHTML []byte

// maxChatBody bounds POST /api/chat request bodies.
const maxChatBody = 64 << 10

// SessionResetter drops a session's conversation.
type SessionResetter interface {
	Reset(sessionID string) bool
}

// WebAdapter serves the browser chat widget and its JSON API. It owns no
// listener; the daemon's HTTP server calls Register.
type WebAdapter struct {
	replier  Replier
	sessions SessionResetter
	chat     config.ChatConfig
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type widgetConfig struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
}

func NewWebAdapter(replier Replier, sessions SessionResetter, chat config.ChatConfig) *WebAdapter {
	return &WebAdapter{
		replier:  replier,
		sessions: sessions,
		chat:     chat,
	}
}

func (a *WebAdapter) Name() string {
	return "web"
}

// Register mounts the widget routes on mux.
func (a *WebAdapter) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleIndex)
	mux.HandleFunc("GET /api/config", a.handleConfig)
	mux.HandleFunc("POST /api/chat", a.handleChat)
	mux.HandleFunc("POST /api/sessions/{id}/reset", a.handleReset)
}

// Handler exposes the routes on a fresh mux.
func (a *WebAdapter) Handler() http.Handler {
	mux := http.NewServeMux()
	a.Register(mux)
	return mux
}

func (a *WebAdapter) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (a *WebAdapter) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, widgetConfig{
		Title:       a.chat.Title,
		Description: a.chat.Description,
		Examples:    a.chat.Examples,
	})
}

func (a *WebAdapter) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}

	reply := a.replier.Reply(r.Context(), SessionKey(a.Name(), sessionID), req.Message)
	writeJSON(w, http.StatusOK, chatResponse{SessionID: sessionID, Reply: reply})
}

func (a *WebAdapter) handleReset(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session id is required"})
		return
	}
	existed := false
	if a.sessions != nil {
		existed = a.sessions.Reset(SessionKey(a.Name(), id))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reset": existed})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
