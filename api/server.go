package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	qr "github.com/skip2/go-qrcode"

	"github.com/wricardo/memorygame/game/engine"
	"github.com/wricardo/memorygame/game/service"
	"github.com/wricardo/memorygame/game/session"
	"github.com/wricardo/memorygame/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service   service.GameService
	hub       *websocket.Hub
	router    *mux.Router
	staticDir string

	mu        sync.RWMutex
	publicURL string
}

// Option configures a Server
type Option func(*Server)

// WithStaticDir serves the browser client from dir at /
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// WithPublicURL sets the base URL used in share links and QR codes
func WithPublicURL(u string) Option {
	return func(s *Server) { s.publicURL = strings.TrimRight(u, "/") }
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service:   gameService,
		hub:       hub,
		router:    mux.NewRouter(),
		staticDir: "./static/",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// SetPublicURL replaces the share link base, e.g. once a tunnel is up
func (s *Server) SetPublicURL(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicURL = strings.TrimRight(u, "/")
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/qr", s.handleSessionQR).Methods("GET")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/flip", s.handleFlip).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset-unmatched", s.handleResetUnmatched).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")

	api.HandleFunc("/difficulties", s.handleListDifficulties).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to status codes
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCard), errors.Is(err, engine.ErrUnknownDifficulty):
		status = http.StatusBadRequest
	}
	respondError(w, status, err.Error())
}

// decodeOptional decodes a JSON body if one was sent
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Difficulty string `json:"difficulty,omitempty"`
	}
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	difficulty, err := parseOptionalDifficulty(req.Difficulty)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.CreateSession(r.Context(), difficulty)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[SESSION] created id=%s difficulty=%s", info.ID, info.Difficulty)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)
	if sortBy != "created" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < len(sessions) {
		sessions = sessions[:l]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, "session_deleted", nil)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

func (s *Server) handleSessionQR(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	png, err := qr.Encode(s.shareURL(r, info.ID), qr.Medium, 256)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to encode QR code: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// shareURL links to the browser client for sessionID
func (s *Server) shareURL(r *http.Request, sessionID string) string {
	s.mu.RLock()
	base := s.publicURL
	s.mu.RUnlock()

	if base == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?session=" + url.QueryEscape(sessionID)
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		CardID string `json:"card_id,omitempty"`
		Index  *int   `json:"index,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		result *service.FlipResult
		err    error
	)
	switch {
	case req.CardID != "":
		result, err = s.service.Flip(r.Context(), sessionID, req.CardID)
	case req.Index != nil:
		result, err = s.service.FlipAt(r.Context(), sessionID, *req.Index)
	default:
		respondError(w, http.StatusBadRequest, "card_id or index is required")
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil && result.Success {
		s.hub.BroadcastToSession(sessionID, result.State)
	}

	// Compact server log for observability
	kinds := make([]string, 0, len(result.Events))
	for _, e := range result.Events {
		kinds = append(kinds, e.Type)
	}
	if result.Card != nil {
		log.Printf("[FLIP] session=%s card=%d value=%d events=%s score=%d attempts=%d",
			sessionID, result.Card.Index, result.Card.Value, strings.Join(kinds, ","), result.State.Score, result.State.Attempts)
	} else {
		log.Printf("[FLIP] session=%s IGNORED reason=%q", sessionID, result.Message)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleResetUnmatched(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	view, err := s.service.ResetUnmatched(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, view)
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Difficulty string `json:"difficulty,omitempty"`
	}
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	difficulty, err := parseOptionalDifficulty(req.Difficulty)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.service.Reset(r.Context(), sessionID, difficulty)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, view)
	}

	log.Printf("[RESET] session=%s difficulty=%s cards=%d", sessionID, view.Difficulty, len(view.Cards))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   view,
	})
}

func (s *Server) handleListDifficulties(w http.ResponseWriter, r *http.Request) {
	difficulties, err := s.service.ListDifficulties(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, difficulties)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live updates unavailable", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	view, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID, view)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"sessions": len(sessions),
	})
}

func parseOptionalDifficulty(s string) (engine.Difficulty, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return engine.ParseDifficulty(s)
}
