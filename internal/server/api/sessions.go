// Package api provides HTTP API handlers for moodcam session history.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/moodcam/internal/store"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// SessionHandler handles HTTP requests for recorded sessions.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/sessions or /api/sessions/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type sessionResponse struct {
	ID         string  `json:"id"`
	StartedAt  string  `json:"started_at"`
	EndedAt    string  `json:"ended_at,omitempty"`
	Duration   string  `json:"duration,omitempty"`
	Analyses   int     `json:"analyses"`
	AverageAge float64 `json:"average_age"`
}

type emotionResponse struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
}

type gestureEventResponse struct {
	Gesture   string `json:"gesture"`
	CreatedAt string `json:"created_at"`
}

type sessionDetailResponse struct {
	sessionResponse
	Emotions []emotionResponse      `json:"emotions"`
	Moods    []int                  `json:"moods"`
	Gestures []gestureEventResponse `json:"gestures"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Session to a sessionResponse.
func toResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:         s.ID,
		StartedAt:  s.StartedAt.Format(timeLayout),
		Analyses:   s.Analyses,
		AverageAge: s.AverageAge,
	}
	if s.Finished() {
		resp.EndedAt = s.EndedAt.Format(timeLayout)
		resp.Duration = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
	}
	return resp
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding response: %v", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/sessions and returns all sessions, newest first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toResponse(s))
	}

	WriteJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id} and returns a session with its emotion
// histogram, mood series and gesture events.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	emotions, err := h.store.Sessions().Emotions(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get session emotions")
		return
	}
	moods, err := h.store.Sessions().Moods(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get session moods")
		return
	}
	events, err := h.store.GestureEvents().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get session gestures")
		return
	}

	response := sessionDetailResponse{
		sessionResponse: toResponse(session),
		Emotions:        make([]emotionResponse, 0, len(emotions)),
		Moods:           moods,
		Gestures:        make([]gestureEventResponse, 0, len(events)),
	}
	if response.Moods == nil {
		response.Moods = []int{}
	}
	for _, e := range emotions {
		response.Emotions = append(response.Emotions, emotionResponse{Emotion: e.Emotion, Count: e.Count})
	}
	for _, e := range events {
		response.Gestures = append(response.Gestures, gestureEventResponse{
			Gesture:   e.Gesture,
			CreatedAt: e.CreatedAt.Format(timeLayout),
		})
	}

	WriteJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/sessions/{id} and removes a session.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Sessions().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
