package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/moodcam/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

var started = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// finishedSession stores a session with a histogram, moods and one gesture event.
func finishedSession(t *testing.T, s *store.Store) *store.Session {
	t.Helper()

	sess, err := s.Sessions().Create(started)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	err = s.Sessions().Finish(sess.ID, store.SessionSummary{
		EndedAt:    started.Add(90 * time.Second),
		Analyses:   3,
		AverageAge: 30,
		Emotions:   map[string]int{"happy": 2, "sad": 1},
		Moods:      []int{10, 10, -7},
	})
	if err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}
	if err := s.GestureEvents().Create(&store.GestureEvent{
		SessionID: sess.ID,
		Gesture:   "thumbs_up",
		CreatedAt: started.Add(time.Minute),
	}); err != nil {
		t.Fatalf("failed to create gesture event: %v", err)
	}
	return sess
}

func TestSessionHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)

	t.Run("empty store returns empty list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if body := rec.Body.String(); body != "{\"sessions\":[]}\n" {
			t.Errorf("unexpected body %q", body)
		}
	})

	sess := finishedSession(t, s)

	t.Run("lists stored sessions", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if contentType := rec.Header().Get("Content-Type"); contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response listSessionsResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Sessions) != 1 {
			t.Fatalf("expected 1 session, got %d", len(response.Sessions))
		}

		got := response.Sessions[0]
		if got.ID != sess.ID {
			t.Errorf("ID = %s, want %s", got.ID, sess.ID)
		}
		if got.Duration != "1m30s" {
			t.Errorf("Duration = %q, want 1m30s", got.Duration)
		}
		if got.Analyses != 3 {
			t.Errorf("Analyses = %d, want 3", got.Analyses)
		}
	})

	t.Run("rejects other methods", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestSessionHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	sess := finishedSession(t, s)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID, nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response struct {
		ID       string            `json:"id"`
		EndedAt  string            `json:"ended_at"`
		Emotions []emotionResponse `json:"emotions"`
		Moods    []int             `json:"moods"`
		Gestures []struct {
			Gesture string `json:"gesture"`
		} `json:"gestures"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.ID != sess.ID {
		t.Errorf("ID = %s, want %s", response.ID, sess.ID)
	}
	if response.EndedAt != "2026-03-14T09:01:30Z" {
		t.Errorf("EndedAt = %s", response.EndedAt)
	}
	if len(response.Emotions) != 2 || response.Emotions[0] != (emotionResponse{"happy", 2}) {
		t.Errorf("unexpected emotions: %+v", response.Emotions)
	}
	if len(response.Moods) != 3 || response.Moods[2] != -7 {
		t.Errorf("unexpected moods: %v", response.Moods)
	}
	if len(response.Gestures) != 1 || response.Gestures[0].Gesture != "thumbs_up" {
		t.Errorf("unexpected gestures: %+v", response.Gestures)
	}
}

func TestSessionHandler_GetRunning(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)

	sess, err := s.Sessions().Create(started)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID, nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	var response map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := response["ended_at"]; ok {
		t.Error("running session should not report ended_at")
	}
	if moods, ok := response["moods"].([]any); !ok || len(moods) != 0 {
		t.Errorf("expected empty moods array, got %v", response["moods"])
	}
}

func TestSessionHandler_NotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/sessions/missing", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", method, http.StatusNotFound, rec.Code)
		}

		var response errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Error != "Session not found" {
			t.Errorf("%s: unexpected error %q", method, response.Error)
		}
	}
}

func TestSessionHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	sess := finishedSession(t, s)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sess.ID, nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	if _, err := s.Sessions().GetByID(sess.ID); err != store.ErrNotFound {
		t.Errorf("expected session to be deleted, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/sessions/"+sess.ID, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT: expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
