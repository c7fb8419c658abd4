package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/moodcam/internal/store"
)

func TestAPI_SessionWorkflow(t *testing.T) {
	// Setup
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	sess, err := s.Sessions().Create(time.Now())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := s.Sessions().Finish(sess.ID, store.SessionSummary{
		EndedAt:  time.Now(),
		Analyses: 2,
		Emotions: map[string]int{"neutral": 2},
		Moods:    []int{0, 0},
	}); err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}

	srv := New(Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. List sessions
	resp, err := client.Get(ts.URL + "/api/sessions")
	if err != nil {
		t.Fatalf("GET /api/sessions error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/sessions status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var listed struct {
		Sessions []struct {
			ID       string `json:"id"`
			Analyses int    `json:"analyses"`
		} `json:"sessions"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Sessions) != 1 || listed.Sessions[0].ID != sess.ID {
		t.Fatalf("unexpected sessions: %+v", listed.Sessions)
	}

	// 2. Get single session with its histogram and mood series
	resp, _ = client.Get(ts.URL + "/api/sessions/" + sess.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/sessions/%s status = %d, want %d", sess.ID, resp.StatusCode, http.StatusOK)
	}

	var detail struct {
		Emotions []struct {
			Emotion string `json:"emotion"`
			Count   int    `json:"count"`
		} `json:"emotions"`
		Moods []int `json:"moods"`
	}
	json.NewDecoder(resp.Body).Decode(&detail)
	resp.Body.Close()

	if len(detail.Emotions) != 1 || detail.Emotions[0].Emotion != "neutral" || detail.Emotions[0].Count != 2 {
		t.Errorf("unexpected emotions: %+v", detail.Emotions)
	}
	if len(detail.Moods) != 2 {
		t.Errorf("expected 2 mood scores, got %v", detail.Moods)
	}

	// 3. Delete session
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/"+sess.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	// 4. Verify deleted
	resp, _ = client.Get(ts.URL + "/api/sessions/" + sess.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}
