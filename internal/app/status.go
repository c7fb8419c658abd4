package app

import (
	"github.com/ayusman/moodcam/internal/face"
	"github.com/ayusman/moodcam/internal/gesture"
	"github.com/ayusman/moodcam/internal/pipeline"
)

// Status is the live view of the application shown by the tray and dashboard.
type Status struct {
	Running    bool            `json:"running"`
	SessionID  string          `json:"session_id,omitempty"`
	Emotion    string          `json:"emotion"`
	Age        int             `json:"age"`
	Faces      int             `json:"faces"`
	Hands      int             `json:"hands"`
	Gesture    gesture.Gesture `json:"gesture"`
	GameActive bool            `json:"game_active"`
	Score      int             `json:"score"`
	Missed     int             `json:"missed"`
	Analyses   int             `json:"analyses"`
	Dominant   string          `json:"dominant,omitempty"`
	FaceStats  pipeline.Stats  `json:"face_pipeline"`
	HandStats  pipeline.Stats  `json:"hand_pipeline"`
}

// sameView reports whether two statuses show the same thing to a user.
// Pipeline counters are ignored.
func (s Status) sameView(o Status) bool {
	return s.Running == o.Running &&
		s.SessionID == o.SessionID &&
		s.Emotion == o.Emotion &&
		s.Age == o.Age &&
		s.Faces == o.Faces &&
		s.Hands == o.Hands &&
		s.Gesture == o.Gesture &&
		s.GameActive == o.GameActive &&
		s.Score == o.Score &&
		s.Missed == o.Missed
}

// Status returns the current emotion, gesture, game score, session state and
// pipeline counters.
func (a *App) Status() Status {
	a.mu.RLock()
	s := a.current
	st := Status{
		Running:    s != nil,
		Emotion:    face.UnknownEmotion,
		Gesture:    a.gesture,
		GameActive: a.gameOn,
	}
	a.mu.RUnlock()

	game := a.game.State()
	st.Score = game.Score
	st.Missed = game.Missed

	snap := a.stats.Snapshot()
	st.Analyses = snap.Total
	st.Dominant = snap.Dominant

	if s == nil {
		return st
	}

	st.SessionID = s.id
	st.FaceStats = s.faces.Stats()
	st.HandStats = s.hands.Stats()

	if faces, ok := s.faces.Latest(); ok {
		st.Faces = len(faces)
		if primary, ok := face.Primary(faces); ok {
			st.Emotion = primary.Emotion()
			st.Age = primary.Age
		}
	}
	if hands, ok := s.hands.Latest(); ok {
		st.Hands = len(hands)
	}

	return st
}

// publishStatus sends the status to the status sinks when its visible part
// changed since the last call.
func (a *App) publishStatus() {
	st := a.Status()

	a.mu.Lock()
	if st.sameView(a.lastStatus) {
		a.mu.Unlock()
		return
	}
	a.lastStatus = st
	a.mu.Unlock()

	a.sinkMu.RLock()
	sinks := append([]StatusSink(nil), a.statusSinks...)
	a.sinkMu.RUnlock()

	for _, sink := range sinks {
		sink.PublishStatus(st)
	}
}
