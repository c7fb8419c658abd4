// Package stats accumulates emotion and age statistics over a camera session.
package stats

import (
	"sort"
	"sync"

	"github.com/ayusman/moodcam/internal/face"
)

// moodScale maps a dominant emotion to a mood score in [-10, 10].
var moodScale = map[string]int{
	"happy":    10,
	"surprise": 5,
	"neutral":  0,
	"fear":     -4,
	"sad":      -7,
	"disgust":  -9,
	"angry":    -10,
}

// MoodScore returns the mood score of an emotion; unknown emotions score 0.
func MoodScore(emotion string) int {
	return moodScale[emotion]
}

// Snapshot is an immutable copy of the accumulated statistics.
type Snapshot struct {
	Total      int            `json:"total"`
	Emotions   map[string]int `json:"emotions"`
	Ages       []int          `json:"ages"`
	Moods      []int          `json:"moods"`
	AverageAge float64        `json:"average_age"`
	Dominant   string         `json:"dominant"`
}

// Share returns the fraction of analyses whose dominant emotion was emotion.
func (s Snapshot) Share(emotion string) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Emotions[emotion]) / float64(s.Total)
}

// EmotionNames returns the recorded emotions sorted by count, highest first.
func (s Snapshot) EmotionNames() []string {
	names := make([]string, 0, len(s.Emotions))
	for e := range s.Emotions {
		names = append(names, e)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := s.Emotions[names[i]], s.Emotions[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	return names
}

// Accumulator collects one analysis per Record call. It is written by the
// analysis worker and read through Snapshot.
type Accumulator struct {
	mu       sync.Mutex
	total    int
	emotions map[string]int
	ages     []int
	moods    []int
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{emotions: make(map[string]int)}
}

// Record adds the first face of an analysis. Analyses without faces are ignored.
func (a *Accumulator) Record(results []face.AnalysisResult) {
	r, ok := face.Primary(results)
	if !ok {
		return
	}

	emotion := r.Emotion()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.emotions[emotion]++
	a.ages = append(a.ages, r.Age)
	a.moods = append(a.moods, MoodScore(emotion))
}

// Reset discards everything recorded so far.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total = 0
	a.emotions = make(map[string]int)
	a.ages = nil
	a.moods = nil
}

// Snapshot returns a copy of the current statistics.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		Total:    a.total,
		Emotions: make(map[string]int, len(a.emotions)),
		Ages:     append([]int(nil), a.ages...),
		Moods:    append([]int(nil), a.moods...),
	}
	for e, c := range a.emotions {
		s.Emotions[e] = c
	}

	if len(s.Ages) > 0 {
		sum := 0
		for _, age := range s.Ages {
			sum += age
		}
		s.AverageAge = float64(sum) / float64(len(s.Ages))
	}

	if names := s.EmotionNames(); len(names) > 0 {
		s.Dominant = names[0]
	}

	return s
}
