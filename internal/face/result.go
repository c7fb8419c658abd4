// Package face analyzes facial emotion and age through an external service.
package face

import (
	"image"
	"sort"
)

// UnknownEmotion is reported when the analyzer gives no dominant emotion.
const UnknownEmotion = "unknown"

// Region is a face box in the pixel space of the analyzed frame.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Rect converts the region to an image rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// AnalysisResult is the analysis of one face.
type AnalysisResult struct {
	DominantEmotion string             `json:"dominant_emotion"`
	Emotions        map[string]float64 `json:"emotions"`
	Age             int                `json:"age"`
	DominantGender  string             `json:"dominant_gender,omitempty"`
	DominantRace    string             `json:"dominant_race,omitempty"`
	Region          Region             `json:"region"`

	// Scale maps Region back to display space; the analyzed frame was
	// downsampled by this factor.
	Scale float64 `json:"scale"`
}

// Emotion returns the dominant emotion or UnknownEmotion.
func (r AnalysisResult) Emotion() string {
	if r.DominantEmotion == "" {
		return UnknownEmotion
	}
	return r.DominantEmotion
}

// DisplayRegion returns the face box in display coordinates.
func (r AnalysisResult) DisplayRegion() image.Rectangle {
	scale := r.Scale
	if scale <= 0 {
		scale = 1
	}
	return image.Rect(
		int(float64(r.Region.X)*scale),
		int(float64(r.Region.Y)*scale),
		int(float64(r.Region.X+r.Region.W)*scale),
		int(float64(r.Region.Y+r.Region.H)*scale),
	)
}

// EmotionScore is one entry of the emotion distribution.
type EmotionScore struct {
	Emotion string  `json:"emotion"`
	Score   float64 `json:"score"`
}

// TopEmotions returns the n highest scoring emotions, highest first.
// Ties are ordered by name.
func (r AnalysisResult) TopEmotions(n int) []EmotionScore {
	scores := make([]EmotionScore, 0, len(r.Emotions))
	for e, s := range r.Emotions {
		scores = append(scores, EmotionScore{Emotion: e, Score: s})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Emotion < scores[j].Emotion
	})

	if n >= 0 && len(scores) > n {
		scores = scores[:n]
	}
	return scores
}

// Primary returns the first analyzed face, which drives statistics and status.
func Primary(results []AnalysisResult) (AnalysisResult, bool) {
	if len(results) == 0 {
		return AnalysisResult{DominantEmotion: UnknownEmotion}, false
	}
	return results[0], true
}
