// Package detector provides hand keypoint detection interfaces and types for gesture recognition.
package detector

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// Hand keypoint indices following the MediaPipe hand landmark convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumKeypoints = 21
)

// Layout of the raw handpose output vector: a bounding box (x1, y1, x2, y2),
// 21 screen landmarks (x, y, z), 21 world landmarks (x, y, z), handedness and
// confidence.
const (
	vectorBoxLen      = 4
	vectorLandmarkLen = NumKeypoints * 3
	minVectorLen      = vectorBoxLen + vectorLandmarkLen
	fullVectorLen     = vectorBoxLen + 2*vectorLandmarkLen + 2
)

// ErrShortVector is returned when a handpose output vector is too short to hold
// a bounding box and 21 landmarks.
var ErrShortVector = errors.New("handpose vector too short")

// Point is a 2D keypoint in frame pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Norm returns the length of p as a vector.
func (p Point) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return a.Sub(b).Norm()
}

// HandKeypoints is one detected hand: 21 keypoints indexed by anatomical role,
// the detector's bounding box and its confidence. Values are treated as
// read-only once produced by a detector.
type HandKeypoints struct {
	Points []Point         `json:"points"`
	Box    image.Rectangle `json:"box"`
	Score  float64         `json:"score"`
}

// Bounds returns the detector's box, or the extent of the keypoints when the
// detector did not report one.
func (h HandKeypoints) Bounds() image.Rectangle {
	if !h.Box.Empty() {
		return h.Box
	}
	if len(h.Points) == 0 {
		return image.Rectangle{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range h.Points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	return image.Rect(int(minX), int(minY), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

// Scale returns a copy of the hand with every coordinate multiplied by factor.
func (h HandKeypoints) Scale(factor float64) HandKeypoints {
	scaled := HandKeypoints{
		Points: make([]Point, len(h.Points)),
		Score:  h.Score,
		Box: image.Rect(
			int(float64(h.Box.Min.X)*factor),
			int(float64(h.Box.Min.Y)*factor),
			int(float64(h.Box.Max.X)*factor),
			int(float64(h.Box.Max.Y)*factor),
		),
	}
	for i, p := range h.Points {
		scaled.Points[i] = Point{X: p.X * factor, Y: p.Y * factor}
	}
	return scaled
}

// DecodeHandVector converts a raw handpose output vector into HandKeypoints.
// Only the x and y components of the screen landmarks are kept. The confidence
// is read from the last element when the full layout is present, otherwise
// the score is 1.
func DecodeHandVector(v []float64) (HandKeypoints, error) {
	if len(v) < minVectorLen {
		return HandKeypoints{}, fmt.Errorf("%w: got %d values, need %d", ErrShortVector, len(v), minVectorLen)
	}

	hand := HandKeypoints{
		Points: make([]Point, NumKeypoints),
		Box:    image.Rect(int(v[0]), int(v[1]), int(v[2]), int(v[3])),
		Score:  1,
	}

	for i := 0; i < NumKeypoints; i++ {
		base := vectorBoxLen + i*3
		hand.Points[i] = Point{X: v[base], Y: v[base+1]}
	}

	if len(v) >= fullVectorLen {
		hand.Score = v[fullVectorLen-1]
	}

	return hand, nil
}
