// Package gesture classifies static hand poses from 2D keypoints using joint
// angles and palm-normalised distances.
package gesture

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/moodcam/internal/detector"
)

// Gesture is the label produced by the classifier.
type Gesture string

const (
	OpenHand   Gesture = "open_hand"
	ThumbsUp   Gesture = "thumbs_up"
	OK         Gesture = "ok"
	Fist       Gesture = "fist"
	TwoFingers Gesture = "two_fingers"
	None       Gesture = "none"
)

// Finger identifies one of the five digits.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

var fingerNames = [...]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if f < Thumb || f > Pinky {
		return fmt.Sprintf("finger(%d)", int(f))
	}
	return fingerNames[f]
}

// FingerStates reports whether each finger is extended.
type FingerStates map[Finger]bool

// AllFlexed reports whether index, middle, ring and pinky are all flexed.
func (s FingerStates) AllFlexed() bool {
	return !s[Index] && !s[Middle] && !s[Ring] && !s[Pinky]
}

// joints lists the keypoints whose angle decides extension for each finger.
var joints = map[Finger][3]int{
	Thumb:  {detector.ThumbCMC, detector.ThumbMCP, detector.ThumbIP},
	Index:  {detector.IndexMCP, detector.IndexPIP, detector.IndexDIP},
	Middle: {detector.MiddleMCP, detector.MiddlePIP, detector.MiddleDIP},
	Ring:   {detector.RingMCP, detector.RingPIP, detector.RingDIP},
	Pinky:  {detector.PinkyMCP, detector.PinkyPIP, detector.PinkyDIP},
}

const degenerateLength = 1e-6

// ErrInvalidInput is matched by every InvalidInputError.
var ErrInvalidInput = errors.New("invalid hand keypoints")

// InvalidInputError is returned when the input does not hold exactly 21 points.
type InvalidInputError struct {
	Got int
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%v: expected %d points, got %d", ErrInvalidInput, detector.NumKeypoints, e.Got)
}

// Is lets errors.Is(err, ErrInvalidInput) match.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Thresholds holds the calibration constants of the classifier.
type Thresholds struct {
	// ThumbExtendedDeg is the CMC-MCP-IP angle above which the thumb counts as extended.
	ThumbExtendedDeg float64
	// FingerExtendedDeg is the MCP-PIP-DIP angle above which a finger counts as extended.
	FingerExtendedDeg float64
	// OKRatio is the maximum thumb-tip to index-tip distance, in palm sizes, for "ok".
	OKRatio float64
	// ThumbSticky is the thumb-tip to index-MCP distance, in palm sizes, below
	// which a closed hand is a fist regardless of the thumb angle.
	ThumbSticky float64
	// ThumbDetachMargin is added to ThumbSticky to get the detached threshold.
	ThumbDetachMargin float64
}

// DefaultThresholds returns the calibrated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ThumbExtendedDeg:  155,
		FingerExtendedDeg: 165,
		OKRatio:           0.35,
		ThumbSticky:       0.55,
		ThumbDetachMargin: 0.10,
	}
}

// ThumbDetached is the distance above which the thumb counts as away from the palm.
func (t Thresholds) ThumbDetached() float64 {
	return t.ThumbSticky + t.ThumbDetachMargin
}

// Classifier maps hand keypoints to a Gesture. It holds no state beyond its
// thresholds and is safe for concurrent use.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(thresholds Thresholds) *Classifier {
	return &Classifier{thresholds: thresholds}
}

// Thresholds returns the classifier's calibration.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

var defaultClassifier = NewClassifier(DefaultThresholds())

// Classify labels the keypoints with the default thresholds.
func Classify(points []detector.Point) (Gesture, error) {
	return defaultClassifier.Classify(points)
}

// Classify labels a hand. Rules are evaluated in order and the first match wins.
func (c *Classifier) Classify(points []detector.Point) (Gesture, error) {
	states, err := c.FingerStates(points)
	if err != nil {
		return None, err
	}

	palm := palmSize(points)
	dThumb := detector.Distance(points[detector.ThumbTip], points[detector.IndexMCP]) / palm
	dThumbIndex := detector.Distance(points[detector.ThumbTip], points[detector.IndexTip]) / palm

	t := c.thresholds
	switch {
	case dThumbIndex < t.OKRatio && states[Middle] && states[Ring] && states[Pinky]:
		return OK, nil
	case states[Index] && states[Middle] && states[Ring] && states[Pinky] && dThumb > t.ThumbDetached():
		return OpenHand, nil
	case states[Index] && states[Middle] && !states[Ring] && !states[Pinky]:
		return TwoFingers, nil
	case states.AllFlexed():
		if dThumb < t.ThumbSticky {
			return Fist, nil
		}
		if dThumb > t.ThumbDetached() && states[Thumb] {
			return ThumbsUp, nil
		}
		// Thumb in the dead zone between sticky and detached.
		return Fist, nil
	}

	return None, nil
}

// FingerStates returns the extension state of every finger.
func (c *Classifier) FingerStates(points []detector.Point) (FingerStates, error) {
	if len(points) != detector.NumKeypoints {
		return nil, &InvalidInputError{Got: len(points)}
	}

	states := make(FingerStates, len(joints))
	for finger, j := range joints {
		limit := c.thresholds.FingerExtendedDeg
		if finger == Thumb {
			limit = c.thresholds.ThumbExtendedDeg
		}
		states[finger] = JointAngle(points[j[0]], points[j[1]], points[j[2]]) > limit
	}
	return states, nil
}

// JointAngle returns the angle at b between the rays b->a and b->c, in degrees.
// A ray shorter than 1e-6 yields 180, so degenerate joints read as straight.
func JointAngle(a, b, c detector.Point) float64 {
	ba := a.Sub(b)
	bc := c.Sub(b)

	nba, nbc := ba.Norm(), bc.Norm()
	if nba < degenerateLength || nbc < degenerateLength {
		return 180
	}

	cos := (ba.X*bc.X + ba.Y*bc.Y) / (nba * nbc)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

func palmSize(points []detector.Point) float64 {
	size := detector.Distance(points[detector.Wrist], points[detector.IndexMCP])
	if size < degenerateLength {
		return 1.0
	}
	return size
}
