package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandKeypoints
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandKeypoints) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandKeypoints, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Fixture hands share one palm: wrist at (200, 400) and index MCP at (200, 300),
// so the palm size is exactly 100 px.
var (
	fixtureWrist = Point{X: 200, Y: 400}
	indexBase    = Point{X: 200, Y: 300}
	middleBase   = Point{X: 175, Y: 302}
	ringBase     = Point{X: 150, Y: 306}
	pinkyBase    = Point{X: 125, Y: 315}
)

// extendedFinger returns MCP, PIP, DIP and tip in a straight line above the MCP.
func extendedFinger(mcp Point) [4]Point {
	return [4]Point{
		mcp,
		{X: mcp.X, Y: mcp.Y - 40},
		{X: mcp.X, Y: mcp.Y - 72},
		{X: mcp.X, Y: mcp.Y - 96},
	}
}

// flexedFinger returns a finger bent 90 degrees at the PIP joint with the tip
// curled back toward the palm.
func flexedFinger(mcp Point) [4]Point {
	return [4]Point{
		mcp,
		{X: mcp.X, Y: mcp.Y - 30},
		{X: mcp.X + 20, Y: mcp.Y - 30},
		{X: mcp.X + 20, Y: mcp.Y - 10},
	}
}

// buildHand assembles 21 keypoints from the wrist, thumb (CMC, MCP, IP, tip)
// and the four fingers (MCP, PIP, DIP, tip).
func buildHand(thumb, index, middle, ring, pinky [4]Point) HandKeypoints {
	points := make([]Point, 0, NumKeypoints)
	points = append(points, fixtureWrist)
	for _, finger := range [][4]Point{thumb, index, middle, ring, pinky} {
		points = append(points, finger[:]...)
	}

	hand := HandKeypoints{Points: points, Score: 0.95}
	hand.Box = hand.Bounds()
	return hand
}

// Thumb poses used by the fixtures.
var (
	// thumbOut points away from the palm in a straight line, tip 1.15 palms from the index MCP.
	thumbOut = [4]Point{{X: 230, Y: 380}, {X: 260, Y: 350}, {X: 290, Y: 320}, {X: 315, Y: 295}}
	// thumbTucked is bent across the palm, tip about 0.2 palms from the index MCP.
	thumbTucked = [4]Point{{X: 230, Y: 380}, {X: 250, Y: 350}, {X: 240, Y: 320}, {X: 220, Y: 305}}
	// thumbRaised points straight up beside a closed fist, tip 0.86 palms from the index MCP.
	thumbRaised = [4]Point{{X: 240, Y: 370}, {X: 250, Y: 330}, {X: 260, Y: 290}, {X: 270, Y: 250}}
)

// OpenHandKeypoints returns a hand with all four fingers extended and the thumb spread out.
func OpenHandKeypoints() HandKeypoints {
	return buildHand(thumbOut,
		extendedFinger(indexBase), extendedFinger(middleBase),
		extendedFinger(ringBase), extendedFinger(pinkyBase))
}

// FistKeypoints returns a closed fist with the thumb folded against the palm.
func FistKeypoints() HandKeypoints {
	return buildHand(thumbTucked,
		flexedFinger(indexBase), flexedFinger(middleBase),
		flexedFinger(ringBase), flexedFinger(pinkyBase))
}

// ThumbsUpKeypoints returns a closed fist with the thumb extended upward.
func ThumbsUpKeypoints() HandKeypoints {
	return buildHand(thumbRaised,
		flexedFinger(indexBase), flexedFinger(middleBase),
		flexedFinger(ringBase), flexedFinger(pinkyBase))
}

// TwoFingersKeypoints returns a hand with index and middle extended and the rest folded.
func TwoFingersKeypoints() HandKeypoints {
	return buildHand(thumbTucked,
		extendedFinger(indexBase), extendedFinger(middleBase),
		flexedFinger(ringBase), flexedFinger(pinkyBase))
}

// OKKeypoints returns the "ok" sign: thumb and index tips touching, other fingers extended.
func OKKeypoints() HandKeypoints {
	thumb := [4]Point{{X: 230, Y: 380}, {X: 260, Y: 350}, {X: 265, Y: 310}, {X: 245, Y: 268}}
	index := [4]Point{indexBase, {X: 205, Y: 265}, {X: 225, Y: 250}, {X: 242, Y: 262}}
	return buildHand(thumb, index,
		extendedFinger(middleBase), extendedFinger(ringBase), extendedFinger(pinkyBase))
}

// BoxAround returns a square box of the given half-size centred on p, for tests
// that need hand boxes without full keypoints.
func BoxAround(p image.Point, half int) image.Rectangle {
	return image.Rect(p.X-half, p.Y-half, p.X+half, p.Y+half)
}
