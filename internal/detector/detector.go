package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand keypoint detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns one keypoint set per detected hand,
	// in the frame's pixel coordinates. Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandKeypoints, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to report (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:      2,
		MinConfidence: 0.5,
	}
}

// filterHands drops hands below the confidence threshold and caps the result at MaxHands.
func (c Config) filterHands(hands []HandKeypoints) []HandKeypoints {
	kept := hands[:0]
	for _, h := range hands {
		if h.Score < c.MinConfidence {
			continue
		}
		kept = append(kept, h)
		if c.MaxHands > 0 && len(kept) == c.MaxHands {
			break
		}
	}
	return kept
}
