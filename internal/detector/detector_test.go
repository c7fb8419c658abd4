package detector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"math"
	"strings"
	"testing"
)

const epsilon = 1e-9

// handVector builds a raw handpose vector with the given box, landmark i at
// (10*i, 20*i) and, when full is set, the world landmarks, handedness and score.
func handVector(full bool, score float64) []float64 {
	v := []float64{5, 6, 205, 306}
	for i := 0; i < NumKeypoints; i++ {
		v = append(v, float64(10*i), float64(20*i), 0.5)
	}
	if full {
		for i := 0; i < NumKeypoints; i++ {
			v = append(v, 0.01, 0.02, 0.03)
		}
		v = append(v, 1, score)
	}
	return v
}

func TestDecodeHandVector(t *testing.T) {
	t.Run("short vector is rejected", func(t *testing.T) {
		_, err := DecodeHandVector(make([]float64, minVectorLen-1))
		if !errors.Is(err, ErrShortVector) {
			t.Fatalf("expected ErrShortVector, got %v", err)
		}
	})

	t.Run("box and screen landmarks", func(t *testing.T) {
		hand, err := DecodeHandVector(handVector(false, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(hand.Points) != NumKeypoints {
			t.Fatalf("expected %d points, got %d", NumKeypoints, len(hand.Points))
		}
		if hand.Box != image.Rect(5, 6, 205, 306) {
			t.Errorf("unexpected box %v", hand.Box)
		}
		if hand.Points[IndexTip] != (Point{X: 80, Y: 160}) {
			t.Errorf("unexpected index tip %v", hand.Points[IndexTip])
		}
		if hand.Score != 1 {
			t.Errorf("expected default score 1, got %f", hand.Score)
		}
	})

	t.Run("full layout carries confidence", func(t *testing.T) {
		hand, err := DecodeHandVector(handVector(true, 0.73))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(hand.Score-0.73) > epsilon {
			t.Errorf("expected score 0.73, got %f", hand.Score)
		}
		if hand.Points[PinkyTip] != (Point{X: 200, Y: 400}) {
			t.Errorf("world landmarks leaked into screen points: %v", hand.Points[PinkyTip])
		}
	})
}

func TestHandKeypoints_Bounds(t *testing.T) {
	t.Run("detector box wins", func(t *testing.T) {
		hand := HandKeypoints{
			Points: []Point{{X: 0, Y: 0}, {X: 50, Y: 50}},
			Box:    image.Rect(1, 2, 3, 4),
		}
		if got := hand.Bounds(); got != image.Rect(1, 2, 3, 4) {
			t.Errorf("expected detector box, got %v", got)
		}
	})

	t.Run("keypoint extent without box", func(t *testing.T) {
		hand := HandKeypoints{Points: []Point{{X: 10.2, Y: 40}, {X: 30, Y: 5}, {X: 20, Y: 60.5}}}
		if got := hand.Bounds(); got != image.Rect(10, 5, 30, 61) {
			t.Errorf("unexpected bounds %v", got)
		}
	})

	t.Run("empty hand", func(t *testing.T) {
		if got := (HandKeypoints{}).Bounds(); !got.Empty() {
			t.Errorf("expected empty bounds, got %v", got)
		}
	})
}

func TestHandKeypoints_Scale(t *testing.T) {
	hand := HandKeypoints{
		Points: []Point{{X: 10, Y: 20}},
		Box:    image.Rect(10, 20, 30, 40),
		Score:  0.8,
	}

	scaled := hand.Scale(4)

	if scaled.Points[0] != (Point{X: 40, Y: 80}) {
		t.Errorf("unexpected point %v", scaled.Points[0])
	}
	if scaled.Box != image.Rect(40, 80, 120, 160) {
		t.Errorf("unexpected box %v", scaled.Box)
	}
	if scaled.Score != 0.8 {
		t.Errorf("score not preserved: %f", scaled.Score)
	}
	if hand.Points[0] != (Point{X: 10, Y: 20}) {
		t.Error("Scale mutated the original hand")
	}
}

func TestDistance(t *testing.T) {
	if d := Distance(Point{X: 1, Y: 1}, Point{X: 4, Y: 5}); math.Abs(d-5) > epsilon {
		t.Errorf("expected 5, got %f", d)
	}
}

func TestConfig_filterHands(t *testing.T) {
	hands := []HandKeypoints{{Score: 0.9}, {Score: 0.2}, {Score: 0.7}, {Score: 0.6}}

	tests := []struct {
		name   string
		config Config
		want   []float64
	}{
		{"defaults", DefaultConfig(), []float64{0.9, 0.7}},
		{"single hand", Config{MaxHands: 1, MinConfidence: 0.5}, []float64{0.9}},
		{"no cap", Config{MaxHands: 0, MinConfidence: 0.5}, []float64{0.9, 0.7, 0.6}},
		{"strict", Config{MaxHands: 2, MinConfidence: 0.95}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := append([]HandKeypoints(nil), hands...)
			got := tt.config.filterHands(input)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d hands, got %d", len(tt.want), len(got))
			}
			for i, h := range got {
				if h.Score != tt.want[i] {
					t.Errorf("hand %d: expected score %f, got %f", i, tt.want[i], h.Score)
				}
			}
		})
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandKeypoints{ThumbsUpKeypoints(), OpenHandKeypoints()})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		if err := NewMockDetector().Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*ServiceDetector)(nil)
		var _ Detector = (*ONNXDetector)(nil)
	})
}

func TestFixtures(t *testing.T) {
	fixtures := map[string]HandKeypoints{
		"open hand":   OpenHandKeypoints(),
		"fist":        FistKeypoints(),
		"thumbs up":   ThumbsUpKeypoints(),
		"two fingers": TwoFingersKeypoints(),
		"ok":          OKKeypoints(),
	}

	for name, hand := range fixtures {
		t.Run(name, func(t *testing.T) {
			if len(hand.Points) != NumKeypoints {
				t.Fatalf("expected %d points, got %d", NumKeypoints, len(hand.Points))
			}
			if palm := Distance(hand.Points[Wrist], hand.Points[IndexMCP]); math.Abs(palm-100) > epsilon {
				t.Errorf("expected palm size 100, got %f", palm)
			}
			if hand.Box.Empty() {
				t.Error("expected a bounding box")
			}
		})
	}

	t.Run("thumbs up thumb points upward", func(t *testing.T) {
		hand := ThumbsUpKeypoints()
		if hand.Points[ThumbTip].Y >= hand.Points[ThumbIP].Y {
			t.Error("thumb tip should be above thumb IP (lower Y value)")
		}
	})

	t.Run("ok tips touch", func(t *testing.T) {
		hand := OKKeypoints()
		if d := Distance(hand.Points[ThumbTip], hand.Points[IndexTip]); d > 10 {
			t.Errorf("expected thumb and index tips within 10px, got %f", d)
		}
	})
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0xff, 0xd8, 0xff, 0xd9}

	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.Bytes()
	if n := binary.BigEndian.Uint32(out[:4]); n != uint32(len(payload)) {
		t.Errorf("expected length prefix %d, got %d", len(payload), n)
	}
	if !bytes.Equal(out[4:], payload) {
		t.Errorf("unexpected payload %x", out[4:])
	}
}

func TestParseServiceResponse(t *testing.T) {
	t.Run("no hands", func(t *testing.T) {
		hands, err := parseServiceResponse([]byte(`{"hands": []}` + "\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected no hands, got %d", len(hands))
		}
	})

	t.Run("decodes vectors", func(t *testing.T) {
		line := []byte(`{"hands": [[0,0,10,10` + strings.Repeat(",1,2,3", NumKeypoints) + `]]}`)
		hands, err := parseServiceResponse(line)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if hands[0].Points[Wrist] != (Point{X: 1, Y: 2}) {
			t.Errorf("unexpected wrist %v", hands[0].Points[Wrist])
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := parseServiceResponse([]byte(`{"error": "model not loaded"}`)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("short vector", func(t *testing.T) {
		_, err := parseServiceResponse([]byte(`{"hands": [[1,2,3]]}`))
		if !errors.Is(err, ErrShortVector) {
			t.Errorf("expected ErrShortVector, got %v", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		if _, err := parseServiceResponse([]byte(`not json`)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestDecodeModelOutput(t *testing.T) {
	landmarks := make([]float32, NumKeypoints*3)
	for i := 0; i < NumKeypoints; i++ {
		landmarks[i*3] = 112
		landmarks[i*3+1] = 56
	}

	hand := decodeModelOutput(landmarks, []float32{0.9}, 640, 448)

	if hand.Points[Wrist] != (Point{X: 320, Y: 112}) {
		t.Errorf("expected landmarks rescaled to frame, got %v", hand.Points[Wrist])
	}
	if math.Abs(hand.Score-0.9) > 1e-6 {
		t.Errorf("expected score 0.9, got %f", hand.Score)
	}
}
