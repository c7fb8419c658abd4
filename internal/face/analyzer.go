package face

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when there is nothing to analyze.
var ErrEmptyFrame = errors.New("empty frame")

// Analyzer analyzes the faces in a frame.
type Analyzer interface {
	Analyze(ctx context.Context, frame gocv.Mat) ([]AnalysisResult, error)
}

// Config holds options for the face analysis service.
type Config struct {
	// URL is the base URL of a DeepFace-compatible API.
	URL string

	// DetectorBackend selects the face detector used by the service.
	DetectorBackend string

	// Actions lists the analyses to run, e.g. emotion and age.
	Actions []string

	// EnforceDetection makes the service fail when no face is found.
	EnforceDetection bool

	// Timeout bounds a single request.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		URL:             "http://localhost:5005",
		DetectorBackend: "opencv",
		Actions:         []string{"emotion", "age"},
		Timeout:         10 * time.Second,
	}
}

// HTTPAnalyzer posts frames to the /analyze endpoint of a DeepFace server.
type HTTPAnalyzer struct {
	config Config
	client *http.Client
}

// NewHTTPAnalyzer creates an analyzer for the configured service.
func NewHTTPAnalyzer(config Config) *HTTPAnalyzer {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if len(config.Actions) == 0 {
		config.Actions = DefaultConfig().Actions
	}
	return &HTTPAnalyzer{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Analyze encodes the frame as JPEG and sends it to the service.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, frame gocv.Mat) ([]AnalysisResult, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return a.AnalyzeJPEG(ctx, buf.GetBytes())
}

type analyzeRequest struct {
	Img              string   `json:"img"`
	Actions          []string `json:"actions"`
	EnforceDetection bool     `json:"enforce_detection"`
	DetectorBackend  string   `json:"detector_backend"`
}

// serviceFace is one face as reported by the service.
type serviceFace struct {
	DominantEmotion string             `json:"dominant_emotion"`
	Emotion         map[string]float64 `json:"emotion"`
	Age             float64            `json:"age"`
	DominantGender  string             `json:"dominant_gender"`
	DominantRace    string             `json:"dominant_race"`
	Region          Region             `json:"region"`
}

func (f serviceFace) toResult() AnalysisResult {
	r := AnalysisResult{
		DominantEmotion: f.DominantEmotion,
		Emotions:        f.Emotion,
		Age:             int(f.Age),
		DominantGender:  f.DominantGender,
		DominantRace:    f.DominantRace,
		Region:          f.Region,
		Scale:           1,
	}
	if r.DominantEmotion == "" {
		r.DominantEmotion = UnknownEmotion
	}
	if r.Emotions == nil {
		r.Emotions = map[string]float64{}
	}
	return r
}

// AnalyzeJPEG sends already encoded JPEG bytes to the service.
func (a *HTTPAnalyzer) AnalyzeJPEG(ctx context.Context, jpeg []byte) ([]AnalysisResult, error) {
	if len(jpeg) == 0 {
		return nil, ErrEmptyFrame
	}

	body, err := json.Marshal(analyzeRequest{
		Img:              "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg),
		Actions:          a.config.Actions,
		EnforceDetection: a.config.EnforceDetection,
		DetectorBackend:  a.config.DetectorBackend,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(a.config.URL, "/") + "/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("face service returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	faces, err := parseFaces(data)
	if err != nil {
		return nil, err
	}

	results := make([]AnalysisResult, len(faces))
	for i, f := range faces {
		results[i] = f.toResult()
	}
	return results, nil
}

// parseFaces accepts {"results": [...]}, a bare list or a single face object.
func parseFaces(data []byte) ([]serviceFace, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("parse response: empty body")
	}

	if trimmed[0] == '[' {
		var faces []serviceFace
		if err := json.Unmarshal(trimmed, &faces); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
		return faces, nil
	}

	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	// A results key means a wrapped list, even when it is null.
	if results, ok := wrapped["results"]; ok {
		return parseFaces(results)
	}
	if len(wrapped) == 0 {
		return nil, nil
	}

	var single serviceFace
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return []serviceFace{single}, nil
}
