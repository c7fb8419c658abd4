package detector

import (
	"fmt"
	"image"
	"log"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// Handpose model input size in pixels.
const (
	ModelInputWidth  = 224
	ModelInputHeight = 224
)

// ONNXConfig describes the handpose model and its tensor names.
type ONNXConfig struct {
	ModelPath      string
	InputName      string
	LandmarkOutput string
	ScoreOutput    string
}

// DefaultONNXConfig returns the tensor names of the MediaPipe hand landmark export.
func DefaultONNXConfig(modelPath string) ONNXConfig {
	return ONNXConfig{
		ModelPath:      modelPath,
		InputName:      "input_1",
		LandmarkOutput: "Identity",
		ScoreOutput:    "Identity_1",
	}
}

// InitONNXRuntime loads the onnxruntime shared library. It must be called once
// before NewONNXDetector; DestroyONNXRuntime releases it at shutdown.
func InitONNXRuntime(libPath string) error {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// DestroyONNXRuntime tears down the onnxruntime environment.
func DestroyONNXRuntime() {
	if err := ort.DestroyEnvironment(); err != nil {
		log.Printf("Error destroying onnxruntime environment: %v", err)
	}
}

// ONNXDetector runs a single-hand landmark model in process. The whole frame is
// resized to the model input, so at most one hand is reported per frame.
type ONNXDetector struct {
	config    Config
	mu        sync.Mutex
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	landmarks *ort.Tensor[float32]
	score     *ort.Tensor[float32]
}

// NewONNXDetector creates a session for the handpose model.
func NewONNXDetector(config Config, model ONNXConfig) (*ONNXDetector, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(runtime.NumCPU())

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, ModelInputHeight, ModelInputWidth, 3))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	landmarks, err := ort.NewEmptyTensor[float32](ort.NewShape(1, vectorLandmarkLen))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create landmark tensor: %w", err)
	}

	score, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		input.Destroy()
		landmarks.Destroy()
		return nil, fmt.Errorf("create score tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		model.ModelPath,
		[]string{model.InputName},
		[]string{model.LandmarkOutput, model.ScoreOutput},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{landmarks, score},
		options,
	)
	if err != nil {
		input.Destroy()
		landmarks.Destroy()
		score.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &ONNXDetector{
		config:    config,
		session:   session,
		input:     input,
		landmarks: landmarks,
		score:     score,
	}, nil
}

// Detect runs the model on the frame and returns zero or one hand.
func (d *ONNXDetector) Detect(frame *gocv.Mat) ([]HandKeypoints, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	resized := imaging.Resize(img, ModelInputWidth, ModelInputHeight, imaging.Linear)
	fillInput(resized, d.input.GetData())

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	hand := decodeModelOutput(d.landmarks.GetData(), d.score.GetData(), frame.Cols(), frame.Rows())
	return d.config.filterHands([]HandKeypoints{hand}), nil
}

// Close releases the session and tensors.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.landmarks != nil {
		d.landmarks.Destroy()
		d.landmarks = nil
	}
	if d.score != nil {
		d.score.Destroy()
		d.score = nil
	}
	return nil
}

// fillInput writes an NHWC float tensor with RGB values scaled to [0, 1].
func fillInput(img *image.NRGBA, dst []float32) {
	for y := 0; y < ModelInputHeight; y++ {
		for x := 0; x < ModelInputWidth; x++ {
			src := img.PixOffset(x, y)
			i := (y*ModelInputWidth + x) * 3
			dst[i] = float32(img.Pix[src]) / 255.0
			dst[i+1] = float32(img.Pix[src+1]) / 255.0
			dst[i+2] = float32(img.Pix[src+2]) / 255.0
		}
	}
}

// decodeModelOutput maps 21x3 landmarks in model input space back to the frame.
func decodeModelOutput(landmarks, score []float32, width, height int) HandKeypoints {
	sx := float64(width) / ModelInputWidth
	sy := float64(height) / ModelInputHeight

	hand := HandKeypoints{Points: make([]Point, NumKeypoints)}
	for i := 0; i < NumKeypoints && i*3+1 < len(landmarks); i++ {
		hand.Points[i] = Point{
			X: float64(landmarks[i*3]) * sx,
			Y: float64(landmarks[i*3+1]) * sy,
		}
	}
	if len(score) > 0 {
		hand.Score = float64(score[0])
	}
	hand.Box = hand.Bounds()
	return hand
}
