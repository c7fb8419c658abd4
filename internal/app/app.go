// Package app runs a moodcam camera session: it feeds frames to the face and
// hand analysis pipelines, classifies gestures, drives the fruit game and
// renders the display frames.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/ayusman/moodcam/internal/capture"
	"github.com/ayusman/moodcam/internal/detector"
	"github.com/ayusman/moodcam/internal/face"
	"github.com/ayusman/moodcam/internal/game"
	"github.com/ayusman/moodcam/internal/gesture"
	"github.com/ayusman/moodcam/internal/pipeline"
	"github.com/ayusman/moodcam/internal/stats"
	"github.com/ayusman/moodcam/internal/store"
)

// ErrNotRunning is returned by StopSession when no session is active.
var ErrNotRunning = errors.New("no camera session running")

// Config holds configuration options for the application.
type Config struct {
	// Store persists finished sessions and gesture events. Optional.
	Store *store.Store

	// Downsample shrinks frames by this factor before face analysis.
	Downsample int

	// DisplayFPS is the rate of the display loop.
	DisplayFPS int

	// JPEGQuality is used for frames handed to frame sinks.
	JPEGQuality int

	Thresholds gesture.Thresholds
	Pipeline   pipeline.Config
	Game       game.Config
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Downsample:  4,
		DisplayFPS:  60,
		JPEGQuality: capture.DefaultJPEGQuality,
		Thresholds:  gesture.DefaultThresholds(),
		Pipeline:    pipeline.DefaultConfig(),
		Game:        game.DefaultConfig(),
	}
}

// FrameSink receives every rendered display frame as JPEG.
type FrameSink interface {
	PublishFrame(jpeg []byte)
}

// StatusSink receives the status whenever it changes.
type StatusSink interface {
	PublishStatus(status Status)
}

// EventSink receives gesture changes and completed emotion analyses.
type EventSink interface {
	GestureChanged(g gesture.Gesture)
	EmotionAnalyzed(result face.AnalysisResult)
}

type (
	facePipeline = pipeline.Pipeline[*capture.Frame, []face.AnalysisResult]
	handPipeline = pipeline.Pipeline[*capture.Frame, []detector.HandKeypoints]
)

// session is the state owned by one StartSession/StopSession cycle.
type session struct {
	id       string
	started  time.Time
	faces    *facePipeline
	hands    *handPipeline
	stopCh   chan struct{}
	loopDone chan struct{}
	// gestures is nil when sessions are not persisted.
	gestures *gestureRecorder
}

// Summary describes a finished session.
type Summary struct {
	ID        string         `json:"id,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
	Stats     stats.Snapshot `json:"stats"`
}

// App is the main application that orchestrates capture, analysis and rendering.
type App struct {
	config     Config
	camera     capture.Camera
	analyzer   face.Analyzer
	detector   detector.Detector
	classifier *gesture.Classifier
	stats      *stats.Accumulator
	game       *game.Game

	mu         sync.RWMutex
	current    *session
	gesture    gesture.Gesture
	gameOn     bool
	frameSeq   uint64
	lastStatus Status

	sinkMu      sync.RWMutex
	frameSinks  []FrameSink
	statusSinks []StatusSink
	eventSinks  []EventSink
}

// New creates a new App around its collaborators.
func New(config Config, camera capture.Camera, analyzer face.Analyzer, det detector.Detector) *App {
	defaults := DefaultConfig()
	if config.Downsample < 1 {
		config.Downsample = defaults.Downsample
	}
	if config.DisplayFPS <= 0 {
		config.DisplayFPS = defaults.DisplayFPS
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = defaults.JPEGQuality
	}
	if config.Game.Width == 0 {
		config.Game = defaults.Game
	}
	if config.Thresholds == (gesture.Thresholds{}) {
		config.Thresholds = defaults.Thresholds
	}

	return &App{
		config:     config,
		camera:     camera,
		analyzer:   analyzer,
		detector:   det,
		classifier: gesture.NewClassifier(config.Thresholds),
		stats:      stats.NewAccumulator(),
		game:       game.New(config.Game, rand.New(rand.NewSource(time.Now().UnixNano()))),
		gesture:    gesture.None,
	}
}

// AddFrameSink registers a receiver for rendered frames.
func (a *App) AddFrameSink(s FrameSink) {
	a.sinkMu.Lock()
	defer a.sinkMu.Unlock()
	a.frameSinks = append(a.frameSinks, s)
}

// AddStatusSink registers a receiver for status changes.
func (a *App) AddStatusSink(s StatusSink) {
	a.sinkMu.Lock()
	defer a.sinkMu.Unlock()
	a.statusSinks = append(a.statusSinks, s)
}

// AddEventSink registers a receiver for gesture and emotion events.
func (a *App) AddEventSink(s EventSink) {
	a.sinkMu.Lock()
	defer a.sinkMu.Unlock()
	a.eventSinks = append(a.eventSinks, s)
}

// IsRunning reports whether a camera session is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current != nil
}

// StartSession opens the camera, resets the statistics, starts both analysis
// pipelines and the display loop. Starting a running session does nothing.
func (a *App) StartSession() error {
	a.mu.Lock()

	if a.current != nil {
		a.mu.Unlock()
		return nil
	}

	if err := a.camera.Open(); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("failed to open camera: %w", err)
	}

	s := &session{
		started:  time.Now(),
		stopCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	s.faces = a.newFacePipeline()
	s.hands = a.newHandPipeline()

	if err := s.faces.Start(); err != nil {
		a.camera.Close()
		a.mu.Unlock()
		return fmt.Errorf("failed to start face pipeline: %w", err)
	}
	if err := s.hands.Start(); err != nil {
		s.faces.Stop()
		a.camera.Close()
		a.mu.Unlock()
		return fmt.Errorf("failed to start hand pipeline: %w", err)
	}

	if a.config.Store != nil {
		rec, err := a.config.Store.Sessions().Create(s.started)
		if err != nil {
			log.Printf("Failed to record session: %v", err)
		} else {
			s.id = rec.ID
			s.gestures = newGestureRecorder(s.id, a.config.Store.GestureEvents())
		}
	}

	a.stats.Reset()
	a.gesture = gesture.None
	a.frameSeq = 0
	a.current = s
	a.mu.Unlock()

	go a.runLoop(s)

	log.Println("Camera session started")
	a.publishStatus()
	return nil
}

// StopSession stops the display loop and both pipelines, closes the camera,
// saves the session summary and returns it.
func (a *App) StopSession() (Summary, error) {
	a.mu.Lock()
	s := a.current
	if s == nil {
		a.mu.Unlock()
		return Summary{}, ErrNotRunning
	}
	a.current = nil
	a.gameOn = false
	a.mu.Unlock()

	close(s.stopCh)
	<-s.loopDone

	// The loop may have changed the gesture until it exited.
	a.mu.Lock()
	a.gesture = gesture.None
	a.mu.Unlock()

	s.faces.Stop()
	s.hands.Stop()
	if s.gestures != nil {
		s.gestures.close()
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	summary := Summary{
		ID:        s.id,
		StartedAt: s.started,
		EndedAt:   time.Now(),
		Stats:     a.stats.Snapshot(),
	}

	log.Printf("Camera session stopped after %d analyses", summary.Stats.Total)
	a.publishStatus()

	if a.config.Store != nil && s.id != "" {
		err := a.config.Store.Sessions().Finish(s.id, store.SessionSummary{
			EndedAt:    summary.EndedAt,
			Analyses:   summary.Stats.Total,
			AverageAge: summary.Stats.AverageAge,
			Emotions:   summary.Stats.Emotions,
			Moods:      summary.Stats.Moods,
		})
		if err != nil {
			return summary, fmt.Errorf("failed to save session: %w", err)
		}
	}

	return summary, nil
}

// StartGame clears the fruit board and shows the game overlay.
func (a *App) StartGame() {
	a.mu.Lock()
	a.game.Start(time.Now())
	a.gameOn = true
	a.mu.Unlock()

	log.Println("Fruit game started")
	a.publishStatus()
}

// EndGame hides the game overlay. The final score stays in the game state.
func (a *App) EndGame() {
	a.mu.Lock()
	a.gameOn = false
	a.mu.Unlock()

	log.Printf("Fruit game ended with score %d", a.game.State().Score)
	a.publishStatus()
}

// GameActive reports whether the game overlay is shown.
func (a *App) GameActive() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.gameOn
}

// Stats returns the statistics of the current or last session.
func (a *App) Stats() stats.Snapshot {
	return a.stats.Snapshot()
}

func (a *App) newFacePipeline() *facePipeline {
	cfg := a.config.Pipeline
	cfg.Name = "Face analysis"

	p := pipeline.New(cfg, func(ctx context.Context, f *capture.Frame) ([]face.AnalysisResult, error) {
		results, err := a.analyzer.Analyze(ctx, f.Mat)
		if err != nil {
			return nil, err
		}
		for i := range results {
			results[i].Scale = f.Scale
		}
		return results, nil
	})
	p.SetRelease(releaseFrame)
	p.OnResult(a.recordFaces)
	p.OnError(func(failure pipeline.AnalysisFailure) {
		log.Printf("Error analyzing faces: %v", failure)
	})
	return p
}

func (a *App) newHandPipeline() *handPipeline {
	cfg := a.config.Pipeline
	cfg.Name = "Hand detection"

	p := pipeline.New(cfg, func(ctx context.Context, f *capture.Frame) ([]detector.HandKeypoints, error) {
		if a.detector == nil {
			return nil, nil
		}
		return a.detector.Detect(&f.Mat)
	})
	p.SetRelease(releaseFrame)
	p.OnError(func(failure pipeline.AnalysisFailure) {
		log.Printf("Error detecting hands: %v", failure)
	})
	return p
}

func releaseFrame(f *capture.Frame) {
	f.Close()
}

// recordFaces runs on the face worker after each successful analysis.
func (a *App) recordFaces(results []face.AnalysisResult) {
	a.stats.Record(results)

	primary, ok := face.Primary(results)
	if !ok {
		return
	}
	for _, sink := range a.events() {
		sink.EmotionAnalyzed(primary)
	}
}

func (a *App) events() []EventSink {
	a.sinkMu.RLock()
	defer a.sinkMu.RUnlock()
	return append([]EventSink(nil), a.eventSinks...)
}
