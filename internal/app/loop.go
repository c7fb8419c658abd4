package app

import (
	"image"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/moodcam/internal/capture"
	"github.com/ayusman/moodcam/internal/detector"
	"github.com/ayusman/moodcam/internal/face"
	"github.com/ayusman/moodcam/internal/gesture"
	"github.com/ayusman/moodcam/internal/overlay"
)

// runLoop is the display loop. Each tick it reads a frame, hands copies to
// the analysis pipelines without waiting on them, and renders whatever
// results are latest.
func (a *App) runLoop(s *session) {
	defer close(s.loopDone)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.DisplayFPS))
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			a.processFrame(s)
		}
	}
}

// processFrame runs one display step.
func (a *App) processFrame(s *session) {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		log.Printf("Error reading frame: %v", err)
		return
	}
	defer frame.Close()

	now := time.Now()
	a.mu.Lock()
	a.frameSeq++
	seq := a.frameSeq
	a.mu.Unlock()

	small, err := capture.Downsample(*frame, a.config.Downsample)
	if err != nil {
		log.Printf("Error downsampling frame: %v", err)
	} else {
		s.faces.Submit(&capture.Frame{Mat: small, Seq: seq, Captured: now, Scale: float64(a.config.Downsample)})
	}
	s.hands.Submit(&capture.Frame{Mat: frame.Clone(), Seq: seq, Captured: now, Scale: 1})

	faces, _ := s.faces.Latest()
	hands, _ := s.hands.Latest()

	a.updateGesture(s, a.classifyHands(hands))

	a.mu.RLock()
	gameOn := a.gameOn
	current := a.gesture
	a.mu.RUnlock()

	if gameOn {
		a.game.Update(now, handBoxes(hands))
	}

	a.render(frame, faces, hands, current, gameOn)
	a.publishStatus()
}

// classifyHands returns the gesture of the first hand. A hand the classifier
// rejects counts as no gesture.
func (a *App) classifyHands(hands []detector.HandKeypoints) gesture.Gesture {
	if len(hands) == 0 {
		return gesture.None
	}

	g, err := a.classifier.Classify(hands[0].Points)
	if err != nil {
		return gesture.None
	}
	return g
}

// updateGesture stores g and, when it differs from the previous gesture,
// records and announces the change.
func (a *App) updateGesture(s *session, g gesture.Gesture) {
	a.mu.Lock()
	if a.gesture == g {
		a.mu.Unlock()
		return
	}
	a.gesture = g
	a.mu.Unlock()

	if g != gesture.None && s.gestures != nil {
		s.gestures.record(string(g))
	}

	for _, sink := range a.events() {
		sink.GestureChanged(g)
	}
}

func handBoxes(hands []detector.HandKeypoints) []image.Rectangle {
	boxes := make([]image.Rectangle, 0, len(hands))
	for _, h := range hands {
		boxes = append(boxes, h.Bounds())
	}
	return boxes
}

// render draws the overlays onto frame and hands the encoded result to the
// frame sinks.
func (a *App) render(frame *gocv.Mat, faces []face.AnalysisResult, hands []detector.HandKeypoints, g gesture.Gesture, gameOn bool) {
	a.sinkMu.RLock()
	sinks := append([]FrameSink(nil), a.frameSinks...)
	a.sinkMu.RUnlock()

	if len(sinks) == 0 {
		return
	}

	overlay.DrawFaces(frame, faces)
	overlay.DrawHands(frame, hands)
	overlay.DrawGesture(frame, g)
	if gameOn {
		overlay.DrawGame(frame, a.game.State())
	}

	data, err := capture.EncodeJPEG(*frame, a.config.JPEGQuality)
	if err != nil {
		log.Printf("Error encoding frame: %v", err)
		return
	}
	for _, sink := range sinks {
		sink.PublishFrame(data)
	}
}
