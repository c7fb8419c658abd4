// Package overlay draws analysis results, hand keypoints and the fruit game
// onto display frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/moodcam/internal/detector"
	"github.com/ayusman/moodcam/internal/face"
	"github.com/ayusman/moodcam/internal/game"
	"github.com/ayusman/moodcam/internal/gesture"
)

var (
	faceColor    = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	scoreColor   = color.RGBA{R: 255, G: 255, B: 0, A: 0}
	handColor    = color.RGBA{R: 0, G: 200, B: 255, A: 0}
	jointColor   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	gestureColor = color.RGBA{R: 255, G: 0, B: 255, A: 0}
)

const (
	font       = gocv.FontHersheySimplex
	lineHeight = 22
	topN       = 3
)

// handSkeleton pairs keypoint indices to connect with lines.
var handSkeleton = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP}, {detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

var fruitColors = map[game.Kind]color.RGBA{
	game.Apple:      {R: 220, G: 30, B: 30},
	game.Banana:     {R: 250, G: 220, B: 50},
	game.Orange:     {R: 255, G: 140, B: 0},
	game.Pear:       {R: 170, G: 210, B: 60},
	game.Watermelon: {R: 40, G: 160, B: 60},
}

// FaceLabel returns the headline drawn above a face box.
func FaceLabel(r face.AnalysisResult) string {
	return fmt.Sprintf("%s | Age: %d", r.Emotion(), r.Age)
}

// DetailLines returns the optional gender and race lines for a face.
func DetailLines(r face.AnalysisResult) []string {
	var lines []string
	if r.DominantGender != "" {
		lines = append(lines, "Gender: "+r.DominantGender)
	}
	if r.DominantRace != "" {
		lines = append(lines, "Race: "+r.DominantRace)
	}
	return lines
}

// ScoreLines returns the top emotion scores as "emotion: 12.3%".
func ScoreLines(r face.AnalysisResult) []string {
	top := r.TopEmotions(topN)
	lines := make([]string, len(top))
	for i, s := range top {
		lines[i] = fmt.Sprintf("%s: %.1f%%", s.Emotion, s.Score)
	}
	return lines
}

// GestureLabel returns the text shown for a gesture, or "" for none.
func GestureLabel(g gesture.Gesture) string {
	if g == "" || g == gesture.None {
		return ""
	}
	return "Gesture: " + strings.ReplaceAll(string(g), "_", " ")
}

// FruitColor returns the fill colour for a fruit kind.
func FruitColor(k game.Kind) color.RGBA {
	if c, ok := fruitColors[k]; ok {
		return c
	}
	return textColor
}

// DrawFaces draws a box, the headline, detail lines and top emotion scores for each face.
func DrawFaces(img *gocv.Mat, results []face.AnalysisResult) {
	for _, r := range results {
		box := r.DisplayRegion()
		gocv.Rectangle(img, box, faceColor, 2)

		gocv.PutText(img, FaceLabel(r), image.Pt(box.Min.X, box.Min.Y-10), font, 0.7, faceColor, 2)

		y := box.Max.Y + lineHeight
		for _, line := range DetailLines(r) {
			gocv.PutText(img, line, image.Pt(box.Min.X, y), font, 0.55, textColor, 1)
			y += lineHeight
		}
		for _, line := range ScoreLines(r) {
			gocv.PutText(img, line, image.Pt(box.Min.X, y), font, 0.5, scoreColor, 1)
			y += lineHeight
		}
	}
}

// DrawHands draws the skeleton, joints and bounding box of each hand.
func DrawHands(img *gocv.Mat, hands []detector.HandKeypoints) {
	for _, h := range hands {
		if len(h.Points) == detector.NumKeypoints {
			for _, bone := range handSkeleton {
				a, b := h.Points[bone[0]], h.Points[bone[1]]
				gocv.Line(img, image.Pt(int(a.X), int(a.Y)), image.Pt(int(b.X), int(b.Y)), handColor, 2)
			}
		}
		for _, p := range h.Points {
			gocv.Circle(img, image.Pt(int(p.X), int(p.Y)), 4, jointColor, -1)
		}
		gocv.Rectangle(img, h.Bounds(), handColor, 1)
	}
}

// DrawGesture writes the gesture label in the top-left corner.
func DrawGesture(img *gocv.Mat, g gesture.Gesture) {
	label := GestureLabel(g)
	if label == "" {
		return
	}
	gocv.PutText(img, label, image.Pt(10, 30), font, 0.9, gestureColor, 2)
}

// DrawGame draws every fruit and the score in the top-right corner.
func DrawGame(img *gocv.Mat, state game.State) {
	for _, f := range state.Fruits {
		center := image.Pt(f.X, f.Y)
		radius := f.Size / 2
		c := FruitColor(f.Kind)

		if f.Cut {
			gocv.Circle(img, center, radius, c, 2)
			gocv.Line(img, image.Pt(f.X-radius, f.Y+radius), image.Pt(f.X+radius, f.Y-radius), textColor, 2)
			continue
		}
		gocv.Circle(img, center, radius, c, -1)
	}

	label := fmt.Sprintf("Score: %d  Missed: %d", state.Score, state.Missed)
	size := gocv.GetTextSize(label, font, 0.8, 2)
	gocv.PutText(img, label, image.Pt(img.Cols()-size.X-10, 30), font, 0.8, textColor, 2)
}
