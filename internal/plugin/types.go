// Package plugin runs external hook executables when moodcam sees a gesture
// change or completes an emotion analysis.
package plugin

import (
	"encoding/json"
	"time"
)

// Event names sent in Request.Event.
const (
	EventGesture = "gesture"
	EventEmotion = "emotion"
)

// Manifest describes a plugin and the events it subscribes to.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Gestures    []string        `json:"gestures"`
	Emotions    []string        `json:"emotions"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Event     string          `json:"event"`
	Gesture   string          `json:"gesture,omitempty"`
	Emotion   string          `json:"emotion,omitempty"`
	Age       int             `json:"age,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// WantsGesture reports whether the plugin subscribes to gesture g.
// "*" subscribes to every gesture.
func (p *Plugin) WantsGesture(g string) bool {
	return matches(p.Manifest.Gestures, g)
}

// WantsEmotion reports whether the plugin subscribes to emotion e.
// "*" subscribes to every emotion.
func (p *Plugin) WantsEmotion(e string) bool {
	return matches(p.Manifest.Emotions, e)
}

func matches(list []string, v string) bool {
	for _, s := range list {
		if s == "*" || s == v {
			return true
		}
	}
	return false
}
