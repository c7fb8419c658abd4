package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/moodcam/internal/face"
	"github.com/ayusman/moodcam/internal/gesture"
)

const (
	gestureSuffix = "gesture"
	emotionSuffix = "emotion"

	// queueSize bounds pending messages; events beyond it are dropped so the
	// display loop never waits on the broker.
	queueSize = 32

	publishTimeout = 5 * time.Second
)

// GestureMessage is published whenever the recognized gesture changes.
type GestureMessage struct {
	Gesture   gesture.Gesture `json:"gesture"`
	Timestamp time.Time       `json:"timestamp"`
}

// EmotionMessage is published for each completed emotion analysis.
type EmotionMessage struct {
	Emotion   string             `json:"emotion"`
	Age       int                `json:"age"`
	Scores    map[string]float64 `json:"scores,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

type message struct {
	topic   string
	payload any
}

// Publisher forwards app events to MQTT topics under a common prefix.
type Publisher struct {
	client mqtt.Client
	prefix string
	queue  chan message
	now    func() time.Time
}

// NewPublisher creates a publisher for client. Messages go to
// <prefix>/gesture and <prefix>/emotion.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	return &Publisher{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		queue:  make(chan message, queueSize),
		now:    time.Now,
	}
}

// Topic returns the full topic for a suffix.
func (p *Publisher) Topic(suffix string) string {
	if p.prefix == "" {
		return suffix
	}
	return p.prefix + "/" + suffix
}

// GestureChanged queues a gesture message.
func (p *Publisher) GestureChanged(g gesture.Gesture) {
	p.enqueue(message{
		topic:   p.Topic(gestureSuffix),
		payload: GestureMessage{Gesture: g, Timestamp: p.now()},
	})
}

// EmotionAnalyzed queues an emotion message.
func (p *Publisher) EmotionAnalyzed(result face.AnalysisResult) {
	p.enqueue(message{
		topic: p.Topic(emotionSuffix),
		payload: EmotionMessage{
			Emotion:   result.Emotion(),
			Age:       result.Age,
			Scores:    result.Emotions,
			Timestamp: p.now(),
		},
	})
}

func (p *Publisher) enqueue(msg message) {
	select {
	case p.queue <- msg:
	default:
		log.Printf("MQTT: queue full, dropping message for %s", msg.topic)
	}
}

// Start publishes queued messages until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	log.Println("MQTT Publisher: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT Publisher: Context cancelled, shutting down...")
			return
		case msg := <-p.queue:
			if err := p.publish(msg); err != nil {
				log.Printf("Error publishing event: %v", err)
			}
		}
	}
}

func (p *Publisher) publish(msg message) error {
	payload, err := json.Marshal(msg.payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := p.client.Publish(msg.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to %s", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", msg.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
	log.Println("MQTT: Disconnected")
}
