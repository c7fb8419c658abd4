package app

import (
	"log"
	"time"

	"github.com/ayusman/moodcam/internal/store"
)

// gestureQueueSize bounds gesture events waiting to be written; events
// beyond it are dropped so the display loop never waits on the database.
const gestureQueueSize = 64

// gestureEventWriter persists gesture events.
type gestureEventWriter interface {
	Create(e *store.GestureEvent) error
}

// gestureRecorder writes a session's gesture events on its own goroutine.
type gestureRecorder struct {
	sessionID string
	writer    gestureEventWriter
	queue     chan store.GestureEvent
	done      chan struct{}
}

func newGestureRecorder(sessionID string, writer gestureEventWriter) *gestureRecorder {
	r := &gestureRecorder{
		sessionID: sessionID,
		writer:    writer,
		queue:     make(chan store.GestureEvent, gestureQueueSize),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

// record queues a gesture event stamped with the current time. It reports
// false when the queue is full and the event was dropped.
func (r *gestureRecorder) record(g string) bool {
	ev := store.GestureEvent{SessionID: r.sessionID, Gesture: g, CreatedAt: time.Now()}
	select {
	case r.queue <- ev:
		return true
	default:
		log.Printf("Gesture event queue full, dropping %s", g)
		return false
	}
}

// close writes the remaining events and waits for them. record must not be
// called afterwards.
func (r *gestureRecorder) close() {
	close(r.queue)
	<-r.done
}

func (r *gestureRecorder) run() {
	defer close(r.done)
	for ev := range r.queue {
		if err := r.writer.Create(&ev); err != nil {
			log.Printf("Failed to record gesture event: %v", err)
		}
	}
}
