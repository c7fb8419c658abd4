package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/moodcam/internal/app"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LiveHub pushes status updates to dashboard clients over WebSocket. Each
// client has its own writer goroutine fed through a one-message buffer, so a
// client that stops reading only misses intermediate statuses.
type LiveHub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	latest  []byte
}

// NewLiveHub creates an empty hub.
func NewLiveHub() *LiveHub {
	return &LiveHub{clients: make(map[chan []byte]struct{})}
}

// PublishStatus hands the status as JSON to every connected client. It never
// waits on the network.
func (h *LiveHub) PublishStatus(status app.Status) {
	msg, err := json.Marshal(map[string]any{
		"status":    status,
		"timestamp": time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("Error encoding status: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = msg
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// Replace the unsent status with the newer one.
			select {
			case <-ch:
			default:
			}
			ch <- msg
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *LiveHub) subscribe() chan []byte {
	ch := make(chan []byte, 1)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest != nil {
		ch <- h.latest
	}
	h.clients[ch] = struct{}{}
	return ch
}

func (h *LiveHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ch)
}

// ServeHTTP handles WebSocket upgrade requests. A new client receives the
// last published status straight away.
func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// The read loop only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case msg := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("Dropping live client: %v", err)
				return
			}
		}
	}
}
