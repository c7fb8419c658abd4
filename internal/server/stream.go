package server

import (
	"fmt"
	"net/http"
	"sync"
)

// StreamHub serves the rendered display frames as MJPEG. The app publishes
// each frame once and every connected client receives the newest one; slow
// clients skip frames.
type StreamHub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	latest  []byte
}

// NewStreamHub creates an empty hub.
func NewStreamHub() *StreamHub {
	return &StreamHub{clients: make(map[chan []byte]struct{})}
}

// PublishFrame hands a JPEG frame to every client.
func (h *StreamHub) PublishFrame(jpeg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = jpeg
	for ch := range h.clients {
		select {
		case ch <- jpeg:
		default:
			// Replace the unsent frame with the newer one.
			select {
			case <-ch:
			default:
			}
			ch <- jpeg
		}
	}
}

// Clients returns the number of connected viewers.
func (h *StreamHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *StreamHub) subscribe() chan []byte {
	ch := make(chan []byte, 1)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest != nil {
		ch <- h.latest
	}
	h.clients[ch] = struct{}{}
	return ch
}

func (h *StreamHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ch)
}

// ServeHTTP streams MJPEG frames to a client until it disconnects.
func (h *StreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame := <-ch:
			if err := writePart(w, frame); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// writePart writes one multipart JPEG section.
func writePart(w http.ResponseWriter, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}
