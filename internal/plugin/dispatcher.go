package plugin

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ayusman/moodcam/internal/face"
	"github.com/ayusman/moodcam/internal/gesture"
)

// Dispatcher runs subscribed plugins for gesture and emotion events. Events
// never wait on plugins: each run happens in its own goroutine, at most
// maxConcurrent at a time, and events arriving while all slots are busy are
// skipped.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewDispatcher creates a dispatcher over the plugins known to manager.
func NewDispatcher(manager *Manager, executor *Executor, maxConcurrent int64) *Dispatcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		sem:      semaphore.NewWeighted(maxConcurrent),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// GestureChanged runs plugins subscribed to g. The none gesture is not dispatched.
func (d *Dispatcher) GestureChanged(g gesture.Gesture) {
	if g == gesture.None {
		return
	}
	for _, p := range d.manager.List() {
		if p.WantsGesture(string(g)) {
			d.dispatch(p, &Request{Event: EventGesture, Gesture: string(g), Timestamp: time.Now()})
		}
	}
}

// EmotionAnalyzed runs plugins subscribed to the result's dominant emotion.
func (d *Dispatcher) EmotionAnalyzed(result face.AnalysisResult) {
	emotion := result.Emotion()
	for _, p := range d.manager.List() {
		if p.WantsEmotion(emotion) {
			d.dispatch(p, &Request{Event: EventEmotion, Emotion: emotion, Age: result.Age, Timestamp: time.Now()})
		}
	}
}

func (d *Dispatcher) dispatch(p *Plugin, req *Request) {
	if !d.sem.TryAcquire(1) {
		log.Printf("Skipping plugin %s for %s event: too many running", p.Manifest.Name, req.Event)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)

		resp, err := d.executor.Execute(d.ctx, p, req)
		if err != nil {
			log.Printf("Plugin %s failed: %v", p.Manifest.Name, err)
			return
		}
		if !resp.Success {
			log.Printf("Plugin %s reported an error: %s", p.Manifest.Name, resp.Error)
		}
	}()
}

// Close kills running plugins and waits for their goroutines.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

// Wait blocks until every dispatched plugin has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
