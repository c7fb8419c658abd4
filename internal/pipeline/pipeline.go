// Package pipeline decouples a slow analysis call from a fast producer with a
// single-slot inbox and one background worker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Start after the pipeline has been stopped.
var ErrClosed = errors.New("pipeline closed")

// AnalyzeFunc computes a result from a frame. The context is cancelled by Stop.
type AnalyzeFunc[F, R any] func(ctx context.Context, frame F) (R, error)

// AnalysisFailure wraps an analyzer error with the sequence number of the frame
// that produced it.
type AnalysisFailure struct {
	Seq uint64
	Err error
}

func (f AnalysisFailure) Error() string {
	return fmt.Sprintf("analysis of frame %d failed: %v", f.Seq, f.Err)
}

func (f AnalysisFailure) Unwrap() error {
	return f.Err
}

// Config holds pipeline timing options.
type Config struct {
	// Name identifies the pipeline in log messages.
	Name string

	// IdleInterval is how long the worker sleeps when the inbox is empty.
	IdleInterval time.Duration

	// StopTimeout bounds how long Stop waits for the worker to exit.
	StopTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Name:         "analysis",
		IdleInterval: 10 * time.Millisecond,
		StopTimeout:  2 * time.Second,
	}
}

// Stats is a snapshot of the pipeline counters.
type Stats struct {
	Submitted uint64 `json:"submitted"`
	Dropped   uint64 `json:"dropped"`
	Analyzed  uint64 `json:"analyzed"`
	Failed    uint64 `json:"failed"`
}

// Pipeline owns one inbox slot, one latest-result cell and one worker.
//
// Frames handed to Submit belong to the pipeline from then on: each one is
// passed to the release hook exactly once, after analysis, when dropped, or
// when discarded at Stop.
type Pipeline[F, R any] struct {
	config  Config
	analyze AnalyzeFunc[F, R]

	mu         sync.Mutex
	pending    F
	hasPending bool
	pendingSeq uint64
	latest     R
	hasLatest  bool
	seq        uint64
	running    bool
	closed     bool
	stopCh     chan struct{}
	done       chan struct{}
	cancel     context.CancelFunc
	onResult   func(R)
	onError    func(AnalysisFailure)
	release    func(F)

	// publishMu serialises publishing against Stop so nothing is published
	// once Stop has sealed the pipeline.
	publishMu sync.Mutex
	sealed    atomic.Bool

	submitted atomic.Uint64
	dropped   atomic.Uint64
	analyzed  atomic.Uint64
	failed    atomic.Uint64
}

// New creates a stopped pipeline around analyze.
func New[F, R any](config Config, analyze AnalyzeFunc[F, R]) *Pipeline[F, R] {
	defaults := DefaultConfig()
	if config.IdleInterval <= 0 {
		config.IdleInterval = defaults.IdleInterval
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = defaults.StopTimeout
	}
	if config.Name == "" {
		config.Name = defaults.Name
	}

	return &Pipeline[F, R]{
		config:  config,
		analyze: analyze,
	}
}

// OnResult sets the observer notified after each successful analysis.
// It runs on the worker goroutine.
func (p *Pipeline[F, R]) OnResult(fn func(R)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onResult = fn
}

// OnError sets the observer notified when the analyzer fails.
// It runs on the worker goroutine.
func (p *Pipeline[F, R]) OnError(fn func(AnalysisFailure)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = fn
}

// SetRelease sets the hook that frees frames owned by the pipeline.
func (p *Pipeline[F, R]) SetRelease(fn func(F)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release = fn
}

// Submit offers a frame without blocking. The frame is kept only if the inbox
// is empty; otherwise it is dropped and the pending frame stays. After Stop,
// Submit drops every frame.
func (p *Pipeline[F, R]) Submit(frame F) bool {
	p.mu.Lock()
	if p.closed || p.hasPending {
		release := p.release
		closed := p.closed
		p.mu.Unlock()

		if !closed {
			p.dropped.Add(1)
		}
		if release != nil {
			release(frame)
		}
		return false
	}

	p.seq++
	p.pending = frame
	p.pendingSeq = p.seq
	p.hasPending = true
	p.mu.Unlock()

	p.submitted.Add(1)
	return true
}

// Latest returns the most recent result, if any analysis has completed.
func (p *Pipeline[F, R]) Latest() (R, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.hasLatest
}

// Stats returns a snapshot of the counters.
func (p *Pipeline[F, R]) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Dropped:   p.dropped.Load(),
		Analyzed:  p.analyzed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Running reports whether the worker has been started and not stopped.
func (p *Pipeline[F, R]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start spawns the worker. Calling Start on a running pipeline does nothing.
func (p *Pipeline[F, R]) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	p.running = true

	go p.run(ctx, p.stopCh, p.done)

	log.Printf("%s pipeline started", p.config.Name)
	return nil
}

// Stop asks the worker to exit, lets an in-flight analysis finish and waits up
// to StopTimeout for it. Once Stop returns the latest result no longer changes
// and no observer is called. A stopped pipeline cannot be restarted.
func (p *Pipeline[F, R]) Stop() {
	p.publishMu.Lock()
	p.sealed.Store(true)
	p.publishMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true

	var leftover F
	hadLeftover := p.hasPending
	if hadLeftover {
		leftover = p.pending
		var zero F
		p.pending = zero
		p.hasPending = false
	}
	release := p.release

	wasRunning := p.running
	p.running = false
	stopCh, done, cancel := p.stopCh, p.done, p.cancel
	p.mu.Unlock()

	if hadLeftover && release != nil {
		release(leftover)
	}

	if !wasRunning {
		return
	}

	close(stopCh)
	cancel()

	select {
	case <-done:
		log.Printf("%s pipeline stopped", p.config.Name)
	case <-time.After(p.config.StopTimeout):
		log.Printf("%s pipeline worker did not exit within %v", p.config.Name, p.config.StopTimeout)
	}
}

// take removes the pending frame from the inbox.
func (p *Pipeline[F, R]) take() (F, uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero F
	if !p.hasPending {
		return zero, 0, false
	}

	frame, seq := p.pending, p.pendingSeq
	p.pending = zero
	p.hasPending = false
	return frame, seq, true
}

func (p *Pipeline[F, R]) run(ctx context.Context, stopCh, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.IdleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		frame, seq, ok := p.take()
		if !ok {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
			}
			continue
		}

		result, err := p.analyze(ctx, frame)
		p.releaseFrame(frame)

		if err != nil {
			p.failed.Add(1)
			p.reportFailure(AnalysisFailure{Seq: seq, Err: err})
			continue
		}

		if !p.publish(result) {
			return
		}
		p.analyzed.Add(1)
	}
}

func (p *Pipeline[F, R]) releaseFrame(frame F) {
	p.mu.Lock()
	release := p.release
	p.mu.Unlock()

	if release != nil {
		release(frame)
	}
}

// publish stores the result and notifies the observer. It returns false once
// the pipeline is sealed.
func (p *Pipeline[F, R]) publish(result R) bool {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	if p.sealed.Load() {
		return false
	}

	p.mu.Lock()
	p.latest = result
	p.hasLatest = true
	observer := p.onResult
	p.mu.Unlock()

	if observer != nil {
		observer(result)
	}
	return true
}

func (p *Pipeline[F, R]) reportFailure(failure AnalysisFailure) {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	if p.sealed.Load() {
		return
	}

	p.mu.Lock()
	observer := p.onError
	p.mu.Unlock()

	if observer != nil {
		observer(failure)
	}
}
