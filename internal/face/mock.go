package face

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// MockAnalyzer is a test implementation of the Analyzer interface.
type MockAnalyzer struct {
	mu      sync.Mutex
	results []AnalysisResult
	err     error
	calls   int
	gate    <-chan struct{}
}

// NewMockAnalyzer creates a new MockAnalyzer instance.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// SetResults sets the results returned by Analyze.
func (m *MockAnalyzer) SetResults(results []AnalysisResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
}

// SetError sets the error returned by Analyze.
func (m *MockAnalyzer) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetGate makes Analyze wait until gate is closed or its context ends,
// standing in for a slow analysis service.
func (m *MockAnalyzer) SetGate(gate <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = gate
}

// Calls returns how many times Analyze has been called.
func (m *MockAnalyzer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Analyze returns the pre-configured results or error, after the gate opens.
func (m *MockAnalyzer) Analyze(ctx context.Context, frame gocv.Mat) ([]AnalysisResult, error) {
	m.mu.Lock()
	m.calls++
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	out := make([]AnalysisResult, len(m.results))
	copy(out, m.results)
	return out, nil
}
