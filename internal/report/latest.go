package report

import (
	"sync"
	"time"
)

// CellCount is one row of the detection summary.
type CellCount struct {
	Class string
	Count int
}

// Analysis is the outcome of the most recent prediction.
type Analysis struct {
	Counts []CellCount
	// Image is the annotated JPEG the counts were taken from.
	Image []byte
	At    time.Time
}

// Latest holds the most recent analysis for the report download.
type Latest struct {
	mu       sync.RWMutex
	analysis *Analysis
}

func (l *Latest) Set(a Analysis) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.analysis = &a
}

func (l *Latest) Get() (Analysis, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.analysis == nil {
		return Analysis{}, false
	}
	return *l.analysis, true
}
