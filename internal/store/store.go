package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrInvalidResult = errors.New("invalid match result")

// Result summarises one finished game.
type Result struct {
	Winner     int       `json:"winner"`
	Players    int       `json:"players"`
	Moves      int       `json:"moves"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (r Result) Validate() error {
	if r.Winner < 1 || r.Winner > r.Players || r.Players > 4 {
		return ErrInvalidResult
	}
	if r.FinishedAt.Before(r.StartedAt) {
		return ErrInvalidResult
	}
	return nil
}

type Recorder interface {
	Record(ctx context.Context, r Result) error
	Recent(ctx context.Context, limit int) ([]Result, error)
}

// MemoryRecorder keeps results for the life of the process.
type MemoryRecorder struct {
	results []Result
	mu      sync.RWMutex
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (m *MemoryRecorder) Record(_ context.Context, r Result) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

// Recent returns up to limit results, newest first.
func (m *MemoryRecorder) Recent(_ context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Result, 0, min(limit, len(m.results)))
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.results[i])
	}
	return out, nil
}
