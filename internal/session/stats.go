package session

import (
	"sync"
	"time"
)

// Stats tracks running counters for a detection session.
type Stats struct {
	mu          sync.Mutex
	totalCycles int
	hits        int
	lastElapsed time.Duration
	startedAt   time.Time
}

func (s *Stats) recordCycle(found bool, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCycles++
	if found {
		s.hits++
	}
	s.lastElapsed = elapsed
}

func (s *Stats) markStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = time.Now()
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{
		TotalCycles: s.totalCycles,
		Hits:        s.hits,
		LastElapsed: s.lastElapsed,
	}
	if s.totalCycles > 0 {
		snap.HitRate = float64(s.hits) / float64(s.totalCycles)
	}
	if !s.startedAt.IsZero() {
		snap.Uptime = time.Since(s.startedAt)
	}
	return snap
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCycles = 0
	s.hits = 0
	s.lastElapsed = 0
	s.startedAt = time.Time{}
}

// StatsSnapshot is an immutable view of session counters.
type StatsSnapshot struct {
	TotalCycles int
	Hits        int
	HitRate     float64
	LastElapsed time.Duration
	Uptime      time.Duration
}
