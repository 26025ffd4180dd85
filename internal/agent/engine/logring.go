package engine

import (
	"sync"
	"time"

	"tickbot/internal/agent"
)

// LogEntry is one line of the agent's structured activity stream. IDs are
// monotonic across the engine's lifetime; the ring only bounds retention.
type LogEntry struct {
	ID         int64            `json:"id"`
	Timestamp  time.Time        `json:"ts"`
	Kind       agent.LogKind    `json:"type"`
	Text       string           `json:"text"`
	Action     agent.ActionType `json:"action,omitempty"`
	DurationMs int64            `json:"duration_ms,omitempty"`
}

// logRing is a bounded FIFO of LogEntry. Oldest entries are dropped first
// once capacity is reached.
type logRing struct {
	mu      sync.Mutex
	cap     int
	nextID  int64
	entries []LogEntry
}

func newLogRing(capacity int) *logRing {
	if capacity <= 0 {
		capacity = 500
	}
	return &logRing{cap: capacity}
}

func (r *logRing) append(kind agent.LogKind, action agent.ActionType, text string, duration time.Duration) LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e := LogEntry{
		ID:        r.nextID,
		Timestamp: time.Now(),
		Kind:      kind,
		Text:      text,
		Action:    action,
	}
	if duration > 0 {
		e.DurationMs = duration.Milliseconds()
	}
	r.entries = append(r.entries, e)
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
	return e
}

// snapshot returns up to limit of the most recent entries in original order.
// limit <= 0 returns everything retained.
func (r *logRing) snapshot(limit int) []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]LogEntry, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}

func (r *logRing) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *logRing) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
