package tenancy

import (
	"sync"
	"time"
)

// Intervention kinds recorded by the guard.
const (
	kindCoercedRead  = "coerced_read"
	kindBlockedRead  = "blocked_read"
	kindCoercedWrite = "coerced_write"
	kindBlockedWrite = "blocked_write"
	kindBlockedAdmin = "blocked_admin"
)

// Intervention is one guard action kept for later inspection.
type Intervention struct {
	Time       time.Time `json:"time"`
	Kind       string    `json:"kind"`
	EntityType string    `json:"entity_type,omitempty"`
	Detail     string    `json:"detail"`
}

// diagnosticLog is a bounded in-memory ring of interventions. Recording never
// blocks the primary operation and never fails.
type diagnosticLog struct {
	mu      sync.Mutex
	entries []Intervention
	next    int
	full    bool
}

func newDiagnosticLog(size int) *diagnosticLog {
	if size <= 0 {
		size = 256
	}
	return &diagnosticLog{entries: make([]Intervention, size)}
}

func (l *diagnosticLog) record(kind, entityType, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = Intervention{
		Time:       time.Now().UTC(),
		Kind:       kind,
		EntityType: entityType,
		Detail:     detail,
	}
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}
}

// snapshot returns interventions oldest-first.
func (l *diagnosticLog) snapshot() []Intervention {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		out := make([]Intervention, l.next)
		copy(out, l.entries[:l.next])
		return out
	}
	out := make([]Intervention, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	out = append(out, l.entries[:l.next]...)
	return out
}
