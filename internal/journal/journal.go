// Package journal exports supervision lifecycle events to external systems
// for audit and analysis. Export is best effort: a sink failure never fails
// the lifecycle operation that produced the event.
package journal

import (
	"context"
	"log/slog"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	// EventStarted marks a worker that survived the settle window.
	EventStarted EventType = "started"
	// EventStartFailed marks a worker that spawned but died before the
	// settle window ended, or failed to spawn at all.
	EventStartFailed EventType = "start_failed"
	// EventStopped marks a worker that exited within the stop budget.
	EventStopped EventType = "stopped"
	// EventKilled marks a worker that had to be force killed.
	EventKilled EventType = "killed"
	// EventStaleReclaimed marks a PID record that named a dead process
	// and was deleted.
	EventStaleReclaimed EventType = "stale_reclaimed"
)

// Event is one lifecycle transition of the supervised worker.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	PID        int       `json:"pid"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for journal events. Implementations must be safe
// for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Recorder stamps and forwards events to a sink, swallowing sink failures
// with a warning. A nil Recorder or a Recorder without a sink records
// nothing, so callers never need to branch.
type Recorder struct {
	sink    Sink
	timeout time.Duration
}

const defaultSendTimeout = 3 * time.Second

func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink, timeout: defaultSendTimeout}
}

func (r *Recorder) Record(ctx context.Context, t EventType, pid int, detail string) {
	if r == nil || r.sink == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	e := Event{Type: t, OccurredAt: time.Now().UTC(), PID: pid, Detail: detail}
	if err := r.sink.Send(sendCtx, e); err != nil {
		slog.Warn("journal record failed", "event", string(t), "error", err)
	}
}

// Close releases the underlying sink if it holds resources.
func (r *Recorder) Close() error {
	if r == nil || r.sink == nil {
		return nil
	}
	if c, ok := r.sink.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
