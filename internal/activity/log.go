// Package activity keeps the bounded, newest-first feed of human-readable
// collaboration events ("Alice joined collaboration session").
//
// The feed is not an audit trail: once more than the configured number of
// entries (20 by default) have been recorded, the oldest are discarded.
package activity

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/event"
)

// DefaultLimit is the number of entries retained by a Log.
const DefaultLimit = 20

// Actions recorded by the collaboration core.
const (
	ActionStarted   = "started"
	ActionJoined    = "joined"
	ActionUpdated   = "updated"
	ActionCommented = "commented on"
	ActionViewed    = "viewed"
	ActionEdited    = "edited"
)

// TargetSession is the target used for session lifecycle entries.
const TargetSession = "collaboration session"

// Entry is a single feed item.
type Entry struct {
	ID         string    `json:"id" yaml:"id"`
	ActorName  string    `json:"actor_name" yaml:"actor_name"`
	ActorColor string    `json:"actor_color" yaml:"actor_color"`
	Action     string    `json:"action" yaml:"action"`
	Target     string    `json:"target" yaml:"target"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// String renders the entry the way the feed displays it.
func (e Entry) String() string {
	return e.ActorName + " " + e.Action + " " + e.Target
}

// Recorder is implemented by anything that accepts activity entries.
// Components that emit feed items depend on this rather than on *Log.
type Recorder interface {
	Record(actorName, actorColor, action, target string) Entry
}

// Actor is anything that can appear as the subject of a feed entry.
type Actor interface {
	DisplayName() string
	DisplayColor() string
}

// Log is a fixed-capacity ring of entries. It is safe for concurrent use.
type Log struct {
	mu    sync.RWMutex
	data  []Entry
	end   int // next write position
	full  bool
	clock clock.Clock
	bus   *event.Bus
}

// Option configures a Log.
type Option func(*Log)

// WithLimit sets the number of retained entries. Values below 1 are ignored.
func WithLimit(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.data = make([]Entry, n)
		}
	}
}

// WithClock sets the time source used to stamp entries.
func WithClock(c clock.Clock) Option {
	return func(l *Log) { l.clock = c }
}

// WithBus publishes an ActivityRecordedEvent for every entry.
func WithBus(b *event.Bus) Option {
	return func(l *Log) { l.bus = b }
}

// NewLog creates an empty Log.
func NewLog(opts ...Option) *Log {
	l := &Log{
		data:  make([]Entry, DefaultLimit),
		clock: clock.Real(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record prepends an entry to the feed, evicting the oldest entry once the
// limit is reached, and returns the stored entry.
func (l *Log) Record(actorName, actorColor, action, target string) Entry {
	entry := Entry{
		ID:         uuid.NewString(),
		ActorName:  actorName,
		ActorColor: actorColor,
		Action:     action,
		Target:     target,
		Timestamp:  l.clock.Now(),
	}

	l.mu.Lock()
	l.data[l.end] = entry
	l.end = (l.end + 1) % len(l.data)
	if l.end == 0 {
		l.full = true
	}
	l.mu.Unlock()

	if l.bus != nil {
		l.bus.Publish(event.NewActivityRecordedEvent(entry.ID, actorName, action, target))
	}
	return entry
}

// RecordFor records an entry attributed to a.
func (l *Log) RecordFor(a Actor, action, target string) Entry {
	return l.Record(a.DisplayName(), a.DisplayColor(), action, target)
}

// List returns the retained entries, most recent first.
func (l *Log) List() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := l.lenLocked()
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.end - i + len(l.data)) % len(l.data)
		out = append(out, l.data[idx])
	}
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lenLocked()
}

// Limit returns the capacity of the log.
func (l *Log) Limit() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.data)
}

func (l *Log) lenLocked() int {
	if l.full {
		return len(l.data)
	}
	return l.end
}

// Clear discards every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.data = make([]Entry, len(l.data))
	l.end = 0
	l.full = false
}
