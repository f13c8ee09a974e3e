package editlock

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/event"
	"github.com/Iron-Ham/cvcollab/internal/logging"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

// Tracker maintains per-field edit locks and the live-change feed.
type Tracker struct {
	mu     sync.RWMutex
	locks  map[fieldKey]Lock
	live   []LiveChange // newest first
	timers map[string]clock.Timer

	lockTTL   time.Duration
	liveTTL   time.Duration
	liveLimit int

	clock  clock.Clock
	bus    *event.Bus
	logger *logging.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLockTTL sets how long a lock blocks other participants.
func WithLockTTL(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.lockTTL = d
		}
	}
}

// WithLiveChangeTTL sets how long a live change stays visible.
func WithLiveChangeTTL(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.liveTTL = d
		}
	}
}

// WithLiveChangeLimit sets how many live changes are retained.
func WithLiveChangeLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.liveLimit = n
		}
	}
}

// WithClock sets the tracker's time source.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithBus sets the bus that receives lock and live-change events.
func WithBus(b *event.Bus) Option {
	return func(t *Tracker) { t.bus = b }
}

// WithLogger sets the tracker's logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates an empty Tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		locks:     make(map[fieldKey]Lock),
		timers:    make(map[string]clock.Timer),
		lockTTL:   DefaultLockTTL,
		liveTTL:   DefaultLiveChangeTTL,
		liveLimit: DefaultLiveChangeLimit,
		clock:     clock.Real(),
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LockTTL returns the configured lock lifetime.
func (t *Tracker) LockTTL() time.Duration { return t.lockTTL }

// Acquire marks p as editing section.field, replacing any previous holder.
// It also emits a live change that disappears after the live-change TTL.
func (t *Tracker) Acquire(section, field string, p session.Participant) Lock {
	now := t.clock.Now()
	key := fieldKey{section, field}
	lock := Lock{Section: section, Field: field, Holder: p, AcquiredAt: now}
	change := LiveChange{
		ID:          uuid.NewString(),
		Participant: p,
		Section:     section,
		Field:       field,
		Timestamp:   now,
	}

	t.mu.Lock()
	var previous string
	if prev, ok := t.locks[key]; ok && prev.Holder.ID != p.ID && !prev.Expired(now, t.lockTTL) {
		previous = prev.Holder.ID
	}
	t.locks[key] = lock

	t.live = append([]LiveChange{change}, t.live...)
	for _, dropped := range t.live[min(len(t.live), t.liveLimit):] {
		t.stopTimerLocked(dropped.ID)
	}
	t.live = t.live[:min(len(t.live), t.liveLimit)]

	id := change.ID
	t.timers[id] = t.clock.AfterFunc(t.liveTTL, func() { t.expireLiveChange(id) })
	t.mu.Unlock()

	if previous != "" {
		t.logger.WithSection(section).Debug("edit lock taken over",
			"field", field, "participant_id", p.ID, "previous", previous)
	}
	t.publish(event.NewLockAcquiredEvent(section, field, p.ID, previous))
	t.publish(event.NewLiveChangeStartedEvent(change.ID, section, field, p.ID))
	return lock
}

// Release removes the lock on section.field if participantID holds it.
// A release by anyone else is ignored and reported as false.
func (t *Tracker) Release(section, field, participantID string) bool {
	key := fieldKey{section, field}

	t.mu.Lock()
	lock, ok := t.locks[key]
	if !ok || lock.Holder.ID != participantID {
		t.mu.Unlock()
		t.logger.WithSection(section).Debug("stale release ignored",
			"field", field, "participant_id", participantID)
		return false
	}
	delete(t.locks, key)
	t.mu.Unlock()

	t.publish(event.NewLockReleasedEvent(section, field, participantID))
	return true
}

// ReleaseAll removes every lock held by participantID, expired or not,
// and returns how many were removed.
func (t *Tracker) ReleaseAll(participantID string) int {
	t.mu.Lock()
	var released []Lock
	for key, lock := range t.locks {
		if lock.Holder.ID == participantID {
			released = append(released, lock)
			delete(t.locks, key)
		}
	}
	t.mu.Unlock()

	sortLocks(released)
	for _, lock := range released {
		t.publish(event.NewLockReleasedEvent(lock.Section, lock.Field, participantID))
	}
	return len(released)
}

// IsHeldByOther reports whether someone other than requesterID holds an
// unexpired lock on section.field.
func (t *Tracker) IsHeldByOther(section, field, requesterID string) bool {
	holder, ok := t.Holder(section, field)
	return ok && holder.ID != requesterID
}

// Holder returns the participant holding an unexpired lock on section.field.
func (t *Tracker) Holder(section, field string) (session.Participant, bool) {
	now := t.clock.Now()

	t.mu.RLock()
	defer t.mu.RUnlock()

	lock, ok := t.locks[fieldKey{section, field}]
	if !ok || lock.Expired(now, t.lockTTL) {
		return session.Participant{}, false
	}
	return lock.Holder, true
}

// Locks returns every unexpired lock, sorted by section then field.
func (t *Tracker) Locks() []Lock {
	return t.filterLocks(func(Lock) bool { return true })
}

// HeldBy returns the unexpired locks held by participantID, sorted by
// section then field.
func (t *Tracker) HeldBy(participantID string) []Lock {
	return t.filterLocks(func(l Lock) bool { return l.Holder.ID == participantID })
}

func (t *Tracker) filterLocks(keep func(Lock) bool) []Lock {
	now := t.clock.Now()

	t.mu.RLock()
	var out []Lock
	for _, lock := range t.locks {
		if !lock.Expired(now, t.lockTTL) && keep(lock) {
			out = append(out, lock)
		}
	}
	t.mu.RUnlock()

	sortLocks(out)
	return out
}

// LiveChanges returns the visible live changes, newest first.
func (t *Tracker) LiveChanges() []LiveChange {
	now := t.clock.Now()

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]LiveChange, 0, len(t.live))
	for _, c := range t.live {
		if now.Sub(c.Timestamp) < t.liveTTL {
			out = append(out, c)
		}
	}
	return out
}

// Prune drops expired locks and live changes from memory and returns the
// number of locks removed. Queries already ignore expired entries; Prune
// only bounds memory.
func (t *Tracker) Prune() int {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	pruned := 0
	for key, lock := range t.locks {
		if lock.Expired(now, t.lockTTL) {
			delete(t.locks, key)
			pruned++
		}
	}

	kept := t.live[:0]
	for _, c := range t.live {
		if now.Sub(c.Timestamp) < t.liveTTL {
			kept = append(kept, c)
		} else {
			t.stopTimerLocked(c.ID)
		}
	}
	t.live = kept
	return pruned
}

// Clear removes all locks and live changes and cancels pending expiry timers.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id := range t.timers {
		t.stopTimerLocked(id)
	}
	t.locks = make(map[fieldKey]Lock)
	t.live = nil
}

func (t *Tracker) expireLiveChange(id string) {
	t.mu.Lock()
	delete(t.timers, id)
	removed := false
	for i, c := range t.live {
		if c.ID == id {
			t.live = append(t.live[:i:i], t.live[i+1:]...)
			removed = true
			break
		}
	}
	t.mu.Unlock()

	if removed {
		t.publish(event.NewLiveChangeExpiredEvent(id))
	}
}

func (t *Tracker) stopTimerLocked(id string) {
	if timer, ok := t.timers[id]; ok {
		timer.Stop()
		delete(t.timers, id)
	}
}

func (t *Tracker) publish(e event.Event) {
	if t.bus != nil {
		t.bus.Publish(e)
	}
}

func sortLocks(locks []Lock) {
	sort.Slice(locks, func(i, j int) bool {
		if locks[i].Section != locks[j].Section {
			return locks[i].Section < locks[j].Section
		}
		return locks[i].Field < locks[j].Field
	})
}
