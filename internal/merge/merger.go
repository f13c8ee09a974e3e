// Package merge maintains the shared snapshot of CV field values and applies
// proposed edits to it once a Transport has delivered them.
//
// There is no conflict resolution. Two proposals for the same field are
// applied in the order their deliveries complete, so the last delivery to
// arrive wins regardless of which proposal was made last.
package merge

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Iron-Ham/cvcollab/internal/activity"
	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/errors"
	"github.com/Iron-Ham/cvcollab/internal/event"
	"github.com/Iron-Ham/cvcollab/internal/logging"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

// Snapshot maps section to field to value.
type Snapshot map[string]map[string]any

// Clone returns a copy of the snapshot's maps. Values are not copied.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for section, fields := range s {
		inner := make(map[string]any, len(fields))
		for field, v := range fields {
			inner[field] = v
		}
		out[section] = inner
	}
	return out
}

type inflight struct {
	change Change
	result *Future
}

// Merger applies delivered changes to the shared snapshot. It is safe for
// concurrent use.
type Merger struct {
	mu       sync.RWMutex
	data     Snapshot
	pending  map[string]string // "section.field" -> change ID
	inflight map[string]inflight
	epoch    uint64

	transport Transport
	clock     clock.Clock
	recorder  activity.Recorder
	bus       *event.Bus
	logger    *logging.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithTransport replaces the default DelayTransport.
func WithTransport(t Transport) Option {
	return func(m *Merger) { m.transport = t }
}

// WithClock sets the clock used for proposal timestamps and, unless a
// transport is given, for the default DelayTransport.
func WithClock(c clock.Clock) Option {
	return func(m *Merger) { m.clock = c }
}

// WithRecorder sets where "updated" activity is recorded.
func WithRecorder(r activity.Recorder) Option {
	return func(m *Merger) { m.recorder = r }
}

// WithBus sets the bus that receives merge events.
func WithBus(b *event.Bus) Option {
	return func(m *Merger) { m.bus = b }
}

// WithLogger sets the merger's logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Merger) { m.logger = l }
}

// NewMerger creates a Merger with an empty snapshot.
func NewMerger(opts ...Option) *Merger {
	m := &Merger{
		data:     make(Snapshot),
		pending:  make(map[string]string),
		inflight: make(map[string]inflight),
		clock:    clock.Real(),
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.transport == nil {
		m.transport = NewDelayTransport(WithTransportClock(m.clock))
	}
	return m
}

// Propose marks section.field as pending and sends the change through the
// transport. The returned future resolves after the value has been written
// to the snapshot, or with errors.ErrCanceled if Reset ran first.
func (m *Merger) Propose(section, field string, value any, p session.Participant) *Future {
	change := Change{
		ID:          uuid.NewString(),
		Section:     section,
		Field:       field,
		Value:       value,
		Participant: p,
		ProposedAt:  m.clock.Now(),
	}
	result := NewFuture()

	m.mu.Lock()
	m.pending[change.Key()] = change.ID
	m.inflight[change.ID] = inflight{change: change, result: result}
	epoch := m.epoch
	m.mu.Unlock()

	m.logger.WithSection(section).Debug("edit proposed",
		"field", field, "change_id", change.ID, "participant_id", p.ID)
	m.publish(event.NewMergeProposedEvent(change.ID, section, field, p.ID))

	m.transport.Send(change).onResolve(func(err error) {
		m.deliver(change, epoch, err)
	})
	return result
}

func (m *Merger) deliver(change Change, epoch uint64, err error) {
	key := change.Key()

	m.mu.Lock()
	flight, ok := m.inflight[change.ID]
	if !ok || epoch != m.epoch {
		// Reset already canceled this change.
		m.mu.Unlock()
		return
	}
	delete(m.inflight, change.ID)
	if m.pending[key] == change.ID {
		delete(m.pending, key)
	}
	if err == nil {
		fields, ok := m.data[change.Section]
		if !ok {
			fields = make(map[string]any)
			m.data[change.Section] = fields
		}
		fields[change.Field] = change.Value
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.WithSection(change.Section).Warn("edit delivery failed",
			"field", change.Field, "change_id", change.ID, "error", err)
		m.publish(event.NewMergeCanceledEvent(change.ID, change.Section, change.Field, change.Participant.ID))
		flight.result.Resolve(err)
		return
	}

	if m.recorder != nil {
		m.recorder.Record(change.Participant.Name, change.Participant.Color,
			activity.ActionUpdated, change.Section+" - "+change.Field)
	}
	m.publish(event.NewMergeAppliedEvent(change.ID, change.Section, change.Field, change.Participant.ID))
	flight.result.Resolve(nil)
}

// Snapshot returns a copy of the shared values.
func (m *Merger) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Clone()
}

// Value returns the shared value of section.field.
func (m *Merger) Value(section, field string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[section][field]
	return v, ok
}

// Pending returns the "section.field" keys with an undelivered change, sorted.
func (m *Merger) Pending() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.pending))
	for k := range m.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsPending reports whether section.field has an undelivered change.
func (m *Merger) IsPending(section, field string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.pending[fieldKey(section, field)]
	return ok
}

// Reset clears the snapshot and pending markers and cancels every in-flight
// change. Deliveries that arrive afterwards are discarded.
func (m *Merger) Reset() {
	m.mu.Lock()
	m.epoch++
	m.data = make(Snapshot)
	m.pending = make(map[string]string)
	canceled := make([]inflight, 0, len(m.inflight))
	for _, f := range m.inflight {
		canceled = append(canceled, f)
	}
	m.inflight = make(map[string]inflight)
	m.mu.Unlock()

	sort.Slice(canceled, func(i, j int) bool {
		return canceled[i].change.ProposedAt.Before(canceled[j].change.ProposedAt)
	})
	for _, f := range canceled {
		c := f.change
		m.publish(event.NewMergeCanceledEvent(c.ID, c.Section, c.Field, c.Participant.ID))
		f.result.Resolve(errors.ErrCanceled)
	}
	if len(canceled) > 0 {
		m.logger.Info("in-flight edits canceled", "count", len(canceled))
	}
}

func (m *Merger) publish(e event.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}

func fieldKey(section, field string) string {
	return section + "." + field
}
