package merge

import (
	"time"

	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

// DefaultLatency is the simulated delivery delay of a DelayTransport.
const DefaultLatency = 500 * time.Millisecond

// Change is a proposed write of one field value.
type Change struct {
	ID          string              `json:"id" yaml:"id"`
	Section     string              `json:"section" yaml:"section"`
	Field       string              `json:"field" yaml:"field"`
	Value       any                 `json:"value" yaml:"value"`
	Participant session.Participant `json:"participant" yaml:"participant"`
	ProposedAt  time.Time           `json:"proposed_at" yaml:"proposed_at"`
}

// Key returns the "section.field" key the change targets.
func (c Change) Key() string {
	return fieldKey(c.Section, c.Field)
}

// Transport delivers changes to the shared copy of the CV. The returned
// future resolves once the change has arrived; a non-nil error means it
// never will.
type Transport interface {
	Send(c Change) *Future
}

// DelayTransport simulates network delivery by resolving each change after
// a fixed or per-change latency.
type DelayTransport struct {
	clock   clock.Clock
	latency func(Change) time.Duration
}

// TransportOption configures a DelayTransport.
type TransportOption func(*DelayTransport)

// WithTransportClock sets the clock that times deliveries.
func WithTransportClock(c clock.Clock) TransportOption {
	return func(t *DelayTransport) { t.clock = c }
}

// WithLatency sets a fixed latency for every change.
func WithLatency(d time.Duration) TransportOption {
	return func(t *DelayTransport) {
		t.latency = func(Change) time.Duration { return d }
	}
}

// WithLatencyFunc sets a per-change latency.
func WithLatencyFunc(fn func(Change) time.Duration) TransportOption {
	return func(t *DelayTransport) { t.latency = fn }
}

// NewDelayTransport creates a DelayTransport with DefaultLatency.
func NewDelayTransport(opts ...TransportOption) *DelayTransport {
	t := &DelayTransport{
		clock:   clock.Real(),
		latency: func(Change) time.Duration { return DefaultLatency },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send schedules delivery of c.
func (t *DelayTransport) Send(c Change) *Future {
	f := NewFuture()
	t.clock.AfterFunc(t.latency(c), func() { f.Resolve(nil) })
	return f
}
