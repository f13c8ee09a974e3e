// Package simulate generates collaborator activity for demos and manual
// testing: a background loop that occasionally attributes random feed
// entries to roster members, and scripted participants that edit and
// comment concurrently.
package simulate

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/cvcollab/internal/activity"
	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/errors"
	"github.com/Iron-Ham/cvcollab/internal/logging"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

// Defaults for the background loop.
const (
	DefaultInterval  = 10 * time.Second
	DefaultThreshold = 0.7
)

// Sections, Actions and Fields are the vocabularies random activity is
// drawn from.
var (
	Sections = []string{"Personal Info", "Skills", "Experience", "Education"}
	Actions  = []string{activity.ActionViewed, activity.ActionEdited, activity.ActionCommented}
	Fields   = []string{"Name", "Title", "Description", "Details"}
)

// Source supplies randomness. *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// Target is the part of a collaboration context the simulator drives.
type Target interface {
	Roster() []session.Participant
	Self() (session.Participant, bool)
	RecordActivity(p session.Participant, action, target string) activity.Entry
}

// Simulator records random activity on behalf of roster members.
type Simulator struct {
	target    Target
	clock     clock.Clock
	src       Source
	interval  time.Duration
	threshold float64
	logger    *logging.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      *conc.WaitGroup
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithInterval sets how often the background loop draws.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithThreshold sets the draw a tick must exceed to record activity.
// 0.7 means roughly three ticks in ten produce an entry.
func WithThreshold(v float64) Option {
	return func(s *Simulator) { s.threshold = v }
}

// WithSource sets the randomness source.
func WithSource(src Source) Option {
	return func(s *Simulator) { s.src = src }
}

// WithClock sets the clock that paces the background loop.
func WithClock(c clock.Clock) Option {
	return func(s *Simulator) { s.clock = c }
}

// WithLogger sets the simulator's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// New creates a stopped Simulator driving target.
func New(target Target, opts ...Option) *Simulator {
	s := &Simulator{
		target:    target,
		clock:     clock.Real(),
		src:       globalSource{},
		interval:  DefaultInterval,
		threshold: DefaultThreshold,
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Step performs one draw. When the roster has more than one member and the
// draw exceeds the threshold, a random member records a random action on a
// random section.
func (s *Simulator) Step() (activity.Entry, bool) {
	roster := s.target.Roster()
	if len(roster) <= 1 {
		return activity.Entry{}, false
	}
	if s.src.Float64() <= s.threshold {
		return activity.Entry{}, false
	}

	p := roster[s.src.IntN(len(roster))]
	section := Sections[s.src.IntN(len(Sections))]
	action := Actions[s.src.IntN(len(Actions))]
	return s.target.RecordActivity(p, action, section), true
}

// SimulateEdit records an "edited" entry for the local participant on a
// random section and field.
func (s *Simulator) SimulateEdit() (activity.Entry, bool) {
	self, ok := s.target.Self()
	if !ok {
		return activity.Entry{}, false
	}
	section := Sections[s.src.IntN(len(Sections))]
	field := Fields[s.src.IntN(len(Fields))]
	return s.target.RecordActivity(self, activity.ActionEdited, section+" - "+field), true
}

// Start runs Step every interval until ctx is done or Stop is called.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("simulate: already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg = conc.NewWaitGroup()
	s.wg.Go(func() { s.loop(ctx) })

	s.logger.Info("simulator started", "interval", s.interval.String(), "threshold", s.threshold)
	return nil
}

func (s *Simulator) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.interval):
			if entry, ok := s.Step(); ok {
				s.logger.Debug("simulated activity", "entry", entry.String())
			}
		}
	}
}

// Stop halts the background loop and waits for it to exit. It is idempotent.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.running = false
	s.logger.Info("simulator stopped")
}

// Running reports whether the background loop is active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
