// Package session tracks the single collaboration session a local user
// belongs to: its identity, its shareable code and the roster of
// participants.
//
// A Registry moves between two states. Start and Join take it from
// inactive to active; End takes it back. There is no active-to-active
// transition: starting while a session is active fails with
// errors.ErrSessionActive.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/cvcollab/internal/activity"
	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/errors"
	"github.com/Iron-Ham/cvcollab/internal/event"
	"github.com/Iron-Ham/cvcollab/internal/logging"
)

// Session identifies an active collaboration.
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Code      string    `json:"code" yaml:"code"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Registry holds the active session and its roster. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	session *Session
	roster  []Participant
	selfID  string

	clock    clock.Clock
	recorder activity.Recorder
	bus      *event.Bus
	logger   *logging.Logger
	intn     func(n int) int
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source for session and join timestamps.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithRecorder sets where "started" and "joined" activity is recorded.
func WithRecorder(rec activity.Recorder) Option {
	return func(r *Registry) { r.recorder = rec }
}

// WithBus sets the bus that receives session events.
func WithBus(b *event.Bus) Option {
	return func(r *Registry) { r.bus = b }
}

// WithLogger sets the registry's logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithRandom sets the random source used to generate codes.
func WithRandom(intn func(n int) int) Option {
	return func(r *Registry) { r.intn = intn }
}

// NewRegistry creates an inactive Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		clock:  clock.Real(),
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start creates a new session owned by p and returns its code.
// p becomes the owner and the only roster entry. JoinedAt defaults to now.
func (r *Registry) Start(p Participant) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	now := r.clock.Now()
	p.IsOwner = true
	if p.JoinedAt.IsZero() {
		p.JoinedAt = now
	}

	r.mu.Lock()
	if r.session != nil {
		active := *r.session
		r.mu.Unlock()
		return "", errors.NewSessionError("cannot start session", errors.ErrSessionActive).
			WithSessionID(active.ID).WithCode(active.Code)
	}
	sess := Session{
		ID:        uuid.NewString(),
		Code:      GenerateCode(r.intn),
		CreatedAt: now,
	}
	r.session = &sess
	r.roster = []Participant{p}
	r.selfID = p.ID
	r.mu.Unlock()

	r.logger.WithSession(sess.Code).Info("session started",
		"session_id", sess.ID, "participant_id", p.ID)
	r.record(p, activity.ActionStarted)
	r.publish(event.NewSessionStartedEvent(sess.ID, sess.Code, p.ID))
	return sess.Code, nil
}

// Join adds p to the session identified by code.
//
// Only the code's shape is checked. If no session is active locally, one is
// activated with the given code and the roster is seeded with a placeholder
// owner before p is appended.
func (r *Registry) Join(code string, p Participant) error {
	if err := ValidateCode(code); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	now := r.clock.Now()
	p.IsOwner = false
	if p.JoinedAt.IsZero() {
		p.JoinedAt = now
	}

	r.mu.Lock()
	activated := false
	if r.session == nil {
		r.session = &Session{ID: uuid.NewString(), Code: code, CreatedAt: now}
		r.roster = []Participant{PlaceholderOwner(now)}
		activated = true
	}
	if r.indexLocked(p.ID) >= 0 {
		if activated {
			r.session = nil
			r.roster = nil
		}
		r.mu.Unlock()
		return errors.NewAlreadyExistsError("participant", p.ID).WithCause(errors.ErrParticipantExists)
	}
	r.roster = append(r.roster, p)
	r.selfID = p.ID
	sessionCode := r.session.Code
	r.mu.Unlock()

	r.logger.WithSession(sessionCode).Info("joined session",
		"participant_id", p.ID, "activated", activated)
	r.record(p, activity.ActionJoined)
	r.publish(event.NewSessionJoinedEvent(sessionCode, p.ID, p.Name))
	return nil
}

// AddParticipant appends p to the active session's roster.
func (r *Registry) AddParticipant(p Participant) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = r.clock.Now()
	}

	r.mu.Lock()
	if r.session == nil {
		r.mu.Unlock()
		return errors.NewSessionError("cannot add participant", errors.ErrSessionInactive)
	}
	if r.indexLocked(p.ID) >= 0 {
		r.mu.Unlock()
		return errors.NewAlreadyExistsError("participant", p.ID).WithCause(errors.ErrParticipantExists)
	}
	r.roster = append(r.roster, p)
	code := r.session.Code
	r.mu.Unlock()

	r.logger.WithSession(code).Debug("participant added", "participant_id", p.ID)
	r.record(p, activity.ActionJoined)
	r.publish(event.NewSessionJoinedEvent(code, p.ID, p.Name))
	return nil
}

// RemoveParticipant removes the participant with the given ID from the roster.
func (r *Registry) RemoveParticipant(id string) error {
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return errors.NewNotFoundError("participant", id).WithCause(errors.ErrParticipantNotFound)
	}
	r.roster = append(r.roster[:i:i], r.roster[i+1:]...)
	if r.selfID == id {
		r.selfID = ""
	}
	r.mu.Unlock()

	r.logger.Debug("participant removed", "participant_id", id)
	r.publish(event.NewParticipantLeftEvent(id))
	return nil
}

// End clears the session and roster. It reports whether a session was active.
func (r *Registry) End() bool {
	r.mu.Lock()
	if r.session == nil {
		r.mu.Unlock()
		return false
	}
	code := r.session.Code
	r.session = nil
	r.roster = nil
	r.selfID = ""
	r.mu.Unlock()

	r.logger.WithSession(code).Info("session ended")
	r.publish(event.NewSessionEndedEvent(code))
	return true
}

// Active reports whether a session is active.
func (r *Registry) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session != nil
}

// Session returns the active session.
func (r *Registry) Session() (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.session == nil {
		return Session{}, false
	}
	return *r.session, true
}

// Code returns the active session's code, or "" when inactive.
func (r *Registry) Code() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.session == nil {
		return ""
	}
	return r.session.Code
}

// Roster returns the participants in join order.
func (r *Registry) Roster() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Participant, len(r.roster))
	copy(out, r.roster)
	return out
}

// Participant returns the roster entry with the given ID.
func (r *Registry) Participant(id string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexLocked(id); i >= 0 {
		return r.roster[i], true
	}
	return Participant{}, false
}

// Self returns the local participant: whoever last started or joined.
func (r *Registry) Self() (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexLocked(r.selfID); i >= 0 && r.selfID != "" {
		return r.roster[i], true
	}
	return Participant{}, false
}

func (r *Registry) indexLocked(id string) int {
	for i, p := range r.roster {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) record(p Participant, action string) {
	if r.recorder != nil {
		r.recorder.Record(p.Name, p.Color, action, activity.TargetSession)
	}
}

func (r *Registry) publish(e event.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}
