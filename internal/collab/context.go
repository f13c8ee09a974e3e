package collab

import (
	"strings"

	"github.com/Iron-Ham/cvcollab/internal/activity"
	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/comments"
	"github.com/Iron-Ham/cvcollab/internal/editlock"
	"github.com/Iron-Ham/cvcollab/internal/errors"
	"github.com/Iron-Ham/cvcollab/internal/event"
	"github.com/Iron-Ham/cvcollab/internal/logging"
	"github.com/Iron-Ham/cvcollab/internal/merge"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

// Config holds required dependencies for creating a Context.
type Config struct {
	Bus    *event.Bus
	Clock  clock.Clock
	Logger *logging.Logger
}

// Context wires the session registry, activity log, edit-lock tracker,
// comment store and merger for one local user.
type Context struct {
	bus    *event.Bus
	clock  clock.Clock
	logger *logging.Logger

	registry *session.Registry
	log      *activity.Log
	locks    *editlock.Tracker
	comments *comments.Store
	merger   *merge.Merger

	inviteOrigin string
}

// New creates a Context with no active session.
func New(cfg Config, opts ...Option) (*Context, error) {
	if cfg.Bus == nil {
		return nil, errors.New("collab: Bus is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}

	cc := &contextConfig{}
	for _, opt := range opts {
		opt(cc)
	}

	logOpts := []activity.Option{activity.WithClock(cfg.Clock), activity.WithBus(cfg.Bus)}
	if cc.activityLimit > 0 {
		logOpts = append(logOpts, activity.WithLimit(cc.activityLimit))
	}
	log := activity.NewLog(logOpts...)

	lockOpts := []editlock.Option{
		editlock.WithClock(cfg.Clock),
		editlock.WithBus(cfg.Bus),
		editlock.WithLogger(cfg.Logger.WithComponent("editlock")),
	}
	if cc.lockTTL > 0 {
		lockOpts = append(lockOpts, editlock.WithLockTTL(cc.lockTTL))
	}
	if cc.liveChangeTTL > 0 {
		lockOpts = append(lockOpts, editlock.WithLiveChangeTTL(cc.liveChangeTTL))
	}
	if cc.liveChangeLimit > 0 {
		lockOpts = append(lockOpts, editlock.WithLiveChangeLimit(cc.liveChangeLimit))
	}

	transport := cc.transport
	if transport == nil {
		transportOpts := []merge.TransportOption{merge.WithTransportClock(cfg.Clock)}
		if cc.mergeLatency > 0 {
			transportOpts = append(transportOpts, merge.WithLatency(cc.mergeLatency))
		}
		transport = merge.NewDelayTransport(transportOpts...)
	}

	return &Context{
		bus:    cfg.Bus,
		clock:  cfg.Clock,
		logger: cfg.Logger,
		registry: session.NewRegistry(
			session.WithClock(cfg.Clock),
			session.WithRecorder(log),
			session.WithBus(cfg.Bus),
			session.WithLogger(cfg.Logger.WithComponent("session")),
			session.WithRandom(cc.intn),
		),
		log:   log,
		locks: editlock.NewTracker(lockOpts...),
		comments: comments.NewStore(
			comments.WithClock(cfg.Clock),
			comments.WithRecorder(log),
			comments.WithBus(cfg.Bus),
			comments.WithLogger(cfg.Logger.WithComponent("comments")),
		),
		merger: merge.NewMerger(
			merge.WithClock(cfg.Clock),
			merge.WithTransport(transport),
			merge.WithRecorder(log),
			merge.WithBus(cfg.Bus),
			merge.WithLogger(cfg.Logger.WithComponent("merge")),
		),
		inviteOrigin: cc.inviteOrigin,
	}, nil
}

// Bus returns the event bus all components publish to.
func (c *Context) Bus() *event.Bus { return c.bus }

// Clock returns the context's time source.
func (c *Context) Clock() clock.Clock { return c.clock }

// -----------------------------------------------------------------------------
// Session
// -----------------------------------------------------------------------------

// StartSession starts a session owned by p and returns its code.
func (c *Context) StartSession(p session.Participant) (string, error) {
	return c.registry.Start(p)
}

// JoinSession joins the session identified by code as p.
func (c *Context) JoinSession(code string, p session.Participant) error {
	return c.registry.Join(code, p)
}

// EndSession leaves the session and clears every store: locks, live
// changes, comments, the shared snapshot and the activity feed. In-flight
// edits are canceled and will not be applied.
func (c *Context) EndSession() {
	c.merger.Reset()
	c.locks.Clear()
	c.comments.Clear()
	c.registry.End()
	c.log.Clear()
}

// Active reports whether a session is active.
func (c *Context) Active() bool { return c.registry.Active() }

// Session returns the active session.
func (c *Context) Session() (session.Session, bool) { return c.registry.Session() }

// InviteLink returns the join URL for the active session.
func (c *Context) InviteLink() (string, bool) {
	s, ok := c.registry.Session()
	if !ok {
		return "", false
	}
	return session.InviteLink(c.inviteOrigin, s.Code), true
}

// Self returns the local participant.
func (c *Context) Self() (session.Participant, bool) { return c.registry.Self() }

// Roster returns the participants in join order.
func (c *Context) Roster() []session.Participant { return c.registry.Roster() }

// AddParticipant adds a remote participant to the roster.
func (c *Context) AddParticipant(p session.Participant) error {
	return c.registry.AddParticipant(p)
}

// RemoveParticipant removes a participant and releases their locks.
func (c *Context) RemoveParticipant(id string) error {
	if err := c.registry.RemoveParticipant(id); err != nil {
		return err
	}
	c.locks.ReleaseAll(id)
	return nil
}

// -----------------------------------------------------------------------------
// Edit locks
// -----------------------------------------------------------------------------

// Acquire marks p as editing section.field.
func (c *Context) Acquire(section, field string, p session.Participant) (editlock.Lock, error) {
	if !c.registry.Active() {
		return editlock.Lock{}, errors.NewSessionError("cannot acquire edit lock", errors.ErrSessionInactive).
			WithSeverity(errors.SeverityWarning)
	}
	return c.locks.Acquire(section, field, p), nil
}

// Release clears p's lock on section.field. It is a no-op unless
// participantID is the current holder.
func (c *Context) Release(section, field, participantID string) bool {
	return c.locks.Release(section, field, participantID)
}

// IsHeldByOther reports whether someone other than requesterID is editing
// section.field.
func (c *Context) IsHeldByOther(section, field, requesterID string) bool {
	return c.locks.IsHeldByOther(section, field, requesterID)
}

// IsFieldBeingEdited reports whether someone other than the local
// participant is editing section.field. Always false without a session.
func (c *Context) IsFieldBeingEdited(section, field string) bool {
	self, ok := c.registry.Self()
	if !ok {
		return false
	}
	return c.locks.IsHeldByOther(section, field, self.ID)
}

// Holder returns who is editing section.field.
func (c *Context) Holder(section, field string) (session.Participant, bool) {
	return c.locks.Holder(section, field)
}

// Locks returns every unexpired edit lock.
func (c *Context) Locks() []editlock.Lock { return c.locks.Locks() }

// LiveChanges returns the visible typing indicators, newest first.
func (c *Context) LiveChanges() []editlock.LiveChange { return c.locks.LiveChanges() }

// -----------------------------------------------------------------------------
// Shared data
// -----------------------------------------------------------------------------

// ProposeEdit sends a new value for section.field. The returned future
// resolves once the value is in the shared snapshot.
func (c *Context) ProposeEdit(section, field string, value any, p session.Participant) (*merge.Future, error) {
	if !c.registry.Active() {
		return nil, errors.NewSessionError("cannot propose edit", errors.ErrSessionInactive).
			WithSeverity(errors.SeverityWarning)
	}
	return c.merger.Propose(section, field, value, p), nil
}

// logError logs err at warn or error level according to its severity.
func (c *Context) logError(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if errors.GetSeverity(err) <= errors.SeverityWarning {
		c.logger.Warn(msg, args...)
		return
	}
	c.logger.Error(msg, args...)
}

// Snapshot returns a copy of the shared CV values.
func (c *Context) Snapshot() merge.Snapshot { return c.merger.Snapshot() }

// Pending returns the "section.field" keys with undelivered edits.
func (c *Context) Pending() []string { return c.merger.Pending() }

// IsPending reports whether section.field has an undelivered edit.
func (c *Context) IsPending(section, field string) bool { return c.merger.IsPending(section, field) }

// -----------------------------------------------------------------------------
// Comments and activity
// -----------------------------------------------------------------------------

// AddComment appends a comment to section. Blank text is rejected.
func (c *Context) AddComment(section, text string, author session.Participant) (comments.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return comments.Comment{}, errors.NewValidationError("comment text is required").WithField("text")
	}
	return c.comments.Add(section, text, author), nil
}

// ToggleResolved flips a comment's resolved flag. Unknown IDs are ignored.
func (c *Context) ToggleResolved(section string, id int64) bool {
	return c.comments.ToggleResolved(section, id)
}

// UnresolvedCount returns the number of open comments in section.
func (c *Context) UnresolvedCount(section string) int { return c.comments.UnresolvedCount(section) }

// Thread returns section's comments in the order they were added.
func (c *Context) Thread(section string) []comments.Comment { return c.comments.Thread(section) }

// CommentSections returns the sections with comments.
func (c *Context) CommentSections() []string { return c.comments.Sections() }

// Activity returns the activity feed, newest first.
func (c *Context) Activity() []activity.Entry { return c.log.List() }

// RecordActivity adds a feed entry attributed to p.
func (c *Context) RecordActivity(p session.Participant, action, target string) activity.Entry {
	return c.log.RecordFor(p, action, target)
}
