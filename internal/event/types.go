package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "session.started", "editlock.acquired")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeSessionStarted    = "session.started"
	TypeSessionJoined     = "session.joined"
	TypeSessionEnded      = "session.ended"
	TypeParticipantLeft   = "participant.left"
	TypeLockAcquired      = "editlock.acquired"
	TypeLockReleased      = "editlock.released"
	TypeLiveChangeStarted = "livechange.started"
	TypeLiveChangeExpired = "livechange.expired"
	TypeActivityRecorded  = "activity.recorded"
	TypeCommentAdded      = "comment.added"
	TypeCommentToggled    = "comment.toggled"
	TypeMergeProposed     = "merge.proposed"
	TypeMergeApplied      = "merge.applied"
	TypeMergeCanceled     = "merge.canceled"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Session Events
// -----------------------------------------------------------------------------

// SessionStartedEvent is emitted when a participant starts a session.
type SessionStartedEvent struct {
	baseEvent
	SessionID     string
	Code          string
	ParticipantID string
}

// NewSessionStartedEvent creates a SessionStartedEvent.
func NewSessionStartedEvent(sessionID, code, participantID string) SessionStartedEvent {
	return SessionStartedEvent{
		baseEvent:     newBaseEvent(TypeSessionStarted),
		SessionID:     sessionID,
		Code:          code,
		ParticipantID: participantID,
	}
}

// SessionJoinedEvent is emitted when a participant joins the roster.
type SessionJoinedEvent struct {
	baseEvent
	Code          string
	ParticipantID string
	Name          string
}

// NewSessionJoinedEvent creates a SessionJoinedEvent.
func NewSessionJoinedEvent(code, participantID, name string) SessionJoinedEvent {
	return SessionJoinedEvent{
		baseEvent:     newBaseEvent(TypeSessionJoined),
		Code:          code,
		ParticipantID: participantID,
		Name:          name,
	}
}

// SessionEndedEvent is emitted after a session and all its state are cleared.
type SessionEndedEvent struct {
	baseEvent
	Code string
}

// NewSessionEndedEvent creates a SessionEndedEvent.
func NewSessionEndedEvent(code string) SessionEndedEvent {
	return SessionEndedEvent{
		baseEvent: newBaseEvent(TypeSessionEnded),
		Code:      code,
	}
}

// ParticipantLeftEvent is emitted when a participant is removed from the roster.
type ParticipantLeftEvent struct {
	baseEvent
	ParticipantID string
}

// NewParticipantLeftEvent creates a ParticipantLeftEvent.
func NewParticipantLeftEvent(participantID string) ParticipantLeftEvent {
	return ParticipantLeftEvent{
		baseEvent:     newBaseEvent(TypeParticipantLeft),
		ParticipantID: participantID,
	}
}

// -----------------------------------------------------------------------------
// Edit Lock Events
// -----------------------------------------------------------------------------

// LockAcquiredEvent is emitted when a participant takes the edit lock on a field.
// PreviousHolder is set when the acquire overwrote someone else's lock.
type LockAcquiredEvent struct {
	baseEvent
	Section        string
	Field          string
	ParticipantID  string
	PreviousHolder string
}

// NewLockAcquiredEvent creates a LockAcquiredEvent.
func NewLockAcquiredEvent(section, field, participantID, previous string) LockAcquiredEvent {
	return LockAcquiredEvent{
		baseEvent:      newBaseEvent(TypeLockAcquired),
		Section:        section,
		Field:          field,
		ParticipantID:  participantID,
		PreviousHolder: previous,
	}
}

// LockReleasedEvent is emitted when the holder releases a field.
type LockReleasedEvent struct {
	baseEvent
	Section       string
	Field         string
	ParticipantID string
}

// NewLockReleasedEvent creates a LockReleasedEvent.
func NewLockReleasedEvent(section, field, participantID string) LockReleasedEvent {
	return LockReleasedEvent{
		baseEvent:     newBaseEvent(TypeLockReleased),
		Section:       section,
		Field:         field,
		ParticipantID: participantID,
	}
}

// LiveChangeStartedEvent is emitted when a "typing" indicator appears.
type LiveChangeStartedEvent struct {
	baseEvent
	ChangeID      string
	Section       string
	Field         string
	ParticipantID string
}

// NewLiveChangeStartedEvent creates a LiveChangeStartedEvent.
func NewLiveChangeStartedEvent(changeID, section, field, participantID string) LiveChangeStartedEvent {
	return LiveChangeStartedEvent{
		baseEvent:     newBaseEvent(TypeLiveChangeStarted),
		ChangeID:      changeID,
		Section:       section,
		Field:         field,
		ParticipantID: participantID,
	}
}

// LiveChangeExpiredEvent is emitted when a "typing" indicator times out.
type LiveChangeExpiredEvent struct {
	baseEvent
	ChangeID string
}

// NewLiveChangeExpiredEvent creates a LiveChangeExpiredEvent.
func NewLiveChangeExpiredEvent(changeID string) LiveChangeExpiredEvent {
	return LiveChangeExpiredEvent{
		baseEvent: newBaseEvent(TypeLiveChangeExpired),
		ChangeID:  changeID,
	}
}

// -----------------------------------------------------------------------------
// Activity and Comment Events
// -----------------------------------------------------------------------------

// ActivityRecordedEvent is emitted for every activity log entry.
type ActivityRecordedEvent struct {
	baseEvent
	EntryID string
	Actor   string
	Action  string
	Target  string
}

// NewActivityRecordedEvent creates an ActivityRecordedEvent.
func NewActivityRecordedEvent(entryID, actor, action, target string) ActivityRecordedEvent {
	return ActivityRecordedEvent{
		baseEvent: newBaseEvent(TypeActivityRecorded),
		EntryID:   entryID,
		Actor:     actor,
		Action:    action,
		Target:    target,
	}
}

// CommentAddedEvent is emitted when a comment is appended to a section thread.
type CommentAddedEvent struct {
	baseEvent
	Section   string
	CommentID int64
	AuthorID  string
}

// NewCommentAddedEvent creates a CommentAddedEvent.
func NewCommentAddedEvent(section string, commentID int64, authorID string) CommentAddedEvent {
	return CommentAddedEvent{
		baseEvent: newBaseEvent(TypeCommentAdded),
		Section:   section,
		CommentID: commentID,
		AuthorID:  authorID,
	}
}

// CommentToggledEvent is emitted when a comment's resolved flag flips.
type CommentToggledEvent struct {
	baseEvent
	Section   string
	CommentID int64
	Resolved  bool
}

// NewCommentToggledEvent creates a CommentToggledEvent.
func NewCommentToggledEvent(section string, commentID int64, resolved bool) CommentToggledEvent {
	return CommentToggledEvent{
		baseEvent: newBaseEvent(TypeCommentToggled),
		Section:   section,
		CommentID: commentID,
		Resolved:  resolved,
	}
}

// -----------------------------------------------------------------------------
// Merge Events
// -----------------------------------------------------------------------------

// MergeEvent describes a proposed, applied or canceled shared-data change.
// The concrete type is distinguished by EventType.
type MergeEvent struct {
	baseEvent
	ChangeID      string
	Section       string
	Field         string
	ParticipantID string
}

func newMergeEvent(eventType, changeID, section, field, participantID string) MergeEvent {
	return MergeEvent{
		baseEvent:     newBaseEvent(eventType),
		ChangeID:      changeID,
		Section:       section,
		Field:         field,
		ParticipantID: participantID,
	}
}

// NewMergeProposedEvent creates a merge.proposed event.
func NewMergeProposedEvent(changeID, section, field, participantID string) MergeEvent {
	return newMergeEvent(TypeMergeProposed, changeID, section, field, participantID)
}

// NewMergeAppliedEvent creates a merge.applied event.
func NewMergeAppliedEvent(changeID, section, field, participantID string) MergeEvent {
	return newMergeEvent(TypeMergeApplied, changeID, section, field, participantID)
}

// NewMergeCanceledEvent creates a merge.canceled event.
func NewMergeCanceledEvent(changeID, section, field, participantID string) MergeEvent {
	return newMergeEvent(TypeMergeCanceled, changeID, section, field, participantID)
}
