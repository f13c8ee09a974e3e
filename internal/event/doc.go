// Package event provides a pub-sub event bus that carries collaboration
// state changes to rendering components.
//
// Publishers (session registry, edit-lock tracker, comment store, merger)
// do not know who consumes their events; the dashboard and CLI subscribe
// without depending on the publishers.
//
// # Main Types
//
//   - [Event]: Interface that all events implement (EventType, Timestamp)
//   - [Bus]: Synchronous pub-sub dispatcher, safe for concurrent use
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Session: session.started, session.joined, session.ended, participant.left
//
// Edit locks: editlock.acquired, editlock.released, livechange.started,
// livechange.expired
//
// Feed: activity.recorded, comment.added, comment.toggled
//
// Merge: merge.proposed, merge.applied, merge.canceled
//
// # Basic Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeLockAcquired, func(e event.Event) {
//	    acquired := e.(event.LockAcquiredEvent)
//	    fmt.Printf("%s is editing %s.%s\n", acquired.ParticipantID, acquired.Section, acquired.Field)
//	})
//
// Handlers run synchronously on the publisher's goroutine, after the
// publisher has released its own locks, so they may call back into the
// publishing component.
package event
