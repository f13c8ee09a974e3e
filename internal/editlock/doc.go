// Package editlock tracks which participant is currently editing which CV
// field, and the short-lived "typing" indicators shown next to fields.
//
// Locks are advisory: they never prevent a write. Acquiring a field always
// succeeds and simply overwrites the previous holder. A lock stops counting
// as held once [DefaultLockTTL] has passed since it was acquired; nothing
// evicts it eagerly, every query compares the acquisition time to now.
//
// # Basic Usage
//
//	tr := editlock.NewTracker(editlock.WithBus(bus))
//
//	// Focus a field
//	tr.Acquire("Skills", "name", alice)
//
//	// Is someone else in here?
//	if tr.IsHeldByOther("Skills", "name", bob.ID) { ... }
//
//	// Blur the field; ignored unless alice still holds it
//	tr.Release("Skills", "name", alice.ID)
//
// # Live Changes
//
// Each Acquire also emits a [LiveChange]. At most [DefaultLiveChangeLimit]
// are kept, newest first, and each is removed [DefaultLiveChangeTTL] after
// it was created by a timer keyed by its ID.
//
// # Thread Safety
//
// All [Tracker] methods are safe for concurrent use. Events are published
// after the tracker's lock is released.
package editlock
