// Package collab assembles the collaboration components into a single
// [Context] owned by the caller.
//
// A Context is constructed explicitly and passed to whatever needs it; there
// is no package-level instance, so tests and tools can run several
// independent contexts side by side.
//
// # Components
//
//   - session.Registry: session lifecycle and roster
//   - activity.Log: newest-first feed, capped at 20 entries
//   - editlock.Tracker: advisory field locks and typing indicators
//   - comments.Store: per-section comment threads
//   - merge.Merger: shared snapshot updated through a latency transport
//
// Every component publishes to the [Config.Bus], which is how renderers such
// as the terminal dashboard learn about changes.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	cc, err := collab.New(collab.Config{Bus: bus})
//
//	code, err := cc.StartSession(alice)
//	_ = cc.AddParticipant(bob)
//
//	name := cc.Field("generalInfo", "name", alice)
//	name.Focus()
//	future := name.Blur("Alice Smith", "Alice")
//	err = future.Wait(ctx)
//
//	cc.EndSession()
package collab
