package editlock

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/event"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

var (
	alice = session.Participant{ID: "A", Name: "Alice", Color: "#3B82F6"}
	bob   = session.Participant{ID: "B", Name: "Bob", Color: "#10B981"}
	epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
)

func newTestTracker(t *testing.T, opts ...Option) (*Tracker, *clock.Fake, *event.Bus) {
	t.Helper()
	fc := clock.NewFake(epoch)
	bus := event.NewBus()
	opts = append([]Option{WithClock(fc), WithBus(bus)}, opts...)
	return NewTracker(opts...), fc, bus
}

func TestAcquireOverwrites(t *testing.T) {
	tr, _, bus := newTestTracker(t)

	var acquired []event.LockAcquiredEvent
	bus.Subscribe(event.TypeLockAcquired, func(e event.Event) {
		acquired = append(acquired, e.(event.LockAcquiredEvent))
	})

	tr.Acquire("Skills", "name", alice)
	tr.Acquire("Skills", "name", bob)

	holder, ok := tr.Holder("Skills", "name")
	if !ok || holder.ID != "B" {
		t.Errorf("Holder() = %+v, %v, want B", holder, ok)
	}
	if !tr.IsHeldByOther("Skills", "name", "A") {
		t.Error("IsHeldByOther(A) = false after B acquired, want true")
	}
	if tr.IsHeldByOther("Skills", "name", "B") {
		t.Error("IsHeldByOther(B) = true for the holder itself")
	}

	if len(acquired) != 2 {
		t.Fatalf("acquired events = %d, want 2", len(acquired))
	}
	if acquired[0].PreviousHolder != "" || acquired[1].PreviousHolder != "A" {
		t.Errorf("previous holders = %q, %q; want \"\", A", acquired[0].PreviousHolder, acquired[1].PreviousHolder)
	}
}

func TestLazyExpiry(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{name: "immediately", elapsed: 0, want: true},
		{name: "just before TTL", elapsed: DefaultLockTTL - time.Millisecond, want: true},
		{name: "at TTL", elapsed: DefaultLockTTL, want: false},
		{name: "well after TTL", elapsed: time.Minute, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, fc, _ := newTestTracker(t)
			tr.Acquire("Skills", "name", alice)

			fc.Advance(tt.elapsed)

			if got := tr.IsHeldByOther("Skills", "name", "B"); got != tt.want {
				t.Errorf("IsHeldByOther() after %v = %v, want %v", tt.elapsed, got, tt.want)
			}
			if _, ok := tr.Holder("Skills", "name"); ok != tt.want {
				t.Errorf("Holder() ok after %v = %v, want %v", tt.elapsed, ok, tt.want)
			}
		})
	}
}

func TestReleaseGuard(t *testing.T) {
	tr, fc, bus := newTestTracker(t)

	released := 0
	bus.Subscribe(event.TypeLockReleased, func(event.Event) { released++ })

	tr.Acquire("Skills", "name", alice)
	fc.Advance(time.Second)
	tr.Acquire("Skills", "name", bob)

	if tr.Release("Skills", "name", "A") {
		t.Error("Release by previous holder = true, want false")
	}
	if holder, ok := tr.Holder("Skills", "name"); !ok || holder.ID != "B" {
		t.Errorf("Holder() = %+v, %v, want B", holder, ok)
	}
	if released != 0 {
		t.Errorf("stale release published %d events", released)
	}

	if !tr.Release("Skills", "name", "B") {
		t.Error("Release by holder = false, want true")
	}
	if _, ok := tr.Holder("Skills", "name"); ok {
		t.Error("lock still held after holder released")
	}
	if tr.Release("Skills", "name", "B") {
		t.Error("Release of unlocked field = true, want false")
	}
	if released != 1 {
		t.Errorf("released events = %d, want 1", released)
	}
}

func TestLocksAndHeldBy(t *testing.T) {
	tr, fc, _ := newTestTracker(t)

	tr.Acquire("Skills", "name", alice)
	fc.Advance(5 * time.Second)
	tr.Acquire("Experience", "title", bob)
	tr.Acquire("Experience", "company", alice)

	got := tr.Locks()
	var keys []string
	for _, l := range got {
		keys = append(keys, l.Section+"."+l.Field+"="+l.Holder.ID)
	}
	want := []string{"Experience.company=A", "Experience.title=B", "Skills.name=A"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("Locks() mismatch (-want +got):\n%s", diff)
	}

	if n := len(tr.HeldBy("A")); n != 2 {
		t.Errorf("HeldBy(A) = %d locks, want 2", n)
	}

	fc.Advance(5 * time.Second)
	if n := len(tr.HeldBy("A")); n != 1 {
		t.Errorf("HeldBy(A) after first lock expired = %d, want 1", n)
	}
}

func TestReleaseAll(t *testing.T) {
	tr, _, bus := newTestTracker(t)

	var fields []string
	bus.Subscribe(event.TypeLockReleased, func(e event.Event) {
		r := e.(event.LockReleasedEvent)
		fields = append(fields, r.Section+"."+r.Field)
	})

	tr.Acquire("Skills", "name", alice)
	tr.Acquire("Experience", "title", alice)
	tr.Acquire("Education", "school", bob)

	if n := tr.ReleaseAll("A"); n != 2 {
		t.Errorf("ReleaseAll(A) = %d, want 2", n)
	}
	if diff := cmp.Diff([]string{"Experience.title", "Skills.name"}, fields); diff != "" {
		t.Errorf("released fields mismatch (-want +got):\n%s", diff)
	}
	if _, ok := tr.Holder("Education", "school"); !ok {
		t.Error("Bob's lock should survive ReleaseAll(A)")
	}
}

func TestLiveChangesExpire(t *testing.T) {
	tr, fc, bus := newTestTracker(t)

	var expired []string
	bus.Subscribe(event.TypeLiveChangeExpired, func(e event.Event) {
		expired = append(expired, e.(event.LiveChangeExpiredEvent).ChangeID)
	})

	tr.Acquire("Skills", "name", alice)
	fc.Advance(time.Second)
	tr.Acquire("Skills", "level", bob)

	changes := tr.LiveChanges()
	if len(changes) != 2 || changes[0].Participant.ID != "B" || changes[1].Participant.ID != "A" {
		t.Fatalf("LiveChanges() = %+v, want [B A]", changes)
	}
	first := changes[1].ID

	fc.Advance(2 * time.Second)
	changes = tr.LiveChanges()
	if len(changes) != 1 || changes[0].Participant.ID != "B" {
		t.Errorf("LiveChanges() after 3s = %+v, want [B]", changes)
	}
	if diff := cmp.Diff([]string{first}, expired); diff != "" {
		t.Errorf("expired mismatch (-want +got):\n%s", diff)
	}

	fc.Advance(time.Second)
	if n := len(tr.LiveChanges()); n != 0 {
		t.Errorf("LiveChanges() after 4s = %d entries, want 0", n)
	}
	if fc.Pending() != 0 {
		t.Errorf("pending timers = %d, want 0", fc.Pending())
	}
}

func TestLiveChangeLimit(t *testing.T) {
	tr, fc, _ := newTestTracker(t)

	for i := range 8 {
		tr.Acquire("Skills", fmt.Sprintf("f%d", i), alice)
	}

	changes := tr.LiveChanges()
	if len(changes) != DefaultLiveChangeLimit {
		t.Fatalf("LiveChanges() len = %d, want %d", len(changes), DefaultLiveChangeLimit)
	}
	for i, c := range changes {
		if want := fmt.Sprintf("f%d", 7-i); c.Field != want {
			t.Errorf("LiveChanges()[%d].Field = %q, want %q", i, c.Field, want)
		}
	}
	if fc.Pending() != DefaultLiveChangeLimit {
		t.Errorf("pending timers = %d, want %d (dropped changes cancel their timers)", fc.Pending(), DefaultLiveChangeLimit)
	}
}

func TestOptions(t *testing.T) {
	tr, fc, _ := newTestTracker(t,
		WithLockTTL(time.Second),
		WithLiveChangeTTL(500*time.Millisecond),
		WithLiveChangeLimit(2),
	)

	for i := range 3 {
		tr.Acquire("Skills", fmt.Sprint(i), alice)
	}
	if n := len(tr.LiveChanges()); n != 2 {
		t.Errorf("LiveChanges() = %d, want 2", n)
	}
	if tr.LockTTL() != time.Second {
		t.Errorf("LockTTL() = %v, want 1s", tr.LockTTL())
	}

	fc.Advance(500 * time.Millisecond)
	if n := len(tr.LiveChanges()); n != 0 {
		t.Errorf("LiveChanges() after TTL = %d, want 0", n)
	}
	if !tr.IsHeldByOther("Skills", "0", "B") {
		t.Error("lock should still be held at 500ms")
	}
	fc.Advance(500 * time.Millisecond)
	if tr.IsHeldByOther("Skills", "0", "B") {
		t.Error("lock should expire at 1s")
	}
}

func TestPruneAndClear(t *testing.T) {
	tr, fc, _ := newTestTracker(t)

	tr.Acquire("Skills", "name", alice)
	fc.Advance(8 * time.Second)
	tr.Acquire("Skills", "level", bob)
	fc.Advance(2 * time.Second)

	if n := tr.Prune(); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if n := tr.Prune(); n != 0 {
		t.Errorf("second Prune() = %d, want 0", n)
	}
	if len(tr.Locks()) != 1 {
		t.Errorf("Locks() after Prune = %d, want 1", len(tr.Locks()))
	}

	tr.Acquire("Skills", "name", alice)
	tr.Clear()
	if len(tr.Locks()) != 0 || len(tr.LiveChanges()) != 0 {
		t.Error("Clear() should remove all locks and live changes")
	}
	if fc.Pending() != 0 {
		t.Errorf("pending timers after Clear = %d, want 0", fc.Pending())
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := range 20 {
		p := session.Participant{ID: fmt.Sprint(i), Name: fmt.Sprint(i)}
		wg.Go(func() {
			for j := range 10 {
				field := fmt.Sprint(j)
				tr.Acquire("Skills", field, p)
				tr.IsHeldByOther("Skills", field, p.ID)
				tr.Release("Skills", field, p.ID)
			}
		})
	}
	wg.Wait()

	if n := len(tr.LiveChanges()); n > DefaultLiveChangeLimit {
		t.Errorf("LiveChanges() = %d, exceeds limit", n)
	}
	tr.Clear()
}
