package merge

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Iron-Ham/cvcollab/internal/activity"
	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/errors"
	"github.com/Iron-Ham/cvcollab/internal/event"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

var (
	u1    = session.Participant{ID: "u1", Name: "Alice", Color: "#3B82F6"}
	u2    = session.Participant{ID: "u2", Name: "Bob", Color: "#10B981"}
	epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
)

func TestProposeApplyAfterLatency(t *testing.T) {
	fc := clock.NewFake(epoch)
	log := activity.NewLog(activity.WithClock(fc))
	m := NewMerger(WithClock(fc), WithRecorder(log))

	f := m.Propose("Experience", "title", "Engineer", u1)

	if !m.IsPending("Experience", "title") {
		t.Error("IsPending() = false right after Propose")
	}
	if _, ok := m.Value("Experience", "title"); ok {
		t.Error("value visible before delivery")
	}

	fc.Advance(DefaultLatency - time.Millisecond)
	if f.Resolved() {
		t.Fatal("future resolved before latency elapsed")
	}

	fc.Advance(time.Millisecond)
	if !f.Resolved() || f.Err() != nil {
		t.Fatalf("future = resolved %v err %v, want resolved nil", f.Resolved(), f.Err())
	}
	if v, _ := m.Value("Experience", "title"); v != "Engineer" {
		t.Errorf("Value() = %v, want Engineer", v)
	}
	if m.IsPending("Experience", "title") || len(m.Pending()) != 0 {
		t.Errorf("Pending() = %v after delivery, want none", m.Pending())
	}
	if got := log.List(); len(got) != 1 || got[0].String() != "Alice updated Experience - title" {
		t.Errorf("activity = %v", got)
	}
}

// Two proposals for one field race; the delivery that completes last wins,
// even though it was proposed first.
func TestMergeRaceLastDeliveryWins(t *testing.T) {
	fc := clock.NewFake(epoch)
	transport := NewDelayTransport(
		WithTransportClock(fc),
		WithLatencyFunc(func(c Change) time.Duration {
			if c.Value == "A" {
				return 500 * time.Millisecond
			}
			return 100 * time.Millisecond
		}),
	)
	m := NewMerger(WithClock(fc), WithTransport(transport))

	fa := m.Propose("Exp", "title", "A", u1)
	fc.Advance(10 * time.Millisecond)
	fb := m.Propose("Exp", "title", "B", u2)

	fc.Advance(100 * time.Millisecond)
	if v, _ := m.Value("Exp", "title"); v != "B" {
		t.Errorf("Value() after B delivered = %v, want B", v)
	}
	if !fb.Resolved() || fa.Resolved() {
		t.Errorf("resolved: A=%v B=%v, want A=false B=true", fa.Resolved(), fb.Resolved())
	}

	fc.Advance(time.Second)
	if v, _ := m.Value("Exp", "title"); v != "A" {
		t.Errorf("final Value() = %v, want A (last delivery)", v)
	}
}

func TestPendingMarkerBelongsToLatestProposal(t *testing.T) {
	fc := clock.NewFake(epoch)
	transport := NewDelayTransport(
		WithTransportClock(fc),
		WithLatencyFunc(func(c Change) time.Duration {
			if c.Value == "first" {
				return 100 * time.Millisecond
			}
			return 500 * time.Millisecond
		}),
	)
	m := NewMerger(WithClock(fc), WithTransport(transport))

	m.Propose("Skills", "name", "first", u1)
	m.Propose("Skills", "name", "second", u2)

	fc.Advance(100 * time.Millisecond)
	if !m.IsPending("Skills", "name") {
		t.Error("second proposal's marker cleared by first delivery")
	}
	fc.Advance(400 * time.Millisecond)
	if m.IsPending("Skills", "name") {
		t.Error("marker still set after every delivery")
	}
}

func TestResetCancelsInflight(t *testing.T) {
	fc := clock.NewFake(epoch)
	bus := event.NewBus()
	m := NewMerger(WithClock(fc), WithBus(bus))

	var canceled []string
	bus.Subscribe(event.TypeMergeCanceled, func(e event.Event) {
		canceled = append(canceled, e.(event.MergeEvent).Field)
	})

	m.Propose("Skills", "level", "old", u1)
	fc.Advance(DefaultLatency)
	f := m.Propose("Skills", "name", "Go", u1)

	m.Reset()
	if !errors.Is(f.Err(), errors.ErrCanceled) {
		t.Errorf("future err = %v, want ErrCanceled", f.Err())
	}
	if diff := cmp.Diff([]string{"name"}, canceled); diff != "" {
		t.Errorf("canceled events mismatch (-want +got):\n%s", diff)
	}
	if len(m.Snapshot()) != 0 || len(m.Pending()) != 0 {
		t.Error("Reset() should clear snapshot and pending")
	}

	// The old delivery still fires but must not write into the fresh state.
	fc.Advance(DefaultLatency)
	if _, ok := m.Value("Skills", "name"); ok {
		t.Error("stale delivery wrote after Reset")
	}
}

type failingTransport struct{ err error }

func (t failingTransport) Send(Change) *Future {
	f := NewFuture()
	f.Resolve(t.err)
	return f
}

func TestTransportFailure(t *testing.T) {
	sendErr := errors.New("link down")
	log := activity.NewLog()
	m := NewMerger(WithTransport(failingTransport{err: sendErr}), WithRecorder(log))

	f := m.Propose("Skills", "name", "Go", u1)

	if !errors.Is(f.Err(), sendErr) {
		t.Errorf("future err = %v, want %v", f.Err(), sendErr)
	}
	if m.IsPending("Skills", "name") {
		t.Error("failed change left a pending marker")
	}
	if _, ok := m.Value("Skills", "name"); ok || log.Len() != 0 {
		t.Error("failed change should not write or record activity")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	fc := clock.NewFake(epoch)
	m := NewMerger(WithClock(fc))
	m.Propose("generalInfo", "name", "Alice", u1)
	fc.Advance(DefaultLatency)

	snap := m.Snapshot()
	snap["generalInfo"]["name"] = "Mallory"
	snap["skills"] = map[string]any{"x": 1}

	want := Snapshot{"generalInfo": {"name": "Alice"}}
	if diff := cmp.Diff(want, m.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestFuture(t *testing.T) {
	f := NewFuture()
	calls := 0
	f.onResolve(func(error) { calls++ })

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() on pending future = %v, want DeadlineExceeded", err)
	}

	if !f.Resolve(nil) {
		t.Error("first Resolve() = false")
	}
	if f.Resolve(errors.ErrCanceled) {
		t.Error("second Resolve() = true")
	}
	if err := f.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
	f.onResolve(func(error) { calls++ })
	if calls != 2 {
		t.Errorf("callbacks ran %d times, want 2", calls)
	}
	select {
	case <-f.Done():
	default:
		t.Error("Done() not closed after Resolve")
	}
}
