package comments

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Iron-Ham/cvcollab/internal/activity"
	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/event"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

var alice = session.Participant{ID: "u1", Name: "Alice", Color: "#3B82F6"}

func newTestStore(t *testing.T) (*Store, *clock.Fake, *activity.Log) {
	t.Helper()
	fc := clock.NewFake(time.UnixMilli(1_700_000_000_000))
	log := activity.NewLog(activity.WithClock(fc))
	return NewStore(WithClock(fc), WithRecorder(log)), fc, log
}

func TestAdd(t *testing.T) {
	s, fc, log := newTestStore(t)

	c := s.Add("Skills", "Add Go", alice)

	want := Comment{
		ID:        1_700_000_000_000,
		Author:    alice,
		Text:      "Add Go",
		Timestamp: fc.Now(),
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("Add() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Comment{want}, s.Thread("Skills")); diff != "" {
		t.Errorf("Thread() mismatch (-want +got):\n%s", diff)
	}
	if got := log.List(); len(got) != 1 || got[0].String() != "Alice commented on Skills" {
		t.Errorf("activity = %v", got)
	}
}

func TestAddIDsStrictlyIncrease(t *testing.T) {
	s, fc, _ := newTestStore(t)

	a := s.Add("Skills", "one", alice)
	b := s.Add("Skills", "two", alice)
	c := s.Add("Experience", "three", alice)
	fc.Advance(time.Second)
	d := s.Add("Skills", "four", alice)

	if !(a.ID < b.ID && b.ID < c.ID && c.ID < d.ID) {
		t.Errorf("IDs not strictly increasing: %d %d %d %d", a.ID, b.ID, c.ID, d.ID)
	}
	if d.ID != fc.Now().UnixMilli() {
		t.Errorf("ID after clock advance = %d, want %d", d.ID, fc.Now().UnixMilli())
	}
}

func TestToggleResolvedIdempotence(t *testing.T) {
	s, _, _ := newTestStore(t)

	c := s.Add("Skills", "one", alice)
	s.Add("Skills", "two", alice)

	steps := []struct {
		wantResolved   bool
		wantUnresolved int
	}{
		{wantResolved: true, wantUnresolved: 1},
		{wantResolved: false, wantUnresolved: 2},
		{wantResolved: true, wantUnresolved: 1},
		{wantResolved: false, wantUnresolved: 2},
	}
	for i, step := range steps {
		if !s.ToggleResolved("Skills", c.ID) {
			t.Fatalf("step %d: ToggleResolved() = false", i)
		}
		if got := s.Thread("Skills")[0].Resolved; got != step.wantResolved {
			t.Errorf("step %d: Resolved = %v, want %v", i, got, step.wantResolved)
		}
		if got := s.UnresolvedCount("Skills"); got != step.wantUnresolved {
			t.Errorf("step %d: UnresolvedCount() = %d, want %d", i, got, step.wantUnresolved)
		}
	}
}

func TestToggleUnknownComment(t *testing.T) {
	s, _, _ := newTestStore(t)
	c := s.Add("Skills", "one", alice)

	tests := []struct {
		name    string
		section string
		id      int64
	}{
		{name: "unknown id", section: "Skills", id: c.ID + 1},
		{name: "wrong section", section: "Education", id: c.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s.ToggleResolved(tt.section, tt.id) {
				t.Error("ToggleResolved() = true, want false")
			}
			if s.UnresolvedCount("Skills") != 1 {
				t.Error("unknown toggle changed state")
			}
		})
	}
}

func TestEventsAndSections(t *testing.T) {
	bus := event.NewBus()
	s := NewStore(WithBus(bus))

	var types []string
	bus.SubscribeAll(func(e event.Event) { types = append(types, e.EventType()) })

	c := s.Add("Skills", "one", alice)
	s.Add("Education", "two", alice)
	s.ToggleResolved("Skills", c.ID)

	want := []string{event.TypeCommentAdded, event.TypeCommentAdded, event.TypeCommentToggled}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("event types mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Education", "Skills"}, s.Sections()); diff != "" {
		t.Errorf("Sections() mismatch (-want +got):\n%s", diff)
	}

	s.Clear()
	if len(s.Sections()) != 0 || s.UnresolvedCount("Skills") != 0 {
		t.Error("Clear() should remove all threads")
	}
}
