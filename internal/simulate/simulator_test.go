package simulate

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/Iron-Ham/cvcollab/internal/activity"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedSource replays fixed draws.
type scriptedSource struct {
	floats []float64
	ints   []int
}

func (s *scriptedSource) Float64() float64 {
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedSource) IntN(n int) int {
	v := s.ints[0] % n
	s.ints = s.ints[1:]
	return v
}

type fakeTarget struct {
	mu      sync.Mutex
	roster  []session.Participant
	self    *session.Participant
	entries []activity.Entry
}

func (f *fakeTarget) Roster() []session.Participant { return f.roster }

func (f *fakeTarget) Self() (session.Participant, bool) {
	if f.self == nil {
		return session.Participant{}, false
	}
	return *f.self, true
}

func (f *fakeTarget) RecordActivity(p session.Participant, action, target string) activity.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := activity.Entry{ActorName: p.Name, ActorColor: p.Color, Action: action, Target: target}
	f.entries = append(f.entries, e)
	return e
}

func (f *fakeTarget) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

var (
	alice = session.Participant{ID: "u1", Name: "Alice"}
	bob   = session.Participant{ID: "u2", Name: "Bob"}
)

func TestStep(t *testing.T) {
	tests := []struct {
		name       string
		roster     []session.Participant
		src        *scriptedSource
		wantOK     bool
		wantString string
	}{
		{
			name:   "single participant never draws",
			roster: []session.Participant{alice},
			src:    &scriptedSource{},
		},
		{
			name:   "draw at threshold records nothing",
			roster: []session.Participant{alice, bob},
			src:    &scriptedSource{floats: []float64{0.7}},
		},
		{
			name:       "draw above threshold",
			roster:     []session.Participant{alice, bob},
			src:        &scriptedSource{floats: []float64{0.71}, ints: []int{1, 2, 0}},
			wantOK:     true,
			wantString: "Bob viewed Experience",
		},
		{
			name:       "commented on",
			roster:     []session.Participant{alice, bob},
			src:        &scriptedSource{floats: []float64{0.99}, ints: []int{0, 1, 2}},
			wantOK:     true,
			wantString: "Alice commented on Skills",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &fakeTarget{roster: tt.roster}
			s := New(target, WithSource(tt.src))

			entry, ok := s.Step()
			if ok != tt.wantOK {
				t.Fatalf("Step() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && entry.String() != tt.wantString {
				t.Errorf("Step() = %q, want %q", entry.String(), tt.wantString)
			}
		})
	}
}

func TestSimulateEdit(t *testing.T) {
	target := &fakeTarget{roster: []session.Participant{alice}}
	s := New(target, WithSource(&scriptedSource{ints: []int{3, 1}}))

	if _, ok := s.SimulateEdit(); ok {
		t.Error("SimulateEdit() without a local participant should do nothing")
	}

	target.self = &alice
	entry, ok := s.SimulateEdit()
	if !ok {
		t.Fatal("SimulateEdit() ok = false")
	}
	if entry.String() != "Alice edited Education - Title" {
		t.Errorf("SimulateEdit() = %q", entry.String())
	}
}

func TestStartStop(t *testing.T) {
	target := &fakeTarget{roster: []session.Participant{alice, bob}}
	s := New(target, WithInterval(time.Millisecond), WithThreshold(-1))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}
	if !s.Running() {
		t.Error("Running() = false after Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for target.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if target.count() < 3 {
		t.Errorf("recorded %d entries, want at least 3", target.count())
	}

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Error("Running() = true after Stop")
	}
}

func TestStopOnContextCancel(t *testing.T) {
	target := &fakeTarget{}
	s := New(target, WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	s.Stop()
}
