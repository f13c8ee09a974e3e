package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/cvcollab/internal/activity"
	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/collab"
	"github.com/Iron-Ham/cvcollab/internal/errors"
	"github.com/Iron-Ham/cvcollab/internal/event"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

var (
	owner = session.Participant{ID: "me", Name: "Alice", Color: session.OwnerColor, IsOwner: true}
	sarah = session.Participant{ID: "sim_1", Name: "Sarah Wilson", Color: session.JoinerColor}
)

func newTestContext(t *testing.T, start bool) *collab.Context {
	t.Helper()
	cc, err := collab.New(collab.Config{Bus: event.NewBus(), Clock: clock.NewFake(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))})
	if err != nil {
		t.Fatalf("collab.New() error = %v", err)
	}
	if start {
		if _, err := cc.StartSession(owner); err != nil {
			t.Fatalf("StartSession() error = %v", err)
		}
		if err := cc.AddParticipant(sarah); err != nil {
			t.Fatalf("AddParticipant() error = %v", err)
		}
	}
	return cc
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

type fakeSimulator struct {
	calls int
	ok    bool
}

func (f *fakeSimulator) SimulateEdit() (activity.Entry, bool) {
	f.calls++
	if !f.ok {
		return activity.Entry{}, false
	}
	return activity.Entry{ActorName: "Alice", Action: activity.ActionEdited, Target: "Skills - Name"}, true
}

func TestNewDefaults(t *testing.T) {
	m := New(newTestContext(t, false))

	if m.refresh != DefaultRefreshInterval || m.activityLines != DefaultActivityLines {
		t.Errorf("defaults = %v/%d", m.refresh, m.activityLines)
	}
	if m.Section() != "Personal Info" {
		t.Errorf("Section() = %q, want Personal Info", m.Section())
	}

	m = New(newTestContext(t, false), WithRefreshInterval(0), WithActivityLines(-1), WithSections(nil))
	if m.refresh != DefaultRefreshInterval || m.activityLines != DefaultActivityLines || len(m.sections) == 0 {
		t.Error("invalid options should be ignored")
	}
}

func TestViewWithoutSession(t *testing.T) {
	m := New(newTestContext(t, false))
	if view := m.View(); !strings.Contains(view, "No active session.") {
		t.Errorf("View() = %q", view)
	}

	m, _ = press(t, m, runes("c"))
	if m.Commenting() || m.errorMessage != "No active session" {
		t.Errorf("comment without session: commenting=%v error=%q", m.Commenting(), m.errorMessage)
	}
}

func TestSectionNavigation(t *testing.T) {
	m := New(newTestContext(t, true), WithSections([]string{"A", "B", "C"}))

	tests := []struct {
		key  tea.Msg
		want string
	}{
		{runes("j"), "B"},
		{tea.KeyMsg{Type: tea.KeyTab}, "C"},
		{runes("j"), "A"},
		{runes("k"), "C"},
		{tea.KeyMsg{Type: tea.KeyUp}, "B"},
	}
	for _, tt := range tests {
		m, _ = press(t, m, tt.key)
		if m.Section() != tt.want {
			t.Fatalf("after %v Section() = %q, want %q", tt.key, m.Section(), tt.want)
		}
	}
}

func TestSimulateKey(t *testing.T) {
	sim := &fakeSimulator{ok: true}
	m := New(newTestContext(t, true), WithSimulator(sim))

	m, _ = press(t, m, runes("e"))
	if sim.calls != 1 || m.infoMessage != "Alice edited Skills - Name" {
		t.Errorf("calls = %d, info = %q", sim.calls, m.infoMessage)
	}

	sim.ok = false
	m, _ = press(t, m, runes("e"))
	if m.errorMessage == "" {
		t.Error("failed simulation should set an error")
	}

	m = New(newTestContext(t, true))
	m, _ = press(t, m, runes("e"))
	if m.errorMessage != "Simulation is not enabled" {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
}

func TestCommentFlow(t *testing.T) {
	cc := newTestContext(t, true)
	m := New(cc, WithSections([]string{"Skills"}))

	m, _ = press(t, m, runes("c"))
	if !m.Commenting() {
		t.Fatal("c should open the comment input")
	}
	m, _ = press(t, m, runes("c"), runes("h"), runes("e"), runes("c"), runes("k"))
	if m.input.Value() != "check" {
		t.Fatalf("input = %q, want typed keys captured by the input", m.input.Value())
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.Commenting() {
		t.Error("enter should close the input")
	}
	thread := cc.Thread("Skills")
	if len(thread) != 1 || thread[0].Text != "check" || thread[0].Author.ID != owner.ID {
		t.Fatalf("Thread() = %+v", thread)
	}
	if !strings.Contains(m.View(), "check") {
		t.Error("View() should list the new comment")
	}

	t.Run("escape discards", func(t *testing.T) {
		m, _ := press(t, m, runes("c"), runes("x"), tea.KeyMsg{Type: tea.KeyEsc})
		if m.Commenting() || len(cc.Thread("Skills")) != 1 {
			t.Error("esc should cancel without posting")
		}
	})

	t.Run("blank comment rejected", func(t *testing.T) {
		m, _ := press(t, m, runes("c"), runes(" "), tea.KeyMsg{Type: tea.KeyEnter})
		want := "validation error [text]: comment text is required"
		if m.errorMessage != want || len(cc.Thread("Skills")) != 1 {
			t.Errorf("blank comment: error=%q thread=%d, want %q", m.errorMessage, len(cc.Thread("Skills")), want)
		}
		if m.errorSeverity != errors.SeverityWarning {
			t.Errorf("errorSeverity = %v, want %v", m.errorSeverity, errors.SeverityWarning)
		}
	})
}

func TestSetError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantMessage  string
		wantSeverity errors.Severity
	}{
		{
			name:         "user facing warning",
			err:          errors.NewSessionError("cannot propose edit", errors.ErrSessionInactive).WithSeverity(errors.SeverityWarning),
			wantMessage:  "session error: cannot propose edit: session is not active",
			wantSeverity: errors.SeverityWarning,
		},
		{
			name:         "user facing error",
			err:          errors.NewSessionError("cannot start session", errors.ErrSessionActive),
			wantMessage:  "session error: cannot start session: session already active",
			wantSeverity: errors.SeverityError,
		},
		{
			name:         "internal error hidden",
			err:          errors.Wrap(errors.New("disk I/O error"), "cvstore: put cv"),
			wantMessage:  genericErrorMessage,
			wantSeverity: errors.SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(newTestContext(t, true))
			m.setError(tt.err)
			if m.errorMessage != tt.wantMessage {
				t.Errorf("errorMessage = %q, want %q", m.errorMessage, tt.wantMessage)
			}
			if m.errorSeverity != tt.wantSeverity {
				t.Errorf("errorSeverity = %v, want %v", m.errorSeverity, tt.wantSeverity)
			}
			if !strings.Contains(m.View(), tt.wantMessage) {
				t.Errorf("View() missing %q", tt.wantMessage)
			}
		})
	}
}

func TestResolveLatest(t *testing.T) {
	cc := newTestContext(t, true)
	first, _ := cc.AddComment("Skills", "first", sarah)
	second, _ := cc.AddComment("Skills", "second", sarah)
	m := New(cc, WithSections([]string{"Skills"}))

	m, _ = press(t, m, runes("r"))
	thread := cc.Thread("Skills")
	if thread[0].ID != first.ID || thread[0].Resolved || !thread[1].Resolved || thread[1].ID != second.ID {
		t.Errorf("after r: %+v", thread)
	}

	m, _ = press(t, m, runes("r"), runes("r"))
	if cc.UnresolvedCount("Skills") != 0 || m.errorMessage == "" {
		t.Errorf("UnresolvedCount = %d, error = %q", cc.UnresolvedCount("Skills"), m.errorMessage)
	}
}

func TestViewShowsCollaboration(t *testing.T) {
	cc := newTestContext(t, true)
	if _, err := cc.Acquire("Skills", "Name", sarah); err != nil {
		t.Fatal(err)
	}
	if _, err := cc.Acquire("Skills", "Title", owner); err != nil {
		t.Fatal(err)
	}
	_, _ = cc.AddComment("Skills", "needs work", sarah)
	m := New(cc, WithSections([]string{"Skills"}))

	view := m.View()
	s, _ := cc.Session()
	for _, want := range []string{
		s.Code,
		"Invite http://localhost:3000/join/" + s.Code,
		"Just now",
		"Alice (you, owner)",
		"Sarah Wilson",
		"is editing Name",
		"typing in Skills.Name",
		"needs work",
		"commented on",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "is editing Title") {
		t.Error("own locks should not produce an editing banner")
	}
}

func TestThreadShowsCommentAge(t *testing.T) {
	cc := newTestContext(t, true)
	_, _ = cc.AddComment("Skills", "needs work", sarah)
	m := New(cc, WithSections([]string{"Skills"}))

	cc.Clock().(*clock.Fake).Advance(5*time.Minute + 30*time.Second)
	if view := m.View(); !strings.Contains(view, "5m ago") {
		t.Errorf("View() missing comment age:\n%s", view)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		age  time.Duration
		want string
	}{
		{"now", 0, "Just now"},
		{"seconds", 59 * time.Second, "Just now"},
		{"clock skew", -time.Minute, "Just now"},
		{"one minute", time.Minute, "1m ago"},
		{"minutes", 59*time.Minute + 59*time.Second, "59m ago"},
		{"one hour", time.Hour, "1h ago"},
		{"hours", 23*time.Hour + 59*time.Minute, "23h ago"},
		{"a day", 24 * time.Hour, "Mar 9, 2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relativeTime(now, now.Add(-tt.age)); got != tt.want {
				t.Errorf("relativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActivityLines(t *testing.T) {
	cc := newTestContext(t, true)
	for i := range 5 {
		cc.RecordActivity(sarah, activity.ActionViewed, strings.Repeat("x", i+1)+"-section")
	}
	m := New(cc, WithActivityLines(2))

	view := m.View()
	if !strings.Contains(view, "xxxxx-section") || strings.Count(view, "-section") != 2 {
		t.Errorf("View() should show only the 2 newest entries:\n%s", view)
	}
}

func TestQuitAndTick(t *testing.T) {
	m := New(newTestContext(t, true), WithRefreshInterval(time.Millisecond))

	if m.Init() == nil {
		t.Error("Init() should schedule a tick")
	}
	_, cmd := press(t, m, tickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick should reschedule itself")
	}

	_, cmd = press(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}

	m, _ = press(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d", m.width, m.height)
	}
}

func TestHelpToggle(t *testing.T) {
	m := New(newTestContext(t, true))
	m, _ = press(t, m, runes("?"))
	if !m.help.ShowAll {
		t.Error("? should expand help")
	}
	if !strings.Contains(m.View(), "prev section") {
		t.Error("full help should list navigation keys")
	}
}

func TestConfigReloaded(t *testing.T) {
	m := New(newTestContext(t, true))
	m, _ = press(t, m, ConfigReloadedMsg{RefreshInterval: time.Second, ActivityLines: 3})
	if m.refresh != time.Second || m.activityLines != 3 || m.infoMessage != "Configuration reloaded" {
		t.Errorf("after reload: refresh=%v lines=%d info=%q", m.refresh, m.activityLines, m.infoMessage)
	}

	m, _ = press(t, m, ConfigReloadedMsg{})
	if m.refresh != time.Second || m.activityLines != 3 {
		t.Error("zero fields should keep current settings")
	}
}

func TestEventMsgRedrawsWithoutTick(t *testing.T) {
	cc := newTestContext(t, true)
	m := New(cc, WithSections([]string{"Skills"}))

	if _, err := cc.AddComment("Skills", "needs numbers", sarah); err != nil {
		t.Fatal(err)
	}
	m, cmd := press(t, m, EventMsg{Type: event.TypeCommentAdded})
	if cmd != nil {
		t.Error("EventMsg should not schedule another tick")
	}
	if !strings.Contains(m.View(), "needs numbers") {
		t.Error("View() after EventMsg should show the new comment")
	}
}
