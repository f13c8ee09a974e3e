// Package tui renders a live dashboard of a collaboration session: who is
// connected, which fields are being edited, open comment threads and the
// activity feed. The model reads its collab.Context on every render. An
// EventMsg redraws as soon as something changes; the tick catches edit locks
// timing out, which publishes nothing.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/cvcollab/internal/activity"
	"github.com/Iron-Ham/cvcollab/internal/collab"
	"github.com/Iron-Ham/cvcollab/internal/errors"
	"github.com/Iron-Ham/cvcollab/internal/simulate"
)

// Defaults for the dashboard.
const (
	DefaultRefreshInterval = 250 * time.Millisecond
	DefaultActivityLines   = 10
)

// Simulator is the subset of *simulate.Simulator the dashboard drives.
type Simulator interface {
	SimulateEdit() (activity.Entry, bool)
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	cc  *collab.Context
	sim Simulator

	keys  keyMap
	help  help.Model
	input textinput.Model

	sections      []string
	selected      int
	commenting    bool
	refresh       time.Duration
	activityLines int

	width  int
	height int

	infoMessage   string
	errorMessage  string
	errorSeverity errors.Severity
}

// Option configures a Model.
type Option func(*Model)

// WithSimulator enables the "simulate edit" key.
func WithSimulator(s Simulator) Option {
	return func(m *Model) { m.sim = s }
}

// WithRefreshInterval sets how often the dashboard re-reads the context.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.refresh = d
		}
	}
}

// WithActivityLines sets how many feed entries are shown.
func WithActivityLines(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.activityLines = n
		}
	}
}

// WithSections sets the CV sections listed in the sidebar.
func WithSections(sections []string) Option {
	return func(m *Model) {
		if len(sections) > 0 {
			m.sections = sections
		}
	}
}

// New creates a dashboard for cc.
func New(cc *collab.Context, opts ...Option) Model {
	input := textinput.New()
	input.Placeholder = "Add a comment..."
	input.CharLimit = 500
	input.Prompt = "> "

	m := Model{
		cc:            cc,
		keys:          defaultKeyMap(),
		help:          help.New(),
		input:         input,
		sections:      simulate.Sections,
		refresh:       DefaultRefreshInterval,
		activityLines: DefaultActivityLines,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

type tickMsg time.Time

// ConfigReloadedMsg applies new dashboard settings while running. Zero
// fields keep the current value.
type ConfigReloadedMsg struct {
	RefreshInterval time.Duration
	ActivityLines   int
}

// EventMsg reports that the collaboration state changed.
type EventMsg struct {
	Type string
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the refresh loop.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		// State is read fresh in View; the tick only forces a redraw.
		return m, m.tick()

	case EventMsg:
		// Redraw only; the tick loop is already running.
		return m, nil

	case ConfigReloadedMsg:
		WithRefreshInterval(msg.RefreshInterval)(&m)
		WithActivityLines(msg.ActivityLines)(&m)
		m.infoMessage = "Configuration reloaded"
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.commenting {
			return m.handleInputKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.errorMessage = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.selected = (m.selected - 1 + len(m.sections)) % len(m.sections)

	case key.Matches(msg, m.keys.Down):
		m.selected = (m.selected + 1) % len(m.sections)

	case key.Matches(msg, m.keys.Simulate):
		if m.sim == nil {
			m.warn("Simulation is not enabled")
			break
		}
		if entry, ok := m.sim.SimulateEdit(); ok {
			m.infoMessage = entry.String()
		} else {
			m.warn("No active session")
		}

	case key.Matches(msg, m.keys.Comment):
		if !m.cc.Active() {
			m.warn("No active session")
			break
		}
		m.commenting = true
		m.input.Reset()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Resolve):
		m.resolveLatest()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.commenting = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		m.commenting = false
		m.input.Blur()
		m.postComment(m.input.Value())
		m.input.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) postComment(text string) {
	self, ok := m.cc.Self()
	if !ok {
		m.warn("No active session")
		return
	}
	section := m.Section()
	if _, err := m.cc.AddComment(section, text, self); err != nil {
		m.setError(err)
		return
	}
	m.infoMessage = fmt.Sprintf("Comment added to %s", section)
}

// resolveLatest toggles the newest unresolved comment in the selected section.
func (m *Model) resolveLatest() {
	section := m.Section()
	thread := m.cc.Thread(section)
	for i := len(thread) - 1; i >= 0; i-- {
		if !thread[i].Resolved {
			m.cc.ToggleResolved(section, thread[i].ID)
			m.infoMessage = fmt.Sprintf("Resolved comment by %s", thread[i].Author.Name)
			return
		}
	}
	m.warn(fmt.Sprintf("No open comments on %s", section))
}

// genericErrorMessage replaces errors not marked safe to show.
const genericErrorMessage = "Something went wrong; see the log for details"

// setError shows err in the status line. Only user-facing errors are shown
// verbatim.
func (m *Model) setError(err error) {
	m.errorMessage = genericErrorMessage
	if errors.IsUserFacing(err) {
		m.errorMessage = err.Error()
	}
	m.errorSeverity = errors.GetSeverity(err)
}

func (m *Model) warn(msg string) {
	m.errorMessage = msg
	m.errorSeverity = errors.SeverityWarning
}

// Section returns the selected section.
func (m Model) Section() string {
	return m.sections[m.selected]
}

// Commenting reports whether the comment input is open.
func (m Model) Commenting() bool {
	return m.commenting
}
