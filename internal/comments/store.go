// Package comments stores per-section comment threads on a CV.
package comments

import (
	"sort"
	"sync"
	"time"

	"github.com/Iron-Ham/cvcollab/internal/activity"
	"github.com/Iron-Ham/cvcollab/internal/clock"
	"github.com/Iron-Ham/cvcollab/internal/event"
	"github.com/Iron-Ham/cvcollab/internal/logging"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

// Comment is a single remark on a CV section.
// ID is the creation time in Unix milliseconds, bumped when needed so that
// IDs are strictly increasing within a Store.
type Comment struct {
	ID        int64               `json:"id" yaml:"id"`
	Author    session.Participant `json:"author" yaml:"author"`
	Text      string              `json:"text" yaml:"text"`
	Timestamp time.Time           `json:"timestamp" yaml:"timestamp"`
	Resolved  bool                `json:"resolved" yaml:"resolved"`
}

// Store holds comment threads keyed by section. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	threads map[string][]Comment
	lastID  int64

	clock    clock.Clock
	recorder activity.Recorder
	bus      *event.Bus
	logger   *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for comment timestamps and IDs.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithRecorder sets where "commented on" activity is recorded.
func WithRecorder(r activity.Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithBus sets the bus that receives comment events.
func WithBus(b *event.Bus) Option {
	return func(s *Store) { s.bus = b }
}

// WithLogger sets the store's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		threads: make(map[string][]Comment),
		clock:   clock.Real(),
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends an unresolved comment to section's thread.
func (s *Store) Add(section, text string, author session.Participant) Comment {
	now := s.clock.Now()

	s.mu.Lock()
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	c := Comment{ID: id, Author: author, Text: text, Timestamp: now}
	s.threads[section] = append(s.threads[section], c)
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.Record(author.Name, author.Color, activity.ActionCommented, section)
	}
	if s.bus != nil {
		s.bus.Publish(event.NewCommentAddedEvent(section, id, author.ID))
	}
	return c
}

// ToggleResolved flips the resolved flag of comment id in section and
// reports whether a comment was found. Unknown IDs are ignored.
func (s *Store) ToggleResolved(section string, id int64) bool {
	s.mu.Lock()
	thread := s.threads[section]
	idx := -1
	for i := range thread {
		if thread[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		s.logger.WithSection(section).Debug("toggle of unknown comment ignored", "comment_id", id)
		return false
	}
	thread[idx].Resolved = !thread[idx].Resolved
	resolved := thread[idx].Resolved
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(event.NewCommentToggledEvent(section, id, resolved))
	}
	return true
}

// UnresolvedCount returns the number of unresolved comments in section.
func (s *Store) UnresolvedCount(section string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.threads[section] {
		if !c.Resolved {
			n++
		}
	}
	return n
}

// Thread returns section's comments in the order they were added.
func (s *Store) Thread(section string) []Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Comment, len(s.threads[section]))
	copy(out, s.threads[section])
	return out
}

// Sections returns the sections that have at least one comment, sorted.
func (s *Store) Sections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.threads))
	for section, thread := range s.threads {
		if len(thread) > 0 {
			out = append(out, section)
		}
	}
	sort.Strings(out)
	return out
}

// Clear removes every thread.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads = make(map[string][]Comment)
}
