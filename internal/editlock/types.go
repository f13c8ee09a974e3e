package editlock

import (
	"time"

	"github.com/Iron-Ham/cvcollab/internal/session"
)

// Default timing and sizing for a Tracker.
const (
	// DefaultLockTTL is how long a lock keeps other participants off a field.
	DefaultLockTTL = 10 * time.Second
	// DefaultLiveChangeTTL is how long a "typing" indicator stays visible.
	DefaultLiveChangeTTL = 3 * time.Second
	// DefaultLiveChangeLimit is the number of live changes retained.
	DefaultLiveChangeLimit = 5
)

// Lock records who last focused a field and when.
type Lock struct {
	Section    string              `json:"section" yaml:"section"`
	Field      string              `json:"field" yaml:"field"`
	Holder     session.Participant `json:"holder" yaml:"holder"`
	AcquiredAt time.Time           `json:"acquired_at" yaml:"acquired_at"`
}

// Expired reports whether the lock no longer blocks other participants at now.
func (l Lock) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(l.AcquiredAt) >= ttl
}

// LiveChange is a short-lived "someone is typing here" indicator.
type LiveChange struct {
	ID          string              `json:"id" yaml:"id"`
	Participant session.Participant `json:"participant" yaml:"participant"`
	Section     string              `json:"section" yaml:"section"`
	Field       string              `json:"field" yaml:"field"`
	Timestamp   time.Time           `json:"timestamp" yaml:"timestamp"`
}

// fieldKey identifies a lockable field.
type fieldKey struct {
	section string
	field   string
}
