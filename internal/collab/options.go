package collab

import (
	"time"

	"github.com/Iron-Ham/cvcollab/internal/merge"
)

// contextConfig holds optional configuration for a Context.
type contextConfig struct {
	lockTTL         time.Duration
	liveChangeTTL   time.Duration
	liveChangeLimit int
	activityLimit   int
	mergeLatency    time.Duration
	transport       merge.Transport
	intn            func(n int) int
	inviteOrigin    string
}

// Option configures a Context.
type Option func(*contextConfig)

// WithLockTTL sets how long an edit lock blocks other participants.
// A value of 0 uses editlock.DefaultLockTTL.
func WithLockTTL(d time.Duration) Option {
	return func(c *contextConfig) { c.lockTTL = d }
}

// WithLiveChangeTTL sets how long a typing indicator stays visible.
// A value of 0 uses editlock.DefaultLiveChangeTTL.
func WithLiveChangeTTL(d time.Duration) Option {
	return func(c *contextConfig) { c.liveChangeTTL = d }
}

// WithLiveChangeLimit sets how many typing indicators are retained.
// A value of 0 uses editlock.DefaultLiveChangeLimit.
func WithLiveChangeLimit(n int) Option {
	return func(c *contextConfig) { c.liveChangeLimit = n }
}

// WithActivityLimit sets the activity feed capacity.
// A value of 0 uses activity.DefaultLimit.
func WithActivityLimit(n int) Option {
	return func(c *contextConfig) { c.activityLimit = n }
}

// WithMergeLatency sets the simulated delivery delay of the default transport.
// A value of 0 uses merge.DefaultLatency. Ignored when WithTransport is set.
func WithMergeLatency(d time.Duration) Option {
	return func(c *contextConfig) { c.mergeLatency = d }
}

// WithTransport replaces the simulated-latency transport.
func WithTransport(t merge.Transport) Option {
	return func(c *contextConfig) { c.transport = t }
}

// WithRandom sets the random source for session codes.
func WithRandom(intn func(n int) int) Option {
	return func(c *contextConfig) { c.intn = intn }
}

// WithInviteOrigin sets the base URL of invite links.
// An empty origin uses session.DefaultInviteOrigin.
func WithInviteOrigin(origin string) Option {
	return func(c *contextConfig) { c.inviteOrigin = origin }
}
