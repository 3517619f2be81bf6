package bus

import "go.uber.org/zap"

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for delivery failures and eviction
// diagnostics. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

type topicConfig struct {
	maxLogSize int
}

// TopicOption configures a topic at creation time. Options passed to
// Bus.Topic for a name that already exists are ignored.
type TopicOption func(*topicConfig)

// WithMaxLogSize bounds the topic log to the given number of messages;
// older messages are evicted on every send that overflows it. Unbounded
// (-1) is the default. Zero is legal and keeps the log permanently empty.
func WithMaxLogSize(n int) TopicOption {
	return func(c *topicConfig) {
		c.maxLogSize = n
	}
}

type subscribeConfig struct {
	id      int64
	backlog Backlog
	active  bool
}

// SubscribeOption configures a single Subscribe call.
type SubscribeOption func(*subscribeConfig)

// WithSubscriptionID pins the subscription id instead of auto-assigning
// one. Subscribing with an id already present on the topic updates that
// subscription in place.
func WithSubscriptionID(id int64) SubscribeOption {
	return func(c *subscribeConfig) {
		c.id = id
	}
}

// WithBacklog selects the backlog replay strategy. BacklogFull is the
// default.
func WithBacklog(b Backlog) SubscribeOption {
	return func(c *subscribeConfig) {
		c.backlog = b
	}
}

// WithStartInactive leaves the subscription inactive: it receives no new
// messages until reactivated by a later Subscribe with the same id. A
// brand-new subscription still gets its backlog replay; on the update
// path an inactive re-subscribe skips replay and leaves the cursor where
// it was.
func WithStartInactive() SubscribeOption {
	return func(c *subscribeConfig) {
		c.active = false
	}
}
