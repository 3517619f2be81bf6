// Package bus is an in-process publish/subscribe message bus. Each topic
// keeps an append-only, optionally bounded log of messages; subscribing
// replays retained messages per a backlog strategy and then receives new
// messages synchronously as they are sent.
package bus

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Bus maps topic names to topics. Topics are created on first use and
// never destroyed.
type Bus struct {
	logger *zap.Logger
	stats  busStats

	mu     sync.RWMutex
	topics map[string]*Topic
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		logger: zap.NewNop(),
		topics: make(map[string]*Topic),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Topic returns the topic with the given name, creating it if needed.
// Options only apply on creation; subsequent calls with the same name
// return the existing topic untouched.
func (b *Bus) Topic(name string, opts ...TopicOption) *Topic {
	b.mu.RLock()
	t, ok := b.topics[name]
	b.mu.RUnlock()
	if ok {
		return t
	}

	cfg := topicConfig{maxLogSize: Unbounded}
	for _, opt := range opts {
		opt(&cfg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.topics[name]; ok {
		return t
	}
	t = &Topic{
		name:       name,
		logger:     b.logger,
		stats:      &b.stats,
		maxLogSize: cfg.maxLogSize,
	}
	b.topics[name] = t
	return t
}

// Topics returns the names of all topics on the bus.
func (b *Bus) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.topics))
	for name := range b.topics {
		names = append(names, name)
	}
	return names
}

type busStats struct {
	published     atomic.Uint64
	delivered     atomic.Uint64
	handlerErrors atomic.Uint64
	handlerPanics atomic.Uint64
}

// Stats is a point-in-time snapshot of bus counters. Delivered counts
// successful handler invocations, backlog replays included.
type Stats struct {
	Published     uint64
	Delivered     uint64
	HandlerErrors uint64
	HandlerPanics uint64
}

// Stats returns current counters across all topics.
func (b *Bus) Stats() Stats {
	return Stats{
		Published:     b.stats.published.Load(),
		Delivered:     b.stats.delivered.Load(),
		HandlerErrors: b.stats.handlerErrors.Load(),
		HandlerPanics: b.stats.handlerPanics.Load(),
	}
}

var (
	defaultBus  *Bus
	defaultOnce sync.Once
)

// Default returns the process-wide bus, creating it on first call. Every
// call for the lifetime of the process returns the same instance.
func Default() *Bus {
	defaultOnce.Do(func() {
		defaultBus = New()
	})
	return defaultBus
}
