package bus

import "sync/atomic"

// Subscription binds a handler to a topic. Its identity is stable: once
// created it is never removed from the topic, and re-subscribing with the
// same id mutates this record in place.
type Subscription struct {
	id    int64
	topic *Topic

	// active is atomic so Unsubscribe works from inside a handler while
	// the topic lock is held by the triggering Send.
	active atomic.Bool

	// handler and lastSeen are guarded by topic.mu.
	handler  Handler
	lastSeen int64
}

// ID returns the subscription id, unique within its topic.
func (s *Subscription) ID() int64 { return s.id }

// Topic returns the name of the topic this subscription is bound to.
func (s *Subscription) Topic() string { return s.topic.name }

// IsActive reports whether the subscription currently receives messages.
func (s *Subscription) IsActive() bool { return s.active.Load() }

// LastSeen returns the id of the last message delivered to this
// subscription, and false if nothing has been delivered yet.
func (s *Subscription) LastSeen() (int64, bool) {
	s.topic.mu.Lock()
	defer s.topic.mu.Unlock()
	return s.lastSeen, s.lastSeen >= 0
}

// Unsubscribe deactivates the subscription. The record stays on the topic
// and its cursor stops advancing, so a later Subscribe with the same id
// can replay what was missed. Idempotent.
func (s *Subscription) Unsubscribe() {
	s.active.Store(false)
}

// Subscribe registers handler on the topic and returns its subscription.
//
// Without WithSubscriptionID a fresh subscription is created under the
// next auto-assigned id. With an id that already exists on the topic the
// existing subscription is updated in place: the handler and active flag
// are replaced, and any messages newer than its cursor are replayed per
// the backlog strategy before the cursor catches up. A new subscription
// instead replays against the entire retained log.
//
// Backlog replay runs synchronously before Subscribe returns.
func (t *Topic) Subscribe(handler Handler, opts ...SubscribeOption) *Subscription {
	cfg := subscribeConfig{id: -1, backlog: BacklogFull, active: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id := cfg.id
	if id < 0 {
		id = t.nextSubID
	}

	if s := t.lookup(id); s != nil {
		return t.resubscribe(s, handler, cfg)
	}

	replay(cfg.backlog, t.log, func(m *Message) {
		t.invoke(handler, m)
	})

	s := &Subscription{
		id:       id,
		topic:    t,
		handler:  handler,
		lastSeen: t.newestID(),
	}
	s.active.Store(cfg.active)
	t.subs = append(t.subs, s)
	t.nextSubID++
	return s
}

// resubscribe is the update path: same id, identity preserved. Only
// messages the subscription has not seen are candidates for replay, and
// the cursor advances to the newest retained id whether or not the
// strategy delivered anything. Called with t.mu held.
func (t *Topic) resubscribe(s *Subscription, handler Handler, cfg subscribeConfig) *Subscription {
	s.handler = handler
	s.active.Store(cfg.active)

	newest := t.newestID()
	if len(t.log) > 0 && s.lastSeen != newest && cfg.active {
		replay(cfg.backlog, replayWindow(t.log, s.lastSeen), func(m *Message) {
			t.invoke(handler, m)
		})
		s.lastSeen = newest
	}
	return s
}

// lookup returns the subscription with the given id, or nil. Called with
// t.mu held.
func (t *Topic) lookup(id int64) *Subscription {
	for _, s := range t.subs {
		if s.id == id {
			return s
		}
	}
	return nil
}
