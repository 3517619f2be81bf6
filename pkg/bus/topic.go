package bus

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Unbounded disables log eviction for a topic.
const Unbounded = -1

// Topic owns an append-only message log and the subscriptions attached to
// it. A single mutex guards the log, the subscription list, and both id
// counters for the full duration of every operation, nested handler
// invocations included. Operations on different topics are independent.
//
// Handlers therefore must not call Send or Subscribe on their own topic;
// other topics are fine. Unsubscribe is always safe.
type Topic struct {
	name   string
	logger *zap.Logger
	stats  *busStats

	mu         sync.Mutex
	log        []*Message
	subs       []*Subscription
	maxLogSize int
	nextMsgID  int64
	nextSubID  int64
}

// Name returns the topic name.
func (t *Topic) Name() string { return t.name }

// Send appends payload to the topic log as a new message, evicts if the
// log is bounded, then delivers the message to every active subscription
// in registration order, advancing each cursor as it goes. Inactive
// subscriptions are skipped and their cursors left behind, which is what
// lets a later re-subscribe see how far back it has to replay.
func (t *Topic) Send(payload interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := t.append(payload)
	t.evict()

	for i := 0; i < len(t.subs); i++ {
		s := t.subs[i]
		if !s.active.Load() {
			continue
		}
		t.invoke(s.handler, msg)
		s.lastSeen = msg.ID
	}
}

// Len returns the number of messages currently retained in the log.
func (t *Topic) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.log)
}

// Messages returns a snapshot of the retained log, oldest first.
func (t *Topic) Messages() []*Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Message, len(t.log))
	copy(out, t.log)
	return out
}

// append assigns the next message id and timestamp. Called with t.mu held.
func (t *Topic) append(payload interface{}) *Message {
	msg := &Message{
		ID:        t.nextMsgID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	t.nextMsgID++
	t.log = append(t.log, msg)
	t.stats.published.Add(1)
	return msg
}

// evict drops messages from the front until the log fits maxLogSize.
// Surviving messages keep their ids. Called with t.mu held.
func (t *Topic) evict() {
	if t.maxLogSize == Unbounded {
		return
	}
	if n := len(t.log) - t.maxLogSize; n > 0 {
		evicted := t.log[:n]
		t.log = append(t.log[:0:0], t.log[n:]...)
		t.logger.Debug("evicted messages",
			zap.String("topic", t.name),
			zap.Int("count", len(evicted)),
			zap.Int64("throughId", evicted[len(evicted)-1].ID))
	}
}

// newestID returns the id of the newest retained message, or -1 when the
// log is empty. Called with t.mu held.
func (t *Topic) newestID() int64 {
	if len(t.log) == 0 {
		return -1
	}
	return t.log[len(t.log)-1].ID
}

// invoke runs a single handler invocation with the isolate-and-continue
// failure policy: errors are logged, panics are recovered and logged, and
// the caller moves on to the next delivery either way.
func (t *Topic) invoke(h Handler, m *Message) {
	defer func() {
		if r := recover(); r != nil {
			t.stats.handlerPanics.Add(1)
			t.logger.Error("handler panicked",
				zap.String("topic", t.name),
				zap.Int64("messageId", m.ID),
				zap.Any("panic", r))
		}
	}()

	if err := h(m); err != nil {
		t.stats.handlerErrors.Add(1)
		t.logger.Warn("handler failed",
			zap.String("topic", t.name),
			zap.Int64("messageId", m.ID),
			zap.Error(err))
		return
	}
	t.stats.delivered.Add(1)
}
