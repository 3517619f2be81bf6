package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter collects payload deliveries for a test subscription.
type counter struct {
	ids []int64
}

func (c *counter) handler() Handler {
	return func(m *Message) error {
		c.ids = append(c.ids, m.ID)
		return nil
	}
}

func (c *counter) calls() int { return len(c.ids) }

func TestFreshSubscribeBacklogFull(t *testing.T) {
	tp := New().Topic("t")
	for i := 0; i < 3; i++ {
		tp.Send(i)
	}

	var c counter
	tp.Subscribe(c.handler())

	assert.Equal(t, []int64{0, 1, 2}, c.ids, "full backlog replays oldest first before Subscribe returns")
}

func TestFreshSubscribeBacklogLatest(t *testing.T) {
	tp := New().Topic("t")

	var empty counter
	tp.Subscribe(empty.handler(), WithBacklog(BacklogLatest))
	assert.Zero(t, empty.calls(), "latest on an empty log delivers nothing")

	for i := 0; i < 3; i++ {
		tp.Send(i)
	}

	var c counter
	tp.Subscribe(c.handler(), WithBacklog(BacklogLatest))
	assert.Equal(t, []int64{2}, c.ids)
}

func TestFreshSubscribeBacklogIgnore(t *testing.T) {
	tp := New().Topic("t")
	for i := 0; i < 3; i++ {
		tp.Send(i)
	}

	var c counter
	tp.Subscribe(c.handler(), WithBacklog(BacklogIgnore))
	assert.Zero(t, c.calls())

	tp.Send(3)
	assert.Equal(t, []int64{3}, c.ids, "ignore only skips the backlog, not new messages")
}

func TestResubscribeSameIdentity(t *testing.T) {
	tp := New().Topic("t")

	var a, b counter
	s1 := tp.Subscribe(a.handler())
	s2 := tp.Subscribe(b.handler(), WithSubscriptionID(s1.ID()))

	assert.Same(t, s1, s2, "same id mutates the existing subscription in place")

	tp.Send("x")
	assert.Zero(t, a.calls(), "replaced handler no longer receives")
	assert.Equal(t, 1, b.calls())
}

func TestResubscribeNoNewMessagesNoReplay(t *testing.T) {
	tp := New().Topic("t")

	var c counter
	s := tp.Subscribe(c.handler())
	tp.Send("x")
	require.Equal(t, 1, c.calls())

	tp.Subscribe(c.handler(), WithSubscriptionID(s.ID()))
	assert.Equal(t, 1, c.calls(), "cursor already at newest, nothing to replay")
}

func TestUnsubscribeStopsDeliveryAndCursor(t *testing.T) {
	tp := New().Topic("t")

	var c counter
	s := tp.Subscribe(c.handler())

	tp.Send("a")
	s.Unsubscribe()
	s.Unsubscribe() // idempotent
	assert.False(t, s.IsActive())

	tp.Send("b")
	tp.Send("c")

	assert.Equal(t, 1, c.calls())
	last, ok := s.LastSeen()
	require.True(t, ok)
	assert.EqualValues(t, 0, last, "cursor frozen at the last delivered message")
}

func TestResumeReplaysMissedMessages(t *testing.T) {
	tp := New().Topic("t")

	var c counter
	s := tp.Subscribe(c.handler())
	tp.Send("a")
	s.Unsubscribe()

	tp.Send("b")
	tp.Send("c")

	got := tp.Subscribe(c.handler(), WithSubscriptionID(s.ID()))
	assert.Same(t, s, got)
	assert.True(t, s.IsActive())
	assert.Equal(t, []int64{0, 1, 2}, c.ids, "resume replays exactly the missed suffix")

	tp.Send("d")
	assert.Equal(t, []int64{0, 1, 2, 3}, c.ids)
}

func TestResumeLatestReplaysNewestOnly(t *testing.T) {
	tp := New().Topic("t")

	var c counter
	s := tp.Subscribe(c.handler())
	s.Unsubscribe()

	for i := 0; i < 3; i++ {
		tp.Send(i)
	}

	tp.Subscribe(c.handler(), WithSubscriptionID(s.ID()), WithBacklog(BacklogLatest))
	assert.Equal(t, []int64{2}, c.ids)

	last, ok := s.LastSeen()
	require.True(t, ok)
	assert.EqualValues(t, 2, last, "cursor advances to newest even when only one message replayed")
}

func TestResumeIgnoreAdvancesCursorWithoutReplay(t *testing.T) {
	tp := New().Topic("t")

	var c counter
	s := tp.Subscribe(c.handler())
	s.Unsubscribe()

	tp.Send("a")
	tp.Send("b")

	tp.Subscribe(c.handler(), WithSubscriptionID(s.ID()), WithBacklog(BacklogIgnore))
	assert.Zero(t, c.calls())

	last, ok := s.LastSeen()
	require.True(t, ok)
	assert.EqualValues(t, 1, last)
}

func TestResumeAgainstEvictedCursor(t *testing.T) {
	tp := New().Topic("t", WithMaxLogSize(3))

	var c counter
	tp.Send("a")
	tp.Send("b")
	s := tp.Subscribe(c.handler(), WithBacklog(BacklogIgnore))
	s.Unsubscribe()

	for i := 0; i < 10; i++ {
		tp.Send(i)
	}
	require.Equal(t, []int64{9, 10, 11}, logIDs(tp))

	// Cursor 1 was evicted: the resume window is the entire retained log.
	tp.Subscribe(c.handler(), WithSubscriptionID(s.ID()))
	assert.Equal(t, []int64{9, 10, 11}, c.ids)
}

func TestInactiveResubscribeSkipsReplay(t *testing.T) {
	tp := New().Topic("t")

	var c counter
	s := tp.Subscribe(c.handler())
	s.Unsubscribe()

	tp.Send("a")

	tp.Subscribe(c.handler(), WithSubscriptionID(s.ID()), WithStartInactive())
	assert.Zero(t, c.calls())
	assert.False(t, s.IsActive())

	_, ok := s.LastSeen()
	assert.False(t, ok, "inactive re-subscribe leaves the cursor untouched")
}

func TestStartInactiveCreationStillReplaysBacklog(t *testing.T) {
	tp := New().Topic("t")
	tp.Send("a")
	tp.Send("b")

	var c counter
	s := tp.Subscribe(c.handler(), WithStartInactive())
	assert.Equal(t, []int64{0, 1}, c.ids)
	assert.False(t, s.IsActive())

	tp.Send("c")
	assert.Equal(t, 2, c.calls(), "no live delivery while inactive")
}

func TestFanoutRegistrationOrder(t *testing.T) {
	tp := New().Topic("t")

	var order []string
	sub := func(name string) {
		tp.Subscribe(func(m *Message) error {
			order = append(order, name)
			return nil
		})
	}
	sub("first")
	sub("second")
	sub("third")

	tp.Send("x")
	tp.Send("y")

	assert.Equal(t, []string{
		"first", "second", "third",
		"first", "second", "third",
	}, order)
}

func TestUnsubscribeDuringFanout(t *testing.T) {
	tp := New().Topic("t")

	var later *Subscription
	var c counter

	tp.Subscribe(func(m *Message) error {
		later.Unsubscribe()
		return nil
	})
	later = tp.Subscribe(c.handler())

	tp.Send("x")
	assert.Zero(t, c.calls(), "deactivated by an earlier handler in the same fan-out")

	tp.Send("y")
	assert.Zero(t, c.calls())
}

func TestHandlerFailuresIsolated(t *testing.T) {
	b := New()
	tp := b.Topic("t")

	tp.Subscribe(func(m *Message) error {
		return errors.New("boom")
	})
	tp.Subscribe(func(m *Message) error {
		panic("kaboom")
	})
	var c counter
	tp.Subscribe(c.handler())

	tp.Send("x")

	assert.Equal(t, 1, c.calls(), "fan-out continues past failing handlers")
	s := b.Stats()
	assert.EqualValues(t, 1, s.HandlerErrors)
	assert.EqualValues(t, 1, s.HandlerPanics)
}

// Mirrors the end-to-end walkthrough: four subscribers with different
// backlog strategies, deactivation, and resume.
func TestSubscribeReplayLifecycle(t *testing.T) {
	tp := New().Topic("lifecycle")

	var c1, c2, c3, c4 counter
	s1 := tp.Subscribe(c1.handler())

	for i := 0; i < 4; i++ {
		tp.Send(i)
	}
	require.Equal(t, 4, c1.calls())
	require.Equal(t, 4, tp.Len())

	tp.Subscribe(c2.handler(), WithBacklog(BacklogIgnore))
	assert.Zero(t, c2.calls())

	tp.Subscribe(c3.handler(), WithBacklog(BacklogLatest))
	assert.Equal(t, []int64{3}, c3.ids)

	tp.Subscribe(c4.handler())
	assert.Equal(t, []int64{0, 1, 2, 3}, c4.ids)

	tp.Subscribe(c1.handler(), WithSubscriptionID(s1.ID()))
	assert.Equal(t, 4, c1.calls(), "nothing new since last seen")

	s1.Unsubscribe()
	for i := 4; i < 8; i++ {
		tp.Send(i)
	}
	assert.Equal(t, 4, c1.calls())
	assert.Equal(t, 8, c4.calls())

	tp.Subscribe(c1.handler(), WithSubscriptionID(s1.ID()))
	assert.Equal(t, 8, c1.calls(), "resume replays the four missed messages")
	assert.Equal(t, []int64{4, 5, 6, 7}, c1.ids[4:])
}
