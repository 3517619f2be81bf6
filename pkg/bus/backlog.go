package bus

import (
	"errors"
	"fmt"
)

// Backlog selects which retained messages a subscription receives at
// subscribe time.
type Backlog int

const (
	// BacklogFull replays every message in the candidate window, oldest
	// first. This is the default.
	BacklogFull Backlog = iota

	// BacklogLatest replays only the newest message in the candidate
	// window, if there is one.
	BacklogLatest

	// BacklogIgnore replays nothing.
	BacklogIgnore
)

var ErrUnknownBacklog = errors.New("bus: unknown backlog strategy")

func (b Backlog) String() string {
	switch b {
	case BacklogFull:
		return "full"
	case BacklogLatest:
		return "latest"
	case BacklogIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("backlog(%d)", int(b))
	}
}

// ParseBacklog maps a config string to a Backlog. The empty string means
// the default (full).
func ParseBacklog(s string) (Backlog, error) {
	switch s {
	case "", "full":
		return BacklogFull, nil
	case "latest":
		return BacklogLatest, nil
	case "ignore":
		return BacklogIgnore, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBacklog, s)
	}
}

// replayWindow returns the suffix of log with ids strictly greater than
// cursor. A cursor of -1 selects the whole log. If the cursor refers to a
// message that has since been evicted, every retained id is greater than
// it, so the window degrades to the entire retained log.
func replayWindow(log []*Message, cursor int64) []*Message {
	for i, m := range log {
		if m.ID > cursor {
			return log[i:]
		}
	}
	return nil
}

// replay invokes the handler per the strategy over the candidate window,
// oldest first. deliver owns error/panic policy for a single invocation.
func replay(strategy Backlog, window []*Message, deliver func(*Message)) {
	switch strategy {
	case BacklogIgnore:
	case BacklogLatest:
		if len(window) > 0 {
			deliver(window[len(window)-1])
		}
	default:
		for _, m := range window {
			deliver(m)
		}
	}
}
