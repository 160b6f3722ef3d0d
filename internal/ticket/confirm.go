package ticket

import (
	"sync"
	"time"
)

// State is the lifecycle state of a ticket channel.
type State int

const (
	StateOpen State = iota
	StateConfirmPending
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateConfirmPending:
		return "confirm_pending"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// confirmation is a pending close request of one channel.
type confirmation struct {
	channelID       string
	token           string
	requestedBy     string
	promptMessageID string
	expiresAt       time.Time
}

func (c *confirmation) expired(now time.Time) bool {
	return !now.Before(c.expiresAt)
}

// confirmations maps channel IDs to pending close requests and tracks the
// channels being closed. Entries are expired lazily on access and actively
// by sweep.
type confirmations struct {
	mu      sync.Mutex
	pending map[string]*confirmation
	closing map[string]struct{}
}

func newConfirmations() *confirmations {
	return &confirmations{
		pending: make(map[string]*confirmation),
		closing: make(map[string]struct{}),
	}
}

func (c *confirmations) state(channelID string, now time.Time) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.closing[channelID]; ok {
		return StateClosing
	}
	if e, ok := c.pending[channelID]; ok && !e.expired(now) {
		return StateConfirmPending
	}
	return StateOpen
}

// reserve registers a new request. A live entry or a closing channel rejects
// it; an expired entry is replaced and returned so its prompt can be removed.
func (c *confirmations) reserve(entry *confirmation, now time.Time) (*confirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.closing[entry.channelID]; ok {
		return nil, ErrConfirmationPending
	}
	stale, ok := c.pending[entry.channelID]
	if ok && !stale.expired(now) {
		return nil, ErrConfirmationPending
	}
	c.pending[entry.channelID] = entry
	return stale, nil
}

// attach records the prompt message of a reserved request.
func (c *confirmations) attach(channelID, token, messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.pending[channelID]; ok && e.token == token {
		e.promptMessageID = messageID
	}
}

// release drops a reserved request whose prompt could not be posted.
func (c *confirmations) release(channelID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.pending[channelID]; ok && e.token == token {
		delete(c.pending, channelID)
	}
}

// take removes the entry matching token. With closing set the channel moves
// to StateClosing in the same critical section, so confirm, cancel and expiry
// have exactly one winner. An expired entry is removed and returned together
// with ErrExpired.
func (c *confirmations) take(channelID, token string, now time.Time, closing bool) (*confirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.pending[channelID]
	if !ok || e.token != token {
		return nil, ErrExpired
	}
	delete(c.pending, channelID)
	if e.expired(now) {
		return e, ErrExpired
	}
	if closing {
		c.closing[channelID] = struct{}{}
	}
	return e, nil
}

// finish returns a closing channel to StateOpen, or forgets a deleted one.
func (c *confirmations) finish(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.closing, channelID)
}

// sweep removes and returns all expired entries.
func (c *confirmations) sweep(now time.Time) []*confirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*confirmation
	for id, e := range c.pending {
		if e.expired(now) {
			delete(c.pending, id)
			out = append(out, e)
		}
	}
	return out
}
