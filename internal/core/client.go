package core

import (
	"sync"
	"time"
)

// AnonymousName is used for sessions that never set a display name.
const AnonymousName = "Anonymous"

// Client is a single live connection as seen by the core layer. Its
// display name is set once per connection and its room membership is
// at most one room at a time.
type Client struct {
	ID     string
	Events chan *Event

	mu          sync.Mutex
	name        string
	room        string
	typingTimer *time.Timer
	typingRoom  string
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		Events: make(chan *Event, 16),
	}
}

// Name returns the display name, or AnonymousName if none was set.
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.name == "" {
		return AnonymousName
	}
	return c.name
}

// SetName sets the display name. Setting is idempotent: resending the
// same name is a no-op and a name already set is kept.
func (c *Client) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.name == "" {
		c.name = name
	}
}

// Room returns the room the client currently believes it is in.
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) setRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = room
}

// armTypingTimer (re)arms the typing expiry timer. The previous timer,
// if any, is stopped first so rapid typing events collapse into one
// pending expiry. A firing timer clears the typing state before
// invoking expire, unless a newer timer has replaced it in the
// meantime.
func (c *Client) armTypingTimer(room string, ttl time.Duration, expire func(room string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(ttl, func() {
		c.mu.Lock()
		live := c.typingTimer == timer
		if live {
			c.typingTimer = nil
			c.typingRoom = ""
		}
		c.mu.Unlock()
		if live {
			expire(room)
		}
	})
	c.typingRoom = room
	c.typingTimer = timer
}

// stopTypingTimer cancels the pending typing expiry, if any, and
// returns the room it was armed for.
func (c *Client) stopTypingTimer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	room := c.typingRoom
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	c.typingRoom = ""
	return room
}

// send delivers an event to the client, dropping it if the client's
// buffer is full.
func (c *Client) send(event *Event) {
	select {
	case c.Events <- event:
	default:
		// Drop if slow consumer.
	}
}
