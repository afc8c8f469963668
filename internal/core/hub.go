package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatlive/relay-server/internal/auth"
	"github.com/chatlive/relay-server/internal/store"
)

const (
	defaultTypingTTL    = 3 * time.Second
	defaultHistoryLimit = 200
)

// Options tunes hub behavior. Zero values fall back to defaults.
type Options struct {
	// TypingTTL is how long a typing indicator stays up without a
	// fresh typing event before the hub emits stop-typing on the
	// session's behalf.
	TypingTTL time.Duration
	// HistoryLimit caps how many messages a join ack carries.
	HistoryLimit int
}

// Hub coordinates rooms, sessions and broadcasts. It owns the presence
// registry and is the only writer of rooms and messages in the store.
//
// Methods are safe for concurrent use from per-connection goroutines.
// Store-dependent room creation and deletion are serialized per room
// name so an existence check and its create/delete never observe a
// stale answer across the store round trip.
type Hub struct {
	store        store.Store
	log          zerolog.Logger
	presence     *Presence
	typingTTL    time.Duration
	historyLimit int

	mu      sync.Mutex
	clients map[*Client]struct{}
	rooms   map[string]*Room

	locksMu sync.Mutex
	locks   map[string]*roomLock
}

// roomLock is a per-room-name mutex with a holder/waiter count so the
// table entry can be dropped once the last user releases it.
type roomLock struct {
	mu   sync.Mutex
	refs int
}

// NewHub creates a new chat hub instance.
func NewHub(st store.Store, logger *zerolog.Logger, opts Options) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.TypingTTL == 0 {
		opts.TypingTTL = defaultTypingTTL
	}
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	return &Hub{
		store:        st,
		log:          *logger,
		presence:     NewPresence(),
		typingTTL:    opts.TypingTTL,
		historyLimit: opts.HistoryLimit,
		clients:      make(map[*Client]struct{}),
		rooms:        make(map[string]*Room),
		locks:        make(map[string]*roomLock),
	}
}

// RegisterClient makes a connection known to the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// SetIdentity records the display name for a session. The name sticks
// for the lifetime of the connection; resending it is a no-op.
func (h *Hub) SetIdentity(c *Client, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	c.SetName(name)
}

// Join validates access to a room, creating it on first use, moves the
// session's membership there and returns the room history plus the
// live member list.
func (h *Hub) Join(ctx context.Context, c *Client, roomName, password string) (*JoinResult, *CoreError) {
	if roomName == "" || password == "" {
		return nil, coreError(ErrCodeMissingField, "Room name and password are required")
	}
	name := c.Name()

	lock := h.lockRoom(roomName)
	defer h.unlockRoom(roomName, lock)

	room, created, cerr := h.findOrCreateRoom(ctx, roomName, password, name)
	if cerr != nil {
		return nil, cerr
	}

	if !created {
		if auth.CompareSecret(room.PasswordHash, password) != nil {
			return nil, coreError(ErrCodeWrongPassword, "Wrong password")
		}
	}

	stored, err := h.store.ListMessages(ctx, roomName, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomName).Msg("load history")
		return nil, coreError(ErrCodeStoreUnavailable, "Could not load room history")
	}

	vacated := h.moveMembership(c, roomName)
	for _, r := range vacated {
		h.broadcastRoom(r, &Event{Kind: EventPresenceChanged, Room: r, Users: h.presence.Users(r)})
	}
	users := h.presence.Users(roomName)
	h.broadcastRoom(roomName, &Event{Kind: EventPresenceChanged, Room: roomName, Users: users})

	if created {
		h.log.Info().Str("room", roomName).Str("created_by", name).Msg("room created")
		h.broadcastRoomList(ctx)
	}

	messages := make([]*Message, 0, len(stored))
	for _, m := range stored {
		messages = append(messages, messageFromStore(m))
	}
	return &JoinResult{Messages: messages, Users: users}, nil
}

// findOrCreateRoom resolves the room record, inserting it when absent.
// A create that loses the unique-name race re-fetches and joins the
// now-persisted room instead of erroring.
func (h *Hub) findOrCreateRoom(ctx context.Context, roomName, password, creator string) (*store.Room, bool, *CoreError) {
	room, err := h.store.GetRoomByName(ctx, roomName)
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		h.log.Error().Err(err).Str("room", roomName).Msg("room lookup")
		return nil, false, coreError(ErrCodeStoreUnavailable, "Room lookup failed")
	}

	hash, err := auth.HashSecret(password)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomName).Msg("hash room secret")
		return nil, false, coreError(ErrCodeStoreUnavailable, "Could not create room")
	}

	room, err = h.store.CreateRoom(ctx, roomName, hash, creator)
	if err == nil {
		return room, true, nil
	}
	if errors.Is(err, store.ErrRoomExists) {
		room, err = h.store.GetRoomByName(ctx, roomName)
		if err == nil {
			return room, false, nil
		}
	}
	h.log.Error().Err(err).Str("room", roomName).Msg("create room")
	return nil, false, coreError(ErrCodeStoreUnavailable, "Could not create room")
}

// DeleteRoom removes a room and all of its messages after checking the
// password, then detaches every session that was in it.
func (h *Hub) DeleteRoom(ctx context.Context, roomName, password string) *CoreError {
	if roomName == "" || password == "" {
		return coreError(ErrCodeMissingField, "Room name and password are required")
	}

	lock := h.lockRoom(roomName)
	defer h.unlockRoom(roomName, lock)

	room, err := h.store.GetRoomByName(ctx, roomName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return coreError(ErrCodeNotFound, "Room not found")
		}
		h.log.Error().Err(err).Str("room", roomName).Msg("room lookup")
		return coreError(ErrCodeStoreUnavailable, "Room lookup failed")
	}

	if auth.CompareSecret(room.PasswordHash, password) != nil {
		return coreError(ErrCodeWrongPassword, "Wrong password")
	}

	if err := h.store.DeleteRoom(ctx, roomName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return coreError(ErrCodeNotFound, "Room not found")
		}
		h.log.Error().Err(err).Str("room", roomName).Msg("delete room")
		return coreError(ErrCodeStoreUnavailable, "Could not delete room")
	}

	h.presence.Drop(roomName)

	h.mu.Lock()
	if r, ok := h.rooms[roomName]; ok {
		for cl := range r.clients {
			cl.setRoom("")
		}
		delete(h.rooms, roomName)
	}
	h.mu.Unlock()

	h.log.Info().Str("room", roomName).Msg("room deleted")
	h.broadcastRoomList(ctx)
	return nil
}

// ListRooms returns the names of all rooms, derived fresh from the store.
func (h *Hub) ListRooms(ctx context.Context) ([]string, *CoreError) {
	names, err := h.store.ListRoomNames(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("list rooms")
		return nil, coreError(ErrCodeStoreUnavailable, "Could not list rooms")
	}
	return names, nil
}

// SendMessage persists a message and fans it out to the room. Empty
// text and unknown rooms are silent no-ops: sends racing a room
// deletion are expected and benign.
func (h *Hub) SendMessage(ctx context.Context, c *Client, roomName, text string) *CoreError {
	text = strings.TrimSpace(text)
	if roomName == "" || text == "" {
		return nil
	}

	if _, err := h.store.GetRoomByName(ctx, roomName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		h.log.Error().Err(err).Str("room", roomName).Msg("room lookup")
		return coreError(ErrCodeStoreUnavailable, "Message not delivered")
	}

	msg := &store.Message{
		Room:      roomName,
		From:      c.Name(),
		Text:      text,
		Reactions: map[string][]string{},
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.SaveMessage(ctx, msg); err != nil {
		h.log.Error().Err(err).Str("room", roomName).Msg("save message")
		return coreError(ErrCodeStoreUnavailable, "Message not delivered")
	}

	h.broadcastRoom(roomName, &Event{
		Kind:    EventMessageReceived,
		Room:    roomName,
		Message: messageFromStore(msg),
	})
	return nil
}

// Typing fans out a typing notification and arms the server-side
// expiry so a client that never sends stop-typing does not leave a
// stuck indicator.
func (h *Hub) Typing(c *Client, roomName string) {
	if roomName == "" {
		return
	}
	name := c.Name()
	c.armTypingTimer(roomName, h.typingTTL, func(room string) {
		h.broadcastRoom(room, &Event{Kind: EventStopTyping, Room: room, User: name})
	})
	h.broadcastRoom(roomName, &Event{Kind: EventTyping, Room: roomName, User: name})
}

// StopTyping cancels the pending typing expiry and fans out the stop.
// With no armed indicator there is nothing to stop; the room already
// saw the expiry-driven stop.
func (h *Hub) StopTyping(c *Client, roomName string) {
	armed := c.stopTypingTimer()
	if armed == "" {
		return
	}
	if roomName == "" {
		roomName = armed
	}
	h.broadcastRoom(roomName, &Event{Kind: EventStopTyping, Room: roomName, User: c.Name()})
}

// ToggleReaction flips the requester's reaction on a message: present
// removes, absent adds. The updated reaction map is persisted and
// republished to the message's room. Unknown messages are a no-op.
func (h *Hub) ToggleReaction(ctx context.Context, c *Client, messageID int64, emoji string) *CoreError {
	if messageID == 0 || emoji == "" {
		return nil
	}

	msg, err := h.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		h.log.Error().Err(err).Int64("message_id", messageID).Msg("message lookup")
		return coreError(ErrCodeStoreUnavailable, "Reaction not recorded")
	}

	name := c.Name()
	reactions := msg.Reactions
	if reactions == nil {
		reactions = map[string][]string{}
	}
	if trimmed, ok := remove(reactions[emoji], name); ok {
		reactions[emoji] = trimmed
	} else {
		reactions[emoji] = append(reactions[emoji], name)
	}

	if err := h.store.UpdateReactions(ctx, messageID, reactions); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		h.log.Error().Err(err).Int64("message_id", messageID).Msg("update reactions")
		return coreError(ErrCodeStoreUnavailable, "Reaction not recorded")
	}

	h.broadcastRoom(msg.Room, &Event{
		Kind:      EventReactionUpdated,
		Room:      msg.Room,
		MessageID: messageID,
		Reactions: reactions,
	})
	return nil
}

// Disconnect tears down a session: it cancels the typing timer, drops
// the connection from its room and, when no other connection under the
// same display name remains there, removes the name from presence.
// Cleanup never fails the caller; presence bookkeeping errors are logged.
func (h *Hub) Disconnect(c *Client) {
	typingRoom := c.stopTypingTimer()

	h.mu.Lock()
	delete(h.clients, c)
	name := c.Name()
	current := c.Room()
	h.unsubscribeLocked(c)

	lastOfName := current != ""
	if lastOfName {
		for cl := range h.clients {
			if cl.Name() == name && cl.Room() == current {
				lastOfName = false
				break
			}
		}
	}
	h.mu.Unlock()

	if typingRoom != "" {
		h.broadcastRoom(typingRoom, &Event{Kind: EventStopTyping, Room: typingRoom, User: name})
	}

	if current != "" && lastOfName {
		if h.presence.Remove(current, name) {
			h.broadcastRoom(current, &Event{
				Kind:  EventPresenceChanged,
				Room:  current,
				Users: h.presence.Users(current),
			})
		}
	}
	h.log.Debug().Str("client_id", c.ID).Str("user", name).Msg("client disconnected")
}

// ==== internals ====

// lockRoom acquires the mutex serializing store-dependent operations
// on a room name, creating the table entry on first use.
func (h *Hub) lockRoom(name string) *roomLock {
	h.locksMu.Lock()
	lock, ok := h.locks[name]
	if !ok {
		lock = &roomLock{}
		h.locks[name] = lock
	}
	lock.refs++
	h.locksMu.Unlock()

	lock.mu.Lock()
	return lock
}

// unlockRoom releases the mutex and removes the table entry when no
// other caller holds or waits on it, so misspelled and deleted room
// names do not pin entries for the process lifetime.
func (h *Hub) unlockRoom(name string, lock *roomLock) {
	lock.mu.Unlock()

	h.locksMu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(h.locks, name)
	}
	h.locksMu.Unlock()
}

// moveMembership moves the session, and any sibling session under the
// same display name, out of other rooms and into target. Returns the
// rooms the display name vacated.
func (h *Hub) moveMembership(c *Client, target string) []string {
	h.mu.Lock()
	name := c.Name()
	for cl := range h.clients {
		if cl == c || cl.Name() != name {
			continue
		}
		if r := cl.Room(); r != "" && r != target {
			h.unsubscribeLocked(cl)
		}
	}
	h.unsubscribeLocked(c)
	h.subscribeLocked(c, target)
	h.mu.Unlock()

	return h.presence.MoveTo(target, name)
}

func (h *Hub) subscribeLocked(c *Client, roomName string) {
	room, ok := h.rooms[roomName]
	if !ok {
		room = NewRoom(roomName)
		h.rooms[roomName] = room
	}
	room.AddClient(c)
	c.setRoom(roomName)
}

func (h *Hub) unsubscribeLocked(c *Client) {
	current := c.Room()
	if current == "" {
		return
	}
	if room, ok := h.rooms[current]; ok {
		room.RemoveClient(c)
		if room.Empty() {
			delete(h.rooms, current)
		}
	}
	c.setRoom("")
}

// broadcastRoom delivers an event to every session in a room. Sends
// never block, so the subscriber table stays locked for the duration.
func (h *Hub) broadcastRoom(roomName string, event *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[roomName]; ok {
		room.Broadcast(event)
	}
}

// broadcastRoomList delivers the fresh room list to every session.
func (h *Hub) broadcastRoomList(ctx context.Context) {
	names, err := h.store.ListRoomNames(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("list rooms for broadcast")
		return
	}

	h.mu.Lock()
	targets := make([]*Client, 0, len(h.clients))
	for cl := range h.clients {
		targets = append(targets, cl)
	}
	h.mu.Unlock()

	event := &Event{Kind: EventRoomListChanged, Rooms: names}
	for _, cl := range targets {
		cl.send(event)
	}
}

func messageFromStore(m *store.Message) *Message {
	reactions := m.Reactions
	if reactions == nil {
		reactions = map[string][]string{}
	}
	return &Message{
		ID:        m.ID,
		Room:      m.Room,
		From:      m.From,
		Text:      m.Text,
		Reactions: reactions,
		CreatedAt: m.CreatedAt,
	}
}
