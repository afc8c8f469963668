package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/chatlive/relay-server/internal/auth"
	"github.com/chatlive/relay-server/internal/store"
)

// fakeStore is an in-memory store.Store for hub tests. beforeCreate,
// when set, runs between the existence check and the insert of
// CreateRoom so tests can provoke the first-joiner race.
type fakeStore struct {
	mu           sync.Mutex
	rooms        map[string]*store.Room
	messages     map[int64]*store.Message
	nextRoomID   int64
	nextMsgID    int64
	failing      bool
	beforeCreate func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:    make(map[string]*store.Room),
		messages: make(map[int64]*store.Message),
	}
}

var errStoreDown = errors.New("store down")

func (f *fakeStore) CreateRoom(_ context.Context, name, passwordHash, createdBy string) (*store.Room, error) {
	if hook := f.hook(); hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	if _, exists := f.rooms[name]; exists {
		return nil, store.ErrRoomExists
	}
	f.nextRoomID++
	room := &store.Room{
		ID:           f.nextRoomID,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedBy:    createdBy,
		CreatedAt:    time.Now(),
	}
	f.rooms[name] = room
	copied := *room
	return &copied, nil
}

func (f *fakeStore) hook() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	hook := f.beforeCreate
	f.beforeCreate = nil
	return hook
}

func (f *fakeStore) GetRoomByName(_ context.Context, name string) (*store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	room, ok := f.rooms[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *room
	return &copied, nil
}

func (f *fakeStore) DeleteRoom(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	if _, ok := f.rooms[name]; !ok {
		return store.ErrNotFound
	}
	delete(f.rooms, name)
	for id, msg := range f.messages {
		if msg.Room == name {
			delete(f.messages, id)
		}
	}
	return nil
}

func (f *fakeStore) ListRoomNames(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	names := make([]string, 0, len(f.rooms))
	for name := range f.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeStore) SaveMessage(_ context.Context, msg *store.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	f.nextMsgID++
	msg.ID = f.nextMsgID
	copied := *msg
	copied.Reactions = copyReactions(msg.Reactions)
	f.messages[msg.ID] = &copied
	return nil
}

func (f *fakeStore) GetMessage(_ context.Context, id int64) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *msg
	copied.Reactions = copyReactions(msg.Reactions)
	return &copied, nil
}

func (f *fakeStore) ListMessages(_ context.Context, room string, limit int) ([]*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	var out []*store.Message
	for id := int64(1); id <= f.nextMsgID && len(out) < limit; id++ {
		msg, ok := f.messages[id]
		if !ok || msg.Room != room {
			continue
		}
		copied := *msg
		copied.Reactions = copyReactions(msg.Reactions)
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeStore) UpdateReactions(_ context.Context, id int64, reactions map[string][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	msg, ok := f.messages[id]
	if !ok {
		return store.ErrNotFound
	}
	msg.Reactions = copyReactions(reactions)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func copyReactions(src map[string][]string) map[string][]string {
	out := make(map[string][]string, len(src))
	for emoji, names := range src {
		out[emoji] = append([]string(nil), names...)
	}
	return out
}

var _ store.Store = (*fakeStore)(nil)

func newTestHub(t *testing.T, st store.Store) *Hub {
	t.Helper()
	return NewHub(st, nil, Options{TypingTTL: 50 * time.Millisecond})
}

// joined returns a registered client with the given name already
// joined to room using password.
func joined(t *testing.T, hub *Hub, name, room, password string) *Client {
	t.Helper()
	c := NewClient(name + "-conn")
	c.SetName(name)
	hub.RegisterClient(c)
	if _, cerr := hub.Join(context.Background(), c, room, password); cerr != nil {
		t.Fatalf("join %s as %s: %+v", room, name, cerr)
	}
	return c
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustHash(t *testing.T, secret string) string {
	t.Helper()
	hash, err := auth.HashSecret(secret)
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	return hash
}

func timeAfter(ms int) <-chan time.Time {
	return time.After(time.Duration(ms) * time.Millisecond)
}

func drain(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
