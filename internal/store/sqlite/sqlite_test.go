package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatlive/relay-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateRoomUniqueName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room, err := s.CreateRoom(ctx, "general", "hash1", "alice")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.Name != "general" || room.CreatedBy != "alice" {
		t.Fatalf("unexpected room: %+v", room)
	}

	if _, err := s.CreateRoom(ctx, "general", "hash2", "bob"); !errors.Is(err, store.ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists, got %v", err)
	}

	// The first-committed record wins.
	got, err := s.GetRoomByName(ctx, "general")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.PasswordHash != "hash1" || got.CreatedBy != "alice" {
		t.Fatalf("losing create mutated the room: %+v", got)
	}
}

func TestGetRoomByNameNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetRoomByName(context.Background(), "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRoomRemovesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateRoom(ctx, "general", "hash", "alice"); err != nil {
		t.Fatalf("create room: %v", err)
	}
	msg := &store.Message{Room: "general", From: "alice", Text: "hi", CreatedAt: time.Now()}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("save message: %v", err)
	}

	if err := s.DeleteRoom(ctx, "general"); err != nil {
		t.Fatalf("delete room: %v", err)
	}

	if _, err := s.GetRoomByName(ctx, "general"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("room survived delete: %v", err)
	}
	if _, err := s.GetMessage(ctx, msg.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("message survived delete: %v", err)
	}
	names, err := s.ListRoomNames(ctx)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("deleted room still listed: %v", names)
	}

	if err := s.DeleteRoom(ctx, "general"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListMessagesOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three"} {
		msg := &store.Message{
			Room:      "general",
			From:      "alice",
			Text:      text,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("save message: %v", err)
		}
	}

	messages, err := s.ListMessages(ctx, "general", 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"one", "two", "three"} {
		if messages[i].Text != want {
			t.Fatalf("message %d: got %q want %q", i, messages[i].Text, want)
		}
	}

	// Limit keeps the most recent messages, still oldest-first.
	messages, err = s.ListMessages(ctx, "general", 2)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 2 || messages[0].Text != "two" || messages[1].Text != "three" {
		t.Fatalf("unexpected limited history: %+v", messages)
	}
}

func TestReactionsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := &store.Message{Room: "general", From: "alice", Text: "hi", CreatedAt: time.Now()}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("save message: %v", err)
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if got.Reactions == nil || len(got.Reactions) != 0 {
		t.Fatalf("expected empty reaction map, got %v", got.Reactions)
	}

	reactions := map[string][]string{"👍": {"bob"}, "❤️": {}}
	if err := s.UpdateReactions(ctx, msg.ID, reactions); err != nil {
		t.Fatalf("update reactions: %v", err)
	}

	got, err = s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if names := got.Reactions["👍"]; len(names) != 1 || names[0] != "bob" {
		t.Fatalf("unexpected reactions: %v", got.Reactions)
	}
	if names, ok := got.Reactions["❤️"]; !ok || len(names) != 0 {
		t.Fatalf("empty reactor list not preserved: %v", got.Reactions)
	}

	if err := s.UpdateReactions(ctx, 999, reactions); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
