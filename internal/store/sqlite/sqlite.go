package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/chatlive/relay-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_by    TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room       TEXT NOT NULL,
	author     TEXT NOT NULL,
	body       TEXT NOT NULL,
	reactions  TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room, id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before setup
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// ==== RoomStore implementation ====

// CreateRoom inserts a new room. Returns store.ErrRoomExists if the
// name is already taken.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name, passwordHash, createdBy string) (*store.Room, error) {
	query := `
		INSERT INTO rooms (name, password_hash, created_by)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, name, passwordHash, createdBy)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrRoomExists
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.getRoomByID(ctx, id)
}

func (s *SQLiteStore) getRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	query := `
		SELECT id, name, password_hash, created_by, created_at
		FROM rooms
		WHERE id = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID,
		&room.Name,
		&room.PasswordHash,
		&room.CreatedBy,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	return &room, nil
}

// GetRoomByName retrieves a room by name.
func (s *SQLiteStore) GetRoomByName(ctx context.Context, name string) (*store.Room, error) {
	query := `
		SELECT id, name, password_hash, created_by, created_at
		FROM rooms
		WHERE name = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&room.ID,
		&room.Name,
		&room.PasswordHash,
		&room.CreatedBy,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	return &room, nil
}

// DeleteRoom removes the room and all of its messages in a single
// transaction so a partial delete never becomes visible.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback is called on defer, error is not critical here
	}()

	result, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE room = ?`, name); err != nil {
		return fmt.Errorf("delete room messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ListRoomNames returns the names of all rooms, newest first.
func (s *SQLiteStore) ListRoomNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT name FROM rooms
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan room name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// ==== MessageStore implementation ====

// SaveMessage persists a message to storage and fills in its ID.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	reactions := msg.Reactions
	if reactions == nil {
		reactions = map[string][]string{}
	}
	blob, err := json.Marshal(reactions)
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}

	query := `
		INSERT INTO messages (room, author, body, reactions, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.Room, msg.From, msg.Text, string(blob), msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT id, room, author, body, reactions, created_at
		FROM messages
		WHERE id = ?
	`
	var msg store.Message
	var blob string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.Room,
		&msg.From,
		&msg.Text,
		&blob,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	if err := json.Unmarshal([]byte(blob), &msg.Reactions); err != nil {
		return nil, fmt.Errorf("unmarshal reactions: %w", err)
	}
	if msg.Reactions == nil {
		msg.Reactions = map[string][]string{}
	}

	return &msg, nil
}

// ListMessages retrieves the most recent messages of a room in
// chronological order.
func (s *SQLiteStore) ListMessages(ctx context.Context, room string, limit int) ([]*store.Message, error) {
	query := `
		SELECT id, room, author, body, reactions, created_at
		FROM messages
		WHERE room = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, room, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var blob string
		if err := rows.Scan(&msg.ID, &msg.Room, &msg.From, &msg.Text, &blob, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &msg.Reactions); err != nil {
			return nil, fmt.Errorf("unmarshal reactions: %w", err)
		}
		if msg.Reactions == nil {
			msg.Reactions = map[string][]string{}
		}
		messages = append(messages, &msg)
	}

	// Reverse to get chronological order
	for i := 0; i < len(messages)/2; i++ {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	return messages, rows.Err()
}

// UpdateReactions replaces the reaction map of a message.
func (s *SQLiteStore) UpdateReactions(ctx context.Context, id int64, reactions map[string][]string) error {
	if reactions == nil {
		reactions = map[string][]string{}
	}
	blob, err := json.Marshal(reactions)
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE messages SET reactions = ? WHERE id = ?`, string(blob), id)
	if err != nil {
		return fmt.Errorf("update reactions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
