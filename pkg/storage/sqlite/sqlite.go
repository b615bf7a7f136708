// Package sqlite provides a storage.ChatStore backed by a single SQLite
// file, using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/storage"
)

// timeLayout keeps timestamps lexically sortable.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS chats (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_updated_at ON chats (updated_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS messages (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    id         TEXT NOT NULL UNIQUE,
    chat_id    TEXT NOT NULL REFERENCES chats (id) ON DELETE CASCADE,
    role       TEXT NOT NULL CHECK (role IN ('system', 'user', 'assistant')),
    content    TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages (chat_id, created_at, seq);
`

// Config holds SQLite settings.
type Config struct {
	// Path is the database file. ":memory:" opens a private in-memory database.
	Path string

	// BusyTimeout bounds how long a writer waits for a lock (default: 5s).
	BusyTimeout time.Duration
}

// Store is a SQLite-backed ChatStore.
type Store struct {
	db *sql.DB
}

// Ensure Store implements storage.ChatStore at compile time.
var _ storage.ChatStore = (*Store)(nil)

// New opens (creating if needed) the database and applies the schema.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows one writer at a time, and an in-memory database
	// exists only on its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db}, nil
}

// CreateChat inserts a new chat.
func (s *Store) CreateChat(ctx context.Context, chat *api.Chat) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chats (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
		chat.ID, chat.Title, formatTime(chat.CreatedAt), formatTime(chat.UpdatedAt),
	)
	if err != nil {
		if isConstraint(err, "UNIQUE") {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting chat: %w", err)
	}
	return nil
}

// GetChat retrieves a chat by ID.
func (s *Store) GetChat(ctx context.Context, id string) (*api.Chat, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, created_at, updated_at FROM chats WHERE id = ?", id)
	chat, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying chat: %w", err)
	}
	return chat, nil
}

// ListChats returns chats ordered by updated_at descending.
func (s *Store) ListChats(ctx context.Context, limit int) ([]*api.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, created_at, updated_at FROM chats ORDER BY updated_at DESC, id DESC LIMIT ?",
		storage.Limit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	chats := []*api.Chat{}
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	return chats, nil
}

// UpdateChatTitle sets the title and bumps updated_at.
func (s *Store) UpdateChatTitle(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE chats SET title = ?, updated_at = ? WHERE id = ?",
		title, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("updating chat title: %w", err)
	}
	return requireRow(res)
}

// TouchChat bumps updated_at.
func (s *Store) TouchChat(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE chats SET updated_at = ? WHERE id = ?",
		formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("touching chat: %w", err)
	}
	return requireRow(res)
}

// AppendMessage inserts a message.
func (s *Store) AppendMessage(ctx context.Context, msg *api.StoredMessage) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.ChatID, string(msg.Role), msg.Content, formatTime(msg.CreatedAt),
	)
	if err != nil {
		switch {
		case isConstraint(err, "FOREIGN KEY"):
			return storage.ErrNotFound
		case isConstraint(err, "UNIQUE"):
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListMessages returns the chat's messages ordered by created_at, then
// insertion sequence.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]*api.StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, role, content, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at ASC, seq ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	msgs := []*api.StoredMessage{}
	for rows.Next() {
		var m api.StoredMessage
		var role, created string
		if err := rows.Scan(&m.ID, &m.ChatID, &role, &m.Content, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = api.Role(role)
		if m.CreatedAt, err = parseTime(created); err != nil {
			rows.Close()
			return nil, err
		}
		msgs = append(msgs, &m)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	// The single connection must be released before this lookup.
	if len(msgs) == 0 {
		if _, err := s.GetChat(ctx, chatID); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

// CountChats returns the number of chats.
func (s *Store) CountChats(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM chats").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chats: %w", err)
	}
	return n, nil
}

// HealthCheck verifies the database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChat(row scanner) (*api.Chat, error) {
	var chat api.Chat
	var created, updated string
	if err := row.Scan(&chat.ID, &chat.Title, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if chat.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if chat.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &chat, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// isConstraint matches SQLite constraint failures by message, e.g.
// "constraint failed: UNIQUE constraint failed: chats.id (1555)".
func isConstraint(err error, kind string) bool {
	return err != nil && strings.Contains(err.Error(), kind+" constraint failed")
}
