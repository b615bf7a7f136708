// Package postgres provides a PostgreSQL implementation of storage.ChatStore.
// It uses pgx/v5 for connection pooling and embedded SQL migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/storage"
)

// PostgreSQL error codes mapped to storage sentinels.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store is a PostgreSQL-backed ChatStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.ChatStore at compile time.
var _ storage.ChatStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if _, err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// CreateChat inserts a new chat.
func (s *Store) CreateChat(ctx context.Context, chat *api.Chat) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO chats (id, title, created_at, updated_at) VALUES ($1, $2, $3, $4)",
		chat.ID, chat.Title, chat.CreatedAt, chat.UpdatedAt,
	)
	if err != nil {
		if hasCode(err, codeUniqueViolation) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting chat: %w", err)
	}
	return nil
}

// GetChat retrieves a chat by ID.
func (s *Store) GetChat(ctx context.Context, id string) (*api.Chat, error) {
	var chat api.Chat
	err := s.pool.QueryRow(ctx,
		"SELECT id, title, created_at, updated_at FROM chats WHERE id = $1",
		id,
	).Scan(&chat.ID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying chat: %w", err)
	}
	chat.CreatedAt = chat.CreatedAt.UTC()
	chat.UpdatedAt = chat.UpdatedAt.UTC()
	return &chat, nil
}

// ListChats returns chats ordered by updated_at descending.
func (s *Store) ListChats(ctx context.Context, limit int) ([]*api.Chat, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, title, created_at, updated_at FROM chats ORDER BY updated_at DESC, id DESC LIMIT $1",
		storage.Limit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	chats := []*api.Chat{}
	for rows.Next() {
		var chat api.Chat
		if err := rows.Scan(&chat.ID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		chat.CreatedAt = chat.CreatedAt.UTC()
		chat.UpdatedAt = chat.UpdatedAt.UTC()
		chats = append(chats, &chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	return chats, nil
}

// UpdateChatTitle sets the title and bumps updated_at.
func (s *Store) UpdateChatTitle(ctx context.Context, id, title string) error {
	result, err := s.pool.Exec(ctx,
		"UPDATE chats SET title = $1, updated_at = $2 WHERE id = $3",
		title, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating chat title: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TouchChat bumps updated_at.
func (s *Store) TouchChat(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx,
		"UPDATE chats SET updated_at = $1 WHERE id = $2",
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("touching chat: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AppendMessage inserts a message. A missing chat surfaces as a foreign
// key violation and is reported as ErrNotFound.
func (s *Store) AppendMessage(ctx context.Context, msg *api.StoredMessage) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO messages (id, chat_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)",
		msg.ID, msg.ChatID, string(msg.Role), msg.Content, msg.CreatedAt,
	)
	if err != nil {
		switch {
		case hasCode(err, codeForeignKeyViolation):
			return storage.ErrNotFound
		case hasCode(err, codeUniqueViolation):
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListMessages returns the chat's messages ordered by created_at, then
// insertion sequence.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]*api.StoredMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, chat_id, role, content, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC, seq ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	msgs := []*api.StoredMessage{}
	for rows.Next() {
		var m api.StoredMessage
		var role string
		if err := rows.Scan(&m.ID, &m.ChatID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = api.Role(role)
		m.CreatedAt = m.CreatedAt.UTC()
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

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
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM chats").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chats: %w", err)
	}
	return n, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// hasCode reports whether err is a PostgreSQL error with the given SQLSTATE.
func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
