package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

// SQLiteStore implements ConversationStore, Catalog and CatalogWriter on
// SQLite.
type SQLiteStore struct {
	db *sql.DB
	// writeMu serializes writers to avoid SQLITE_BUSY under concurrent
	// requests.
	writeMu sync.Mutex
	now     func() time.Time
}

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		summary TEXT NOT NULL DEFAULT ''
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_active ON conversations(user_id) WHERE ended_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, started_at);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		sender TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);

	CREATE TABLE IF NOT EXISTS suggested_items (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		batch INTEGER NOT NULL,
		position INTEGER NOT NULL,
		item_type TEXT NOT NULL,
		item_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_suggested_items_conversation ON suggested_items(conversation_id, batch);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		subcategory TEXT NOT NULL DEFAULT '',
		price_range TEXT NOT NULL DEFAULT '',
		age_restriction TEXT NOT NULL DEFAULT '',
		start_time INTEGER NOT NULL,
		end_time INTEGER,
		ticket_url TEXT NOT NULL DEFAULT '',
		organizer TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_time) WHERE active = 1;

	CREATE TABLE IF NOT EXISTS businesses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS offers (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		discount_code TEXT NOT NULL DEFAULT '',
		business_id TEXT NOT NULL DEFAULT '',
		event_id TEXT NOT NULL DEFAULT '',
		start_date INTEGER,
		end_date INTEGER,
		active INTEGER NOT NULL DEFAULT 1
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const conversationColumns = `c.id, c.user_id, c.started_at, c.ended_at, c.summary,
	(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*model.Conversation, error) {
	var conv model.Conversation
	var startedAt int64
	var endedAt sql.NullInt64

	if err := row.Scan(&conv.ID, &conv.UserID, &startedAt, &endedAt, &conv.Summary, &conv.MessageCount); err != nil {
		return nil, err
	}
	conv.StartedAt = time.UnixMilli(startedAt)
	if endedAt.Valid {
		t := time.UnixMilli(endedAt.Int64)
		conv.EndedAt = &t
	}
	return &conv, nil
}

// FindActiveConversation returns the user's active conversation or nil.
func (s *SQLiteStore) FindActiveConversation(ctx context.Context, userID string) (*model.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations c
		WHERE c.user_id = ? AND c.ended_at IS NULL`

	conv, err := scanConversation(s.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active conversation: %w", err)
	}
	return conv, nil
}

// CreateConversation ends the user's active conversation and starts a new
// one in a single transaction.
func (s *SQLiteStore) CreateConversation(ctx context.Context, userID string) (*model.Conversation, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET ended_at = ? WHERE user_id = ? AND ended_at IS NULL`,
		now.UnixMilli(), userID,
	); err != nil {
		return nil, fmt.Errorf("end active conversation: %w", err)
	}

	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		StartedAt: time.UnixMilli(now.UnixMilli()),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, started_at) VALUES (?, ?, ?)`,
		conv.ID, conv.UserID, conv.StartedAt.UnixMilli(),
	); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit conversation: %w", err)
	}
	return conv, nil
}

// GetOrCreateActive inserts a conversation unless the partial unique index
// on active conversations already holds one for the user, then reads back
// whichever row won.
func (s *SQLiteStore) GetOrCreateActive(ctx context.Context, userID string) (*model.Conversation, bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id := uuid.Must(uuid.NewV7()).String()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, started_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		id, userID, s.now().UnixMilli(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert conversation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("get rows affected: %w", err)
	}

	conv, err := s.FindActiveConversation(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if conv == nil {
		return nil, false, fmt.Errorf("%w: user %s", model.ErrSessionRace, userID)
	}
	return conv, rows == 1 && conv.ID == id, nil
}

// GetConversation returns a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations c WHERE c.id = ?`

	conv, err := scanConversation(s.db.QueryRowContext(ctx, query, conversationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the user's conversations, newest first.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE user_id = ?`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	query := `SELECT ` + conversationColumns + ` FROM conversations c
		WHERE c.user_id = ?
		ORDER BY c.started_at DESC, c.id DESC
		LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	convs := make([]model.Conversation, 0, limit)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan conversation row: %w", err)
		}
		convs = append(convs, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate conversations: %w", err)
	}
	return convs, total, nil
}

// EndConversation marks an active conversation ended.
func (s *SQLiteStore) EndConversation(ctx context.Context, conversationID, summary string) (*model.Conversation, error) {
	s.writeMu.Lock()
	result, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET ended_at = ?, summary = ? WHERE id = ? AND ended_at IS NULL`,
		s.now().UnixMilli(), summary, conversationID,
	)
	s.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("end conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("active conversation %s: %w", conversationID, model.ErrNotFound)
	}
	return s.GetConversation(ctx, conversationID)
}

// AppendMessage inserts a message.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID string, sender model.Sender, msgType model.MessageType, content string) (*model.Message, error) {
	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Sender:         sender,
		Type:           msgType,
		Content:        content,
		CreatedAt:      time.UnixMilli(s.now().UnixMilli()),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender, type, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, string(msg.Sender), string(msg.Type), msg.Content, msg.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListMessages returns messages in insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, c.user_id, m.sender, m.type, m.content, m.created_at
		FROM messages m JOIN conversations c ON c.id = m.conversation_id
		WHERE m.conversation_id = ?
		ORDER BY m.created_at, m.rowid
		LIMIT ? OFFSET ?`,
		conversationID, limit+1, offset,
	)
	if err != nil {
		return nil, false, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]model.Message, 0, limit)
	for rows.Next() {
		var msg model.Message
		var sender, msgType string
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.UserID, &sender, &msgType, &msg.Content, &createdAt); err != nil {
			return nil, false, fmt.Errorf("scan message row: %w", err)
		}
		msg.Sender = model.Sender(sender)
		msg.Type = model.MessageType(msgType)
		msg.CreatedAt = time.UnixMilli(createdAt)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate messages: %w", err)
	}

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	return msgs, hasMore, nil
}

// SaveSuggestions records the suggestions in one transaction.
func (s *SQLiteStore) SaveSuggestions(ctx context.Context, conversationID string, items []model.SuggestedItem) error {
	if len(items) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var batch int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(batch), 0) + 1 FROM suggested_items WHERE conversation_id = ?`, conversationID,
	).Scan(&batch); err != nil {
		return fmt.Errorf("next suggestion batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO suggested_items (id, conversation_id, batch, position, item_type, item_id, title, description, link, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare suggestion insert: %w", err)
	}
	defer stmt.Close()

	createdAt := s.now().UnixMilli()
	for i, item := range items {
		if _, err := stmt.ExecContext(ctx,
			uuid.Must(uuid.NewV7()).String(), conversationID, batch, i,
			string(item.Type), item.ItemID, item.Title, item.Description, item.Link, createdAt,
		); err != nil {
			return fmt.Errorf("insert suggestion: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit suggestions: %w", err)
	}
	return nil
}

// ListSuggestions returns the newest batch first, preserving the order
// the items were shown within a batch.
func (s *SQLiteStore) ListSuggestions(ctx context.Context, conversationID string, limit int) ([]model.SuggestedItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_type, item_id, title, description, link
		FROM suggested_items
		WHERE conversation_id = ?
		ORDER BY batch DESC, position ASC
		LIMIT ?`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	items := make([]model.SuggestedItem, 0, limit)
	for rows.Next() {
		var item model.SuggestedItem
		var itemType string
		if err := rows.Scan(&itemType, &item.ItemID, &item.Title, &item.Description, &item.Link); err != nil {
			return nil, fmt.Errorf("scan suggestion row: %w", err)
		}
		item.Type = model.ItemType(itemType)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestions: %w", err)
	}
	return items, nil
}
