package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

func newID() string {
	return uuid.New().String()
}

// SQLiteStore implements the Store interface using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and
// ensures the schema exists. Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection serializes writers, which makes the
	// find-or-create transaction below race-free.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log.Info().Str("path", path).Msg("SQLite store initialized")
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS pages (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id),
			page_id      TEXT NOT NULL UNIQUE,
			page_name    TEXT NOT NULL,
			access_token TEXT NOT NULL,
			status       TEXT NOT NULL,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,

			CHECK (status IN ('connected', 'disconnected'))
		);

		CREATE INDEX IF NOT EXISTS idx_pages_user ON pages(user_id);

		CREATE TABLE IF NOT EXISTS conversations (
			id               TEXT PRIMARY KEY,
			page_id          TEXT NOT NULL,
			customer_id      TEXT NOT NULL,
			customer_name    TEXT NOT NULL,
			customer_picture TEXT,
			last_message_at  INTEGER NOT NULL,
			status           TEXT NOT NULL,
			created_at       TEXT NOT NULL,

			CHECK (status IN ('open', 'closed'))
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_page_customer
			ON conversations(page_id, customer_id, last_message_at DESC);

		CREATE INDEX IF NOT EXISTS idx_conversations_page_last_message
			ON conversations(page_id, last_message_at DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			message_id      TEXT NOT NULL UNIQUE,
			direction       TEXT NOT NULL,
			sender_id       TEXT NOT NULL,
			content         TEXT NOT NULL,
			timestamp       INTEGER NOT NULL,
			read            INTEGER NOT NULL DEFAULT 0,

			CHECK (direction IN ('inbound', 'outbound'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, timestamp);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	log.Info().Msg("Closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation reports whether err is a SQLite UNIQUE constraint
// violation.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// CreateUser inserts a new agent account. Returns ErrDuplicateUser if the
// email is already registered.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	log.Debug().Str("user_id", user.ID).Msg("Created user")
	return nil
}

// GetUser retrieves an agent account by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves an agent account by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var user User
	var createdAtStr string

	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	user.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &user, nil
}

// CreatePage links a Facebook page to an agent account. Returns
// ErrDuplicatePage if the page is already linked to any account.
func (s *SQLiteStore) CreatePage(ctx context.Context, page *Page) error {
	query := `
		INSERT INTO pages (id, user_id, page_id, page_name, access_token, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		page.ID,
		page.UserID,
		page.PageID,
		page.PageName,
		page.AccessToken,
		page.Status,
		page.CreatedAt.UTC().Format(time.RFC3339),
		page.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicatePage
		}
		return fmt.Errorf("inserting page: %w", err)
	}

	log.Debug().Str("page_id", page.PageID).Str("user_id", page.UserID).Msg("Created page link")
	return nil
}

// GetPageByPageID retrieves a page link by the external Facebook page id.
func (s *SQLiteStore) GetPageByPageID(ctx context.Context, pageID string) (*Page, error) {
	query := `
		SELECT id, user_id, page_id, page_name, access_token, status, created_at, updated_at
		FROM pages WHERE page_id = ?
	`
	return s.scanPage(s.db.QueryRowContext(ctx, query, pageID))
}

// GetPageForUser retrieves a page link owned by the given account.
func (s *SQLiteStore) GetPageForUser(ctx context.Context, userID, pageID string) (*Page, error) {
	query := `
		SELECT id, user_id, page_id, page_name, access_token, status, created_at, updated_at
		FROM pages WHERE user_id = ? AND page_id = ?
	`
	return s.scanPage(s.db.QueryRowContext(ctx, query, userID, pageID))
}

func (s *SQLiteStore) scanPage(row *sql.Row) (*Page, error) {
	var page Page
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&page.ID,
		&page.UserID,
		&page.PageID,
		&page.PageName,
		&page.AccessToken,
		&page.Status,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying page: %w", err)
	}

	page.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	page.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &page, nil
}

// ListConnectedPages returns the connected pages owned by an account.
func (s *SQLiteStore) ListConnectedPages(ctx context.Context, userID string) ([]*Page, error) {
	query := `
		SELECT id, user_id, page_id, page_name, access_token, status, created_at, updated_at
		FROM pages
		WHERE user_id = ? AND status = 'connected'
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		var page Page
		var createdAtStr, updatedAtStr string

		if err := rows.Scan(
			&page.ID,
			&page.UserID,
			&page.PageID,
			&page.PageName,
			&page.AccessToken,
			&page.Status,
			&createdAtStr,
			&updatedAtStr,
		); err != nil {
			return nil, fmt.Errorf("scanning page row: %w", err)
		}

		page.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		page.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}

		pages = append(pages, &page)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating page rows: %w", err)
	}

	return pages, nil
}

// ReconnectPage flips a page back to connected and rotates its credential.
func (s *SQLiteStore) ReconnectPage(ctx context.Context, id, accessToken string) error {
	query := `
		UPDATE pages
		SET status = 'connected', access_token = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, accessToken, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating page: %w", err)
	}
	return checkRowAffected(result)
}

// DisconnectPage flips a page to disconnected. The row is kept so the page
// can be reconnected later.
func (s *SQLiteStore) DisconnectPage(ctx context.Context, id string) error {
	query := `
		UPDATE pages
		SET status = 'disconnected', updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating page: %w", err)
	}
	return checkRowAffected(result)
}

func checkRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindOrCreateConversation resolves the conversation for an inbound message
// inside a single transaction. The most recent conversation for the
// (page, customer) pair is reused unless the gap since its last message is
// strictly greater than the session window, in which case a fresh
// conversation is opened and the old one is left untouched.
func (s *SQLiteStore) FindOrCreateConversation(ctx context.Context, params FindOrCreateConversationParams) (*Conversation, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT id, page_id, customer_id, customer_name, customer_picture, last_message_at, status, created_at
		FROM conversations
		WHERE page_id = ? AND customer_id = ?
		ORDER BY last_message_at DESC
		LIMIT 1
	`

	conv, err := scanConversation(tx.QueryRowContext(ctx, query, params.PageID, params.CustomerID))
	if err != nil && err != ErrNotFound {
		return nil, false, err
	}

	if err == nil && params.OccurredAt.Sub(conv.LastMessageAt) <= params.SessionWindow {
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("committing transaction: %w", err)
		}
		return conv, false, nil
	}

	created := &Conversation{
		ID:              newID(),
		PageID:          params.PageID,
		CustomerID:      params.CustomerID,
		CustomerName:    params.CustomerName,
		CustomerPicture: params.CustomerPicture,
		LastMessageAt:   params.OccurredAt,
		Status:          ConversationStatusOpen,
		CreatedAt:       time.Now().UTC(),
	}

	insert := `
		INSERT INTO conversations (id, page_id, customer_id, customer_name, customer_picture, last_message_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, insert,
		created.ID,
		created.PageID,
		created.CustomerID,
		created.CustomerName,
		nullString(created.CustomerPicture),
		created.LastMessageAt.UnixMilli(),
		created.Status,
		created.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing transaction: %w", err)
	}

	log.Debug().
		Str("conversation_id", created.ID).
		Str("page_id", created.PageID).
		Str("customer_id", created.CustomerID).
		Msg("Opened new conversation")

	return created, true, nil
}

// GetConversation retrieves a conversation by id.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	query := `
		SELECT id, page_id, customer_id, customer_name, customer_picture, last_message_at, status, created_at
		FROM conversations WHERE id = ?
	`
	return scanConversation(s.db.QueryRowContext(ctx, query, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var conv Conversation
	var picture sql.NullString
	var lastMessageAtMs int64
	var createdAtStr string

	err := row.Scan(
		&conv.ID,
		&conv.PageID,
		&conv.CustomerID,
		&conv.CustomerName,
		&picture,
		&lastMessageAtMs,
		&conv.Status,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}

	conv.CustomerPicture = picture.String
	conv.LastMessageAt = time.UnixMilli(lastMessageAtMs).UTC()
	conv.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &conv, nil
}

// ListConversationsByPage returns the conversations for a page, newest
// activity first.
func (s *SQLiteStore) ListConversationsByPage(ctx context.Context, pageID string) ([]*Conversation, error) {
	query := `
		SELECT id, page_id, customer_id, customer_name, customer_picture, last_message_at, status, created_at
		FROM conversations
		WHERE page_id = ?
		ORDER BY last_message_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}

	return conversations, nil
}

// AdvanceLastMessageAt moves the conversation's last-message timestamp
// forward. The WHERE clause makes the update monotonic: an out-of-order
// older timestamp leaves the row unchanged.
func (s *SQLiteStore) AdvanceLastMessageAt(ctx context.Context, conversationID string, ts time.Time) error {
	query := `
		UPDATE conversations
		SET last_message_at = ?
		WHERE id = ? AND last_message_at < ?
	`

	ms := ts.UnixMilli()
	if _, err := s.db.ExecContext(ctx, query, ms, conversationID, ms); err != nil {
		return fmt.Errorf("advancing last_message_at: %w", err)
	}
	return nil
}

// InsertMessage appends a message, idempotently. If a message with the same
// provider message id already exists the existing row is returned unchanged
// and the bool is false; the caller decides whether that matters.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *Message) (*Message, bool, error) {
	query := `
		INSERT INTO messages (id, conversation_id, message_id, direction, sender_id, content, timestamp, read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.MessageID,
		msg.Direction,
		msg.SenderID,
		msg.Content,
		msg.Timestamp.UnixMilli(),
		boolToInt(msg.Read),
	)
	if err != nil {
		if isConstraintViolation(err) {
			existing, lookupErr := s.getMessageByMessageID(ctx, msg.MessageID)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("loading duplicate message: %w", lookupErr)
			}
			log.Debug().Str("message_id", msg.MessageID).Msg("Duplicate message delivery ignored")
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("inserting message: %w", err)
	}

	return msg, true, nil
}

func (s *SQLiteStore) getMessageByMessageID(ctx context.Context, messageID string) (*Message, error) {
	query := `
		SELECT id, conversation_id, message_id, direction, sender_id, content, timestamp, read
		FROM messages WHERE message_id = ?
	`
	return scanMessage(s.db.QueryRowContext(ctx, query, messageID))
}

func scanMessage(row rowScanner) (*Message, error) {
	var msg Message
	var timestampMs int64
	var read int

	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.MessageID,
		&msg.Direction,
		&msg.SenderID,
		&msg.Content,
		&timestampMs,
		&read,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying message: %w", err)
	}

	msg.Timestamp = time.UnixMilli(timestampMs).UTC()
	msg.Read = read != 0
	return &msg, nil
}

// ListMessagesByConversation returns a conversation's messages oldest
// first, insertion order breaking timestamp ties.
func (s *SQLiteStore) ListMessagesByConversation(ctx context.Context, conversationID string) ([]*Message, error) {
	query := `
		SELECT id, conversation_id, message_id, direction, sender_id, content, timestamp, read
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// MarkConversationRead marks all unread inbound messages in a conversation
// as read.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, conversationID string) error {
	query := `
		UPDATE messages
		SET read = 1
		WHERE conversation_id = ? AND direction = 'inbound' AND read = 0
	`

	if _, err := s.db.ExecContext(ctx, query, conversationID); err != nil {
		return fmt.Errorf("marking messages read: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
