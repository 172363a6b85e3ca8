package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	inMemory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")

	db, err := sql.Open("sqlite3", withForeignKeys(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if inMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// withForeignKeys makes every pooled connection enforce foreign keys; the
// PRAGMA alone only reaches the connection that executed it.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chats_user ON chats(user_id, updated_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			sender_id TEXT,
			ai_agent TEXT,
			content TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (chat_id) REFERENCES chats(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			industry TEXT NOT NULL DEFAULT '',
			experience TEXT NOT NULL DEFAULT 'beginner',
			rating REAL NOT NULL DEFAULT 0,
			following INTEGER NOT NULL DEFAULT 0,
			followers INTEGER NOT NULL DEFAULT 0,
			profile_image_url TEXT NOT NULL DEFAULT '',
			cover_image_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertChat inserts a chat and returns it with its assigned id and timestamps.
func (s *SQLiteStore) InsertChat(ctx context.Context, userID, title string) (*ChatRow, error) {
	now := time.Now().UTC()
	row := &ChatRow{
		ID:        uuid.New().String(),
		Title:     title,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, title, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		row.ID, row.Title, row.UserID, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// SelectChat retrieves a chat header by ID.
func (s *SQLiteStore) SelectChat(ctx context.Context, chatID string) (*ChatRow, error) {
	var row ChatRow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, user_id, created_at, updated_at FROM chats WHERE id = ?`,
		chatID).Scan(&row.ID, &row.Title, &row.UserID, &row.CreatedAt, &row.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SelectChatsByUser retrieves a user's chat headers, most recently updated first.
func (s *SQLiteStore) SelectChatsByUser(ctx context.Context, userID string) ([]ChatRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, user_id, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY updated_at DESC, rowid DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []ChatRow
	for rows.Next() {
		var row ChatRow
		if err := rows.Scan(&row.ID, &row.Title, &row.UserID, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, row)
	}
	return chats, rows.Err()
}

// UpdateChatTitle sets a chat's title and bumps its updated_at in one
// statement. It reports whether a row matched.
func (s *SQLiteStore) UpdateChatTitle(ctx context.Context, chatID, title string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UTC(), chatID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TouchChat sets a chat's updated_at.
func (s *SQLiteStore) TouchChat(ctx context.Context, chatID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE chats SET updated_at = ? WHERE id = ?`, at.UTC(), chatID)
	return err
}

// DeleteChat deletes a chat; its messages go with it through ON DELETE CASCADE.
func (s *SQLiteStore) DeleteChat(ctx context.Context, chatID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertMessage inserts a message and returns it with its assigned id and timestamp.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *MessageRow) (*MessageRow, error) {
	row := *msg
	row.ID = uuid.New().String()
	row.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, sender_id, ai_agent, content, role, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.ChatID, row.SenderID, row.AIAgent, row.Content, row.Role, row.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SelectMessages retrieves a chat's messages in creation order.
func (s *SQLiteStore) SelectMessages(ctx context.Context, chatID string) ([]MessageRow, error) {
	return s.queryMessages(ctx,
		`SELECT id, chat_id, sender_id, ai_agent, content, role, created_at FROM messages WHERE chat_id = ? ORDER BY created_at ASC, rowid ASC`,
		chatID)
}

// SelectMessagesIn retrieves the messages of every listed chat in creation order.
func (s *SQLiteStore) SelectMessagesIn(ctx context.Context, chatIDs []string) ([]MessageRow, error) {
	if len(chatIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(chatIDs))
	args := make([]interface{}, len(chatIDs))
	for i, id := range chatIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(
		`SELECT id, chat_id, sender_id, ai_agent, content, role, created_at FROM messages WHERE chat_id IN (%s) ORDER BY created_at ASC, rowid ASC`,
		strings.Join(placeholders, ", "))
	return s.queryMessages(ctx, query, args...)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]MessageRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []MessageRow
	for rows.Next() {
		var row MessageRow
		if err := rows.Scan(&row.ID, &row.ChatID, &row.SenderID, &row.AIAgent, &row.Content, &row.Role, &row.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, row)
	}
	return messages, rows.Err()
}

const profileColumns = `id, name, username, email, bio, location, website, industry, experience, rating, following, followers, profile_image_url, cover_image_url, created_at, updated_at`

// SelectProfile retrieves a profile by user ID.
func (s *SQLiteStore) SelectProfile(ctx context.Context, userID string) (*ProfileRow, error) {
	var p ProfileRow
	err := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, userID).Scan(
		&p.ID, &p.Name, &p.Username, &p.Email, &p.Bio, &p.Location, &p.Website, &p.Industry,
		&p.Experience, &p.Rating, &p.Following, &p.Followers, &p.ProfileImageURL, &p.CoverImageURL,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProfile inserts or replaces a profile keyed by id and returns the stored row.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *ProfileRow) (*ProfileRow, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			username = excluded.username,
			email = excluded.email,
			bio = excluded.bio,
			location = excluded.location,
			website = excluded.website,
			industry = excluded.industry,
			experience = excluded.experience,
			rating = excluded.rating,
			following = excluded.following,
			followers = excluded.followers,
			profile_image_url = excluded.profile_image_url,
			cover_image_url = excluded.cover_image_url,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Username, p.Email, p.Bio, p.Location, p.Website, p.Industry,
		p.Experience, p.Rating, p.Following, p.Followers, p.ProfileImageURL, p.CoverImageURL,
		now, now)
	if err != nil {
		return nil, err
	}
	return s.SelectProfile(ctx, p.ID)
}
