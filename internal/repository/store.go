// Package repository defines the remote store surface and its implementations.
package repository

import (
	"context"
	"database/sql"
	"time"
)

// ChatRow mirrors a row of the chats table.
type ChatRow struct {
	ID        string
	Title     string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageRow mirrors a row of the messages table.
type MessageRow struct {
	ID        string
	ChatID    string
	SenderID  sql.NullString
	AIAgent   sql.NullString
	Content   string
	Role      string
	CreatedAt time.Time
}

// ProfileRow mirrors a row of the profiles table.
type ProfileRow struct {
	ID              string
	Name            string
	Username        string
	Email           string
	Bio             string
	Location        string
	Website         string
	Industry        string
	Experience      string
	Rating          float64
	Following       int
	Followers       int
	ProfileImageURL string
	CoverImageURL   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Store is the query/command surface of the remote relational store.
// Select methods return nil, nil for an absent row.
type Store interface {
	// Chat operations
	InsertChat(ctx context.Context, userID, title string) (*ChatRow, error)
	SelectChat(ctx context.Context, chatID string) (*ChatRow, error)
	SelectChatsByUser(ctx context.Context, userID string) ([]ChatRow, error)
	UpdateChatTitle(ctx context.Context, chatID, title string) (bool, error)
	TouchChat(ctx context.Context, chatID string, at time.Time) error
	DeleteChat(ctx context.Context, chatID string) (bool, error)

	// Message operations
	InsertMessage(ctx context.Context, msg *MessageRow) (*MessageRow, error)
	SelectMessages(ctx context.Context, chatID string) ([]MessageRow, error)
	SelectMessagesIn(ctx context.Context, chatIDs []string) ([]MessageRow, error)

	// Profile operations
	SelectProfile(ctx context.Context, userID string) (*ProfileRow, error)
	UpsertProfile(ctx context.Context, profile *ProfileRow) (*ProfileRow, error)

	// Lifecycle
	Close() error
}
