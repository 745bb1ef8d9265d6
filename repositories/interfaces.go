package repositories

import (
	"context"
	"errors"

	"github.com/upb/multichat/models"
)

var (
	// ErrChatNotFound is returned when no conversation exists for an id
	ErrChatNotFound = errors.New("chat not found")

	// ErrInvalidChatID is returned for ids that are not safe storage keys
	ErrInvalidChatID = errors.New("invalid chat id")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// ChatHistoryRepository persists conversations
type ChatHistoryRepository interface {
	// Save creates or replaces the conversation stored under record.ChatID
	Save(ctx context.Context, record *models.ChatRecord) error

	// Load returns a conversation or ErrChatNotFound
	Load(ctx context.Context, chatID string) (*models.ChatRecord, error)

	// List returns the metadata of every conversation, newest first
	List(ctx context.Context) ([]models.ChatMeta, error)

	// Delete removes a conversation or returns ErrChatNotFound
	Delete(ctx context.Context, chatID string) error

	// Ping reports whether the backing store is reachable
	Ping(ctx context.Context) error

	// Close releases the backing store
	Close() error
}
