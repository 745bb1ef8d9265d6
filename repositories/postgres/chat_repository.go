package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/multichat/models"
	"github.com/upb/multichat/repositories"
	"github.com/upb/multichat/services/providers"
)

// ChatRepository implements repositories.ChatHistoryRepository on PostgreSQL
type ChatRepository struct {
	db        *DB
	txManager repositories.TransactionManager
	logger    *zap.Logger
}

// NewChatRepository creates a new chat history repository
func NewChatRepository(db *DB, logger *zap.Logger) *ChatRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatRepository{
		db:        db,
		txManager: NewTransactionManager(db, logger),
		logger:    logger,
	}
}

// Save upserts the chat header and replaces its messages in one transaction
func (r *ChatRepository) Save(ctx context.Context, record *models.ChatRecord) error {
	if !models.ValidChatID(record.ChatID) {
		return fmt.Errorf("%w: %q", repositories.ErrInvalidChatID, record.ChatID)
	}

	err := r.txManager.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
		executor := GetExecutor(ctx, r.db)

		upsert := `
			INSERT INTO chat_histories (chat_id, saved_at, provider, model, persona)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (chat_id) DO UPDATE
			SET saved_at = EXCLUDED.saved_at,
			    provider = EXCLUDED.provider,
			    model = EXCLUDED.model,
			    persona = EXCLUDED.persona
		`
		if _, err := executor.ExecContext(ctx, upsert,
			record.ChatID,
			record.Timestamp,
			record.Provider,
			record.Model,
			record.Persona,
		); err != nil {
			return fmt.Errorf("failed to upsert chat: %w", err)
		}

		if _, err := executor.ExecContext(ctx, `DELETE FROM chat_messages WHERE chat_id = $1`, record.ChatID); err != nil {
			return fmt.Errorf("failed to clear chat messages: %w", err)
		}

		if len(record.Messages) == 0 {
			return nil
		}

		query, args := insertMessagesQuery(record.ChatID, record.Messages)
		if _, err := executor.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert chat messages: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("chat saved", zap.String("chat_id", record.ChatID), zap.Int("messages", len(record.Messages)))
	return nil
}

// insertMessagesQuery builds one multi-row insert keeping conversational order
func insertMessagesQuery(chatID string, msgs []providers.Message) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("INSERT INTO chat_messages (chat_id, position, role, content) VALUES ")

	args := make([]interface{}, 0, len(msgs)*4)
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString(", ")
		}
		n := len(args)
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		args = append(args, chatID, i, msg.Role, msg.Content)
	}
	return b.String(), args
}

// Load reads the chat header and its ordered messages
func (r *ChatRepository) Load(ctx context.Context, chatID string) (*models.ChatRecord, error) {
	if !models.ValidChatID(chatID) {
		return nil, fmt.Errorf("%w: %q", repositories.ErrInvalidChatID, chatID)
	}

	executor := GetExecutor(ctx, r.db)
	record := &models.ChatRecord{}

	err := executor.QueryRowContext(ctx, `
		SELECT chat_id, saved_at, provider, model, persona
		FROM chat_histories
		WHERE chat_id = $1
	`, chatID).Scan(
		&record.ChatID,
		&record.Timestamp,
		&record.Provider,
		&record.Model,
		&record.Persona,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	rows, err := executor.QueryContext(ctx, `
		SELECT role, content
		FROM chat_messages
		WHERE chat_id = $1
		ORDER BY position ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat messages: %w", err)
	}
	defer rows.Close()

	record.Messages = []providers.Message{}
	for rows.Next() {
		var msg providers.Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		record.Messages = append(record.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}

	return record, nil
}

// List returns chat headers, newest first
func (r *ChatRepository) List(ctx context.Context) ([]models.ChatMeta, error) {
	executor := GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, `
		SELECT chat_id, saved_at, provider, model, persona
		FROM chat_histories
		ORDER BY saved_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	metas := []models.ChatMeta{}
	for rows.Next() {
		var meta models.ChatMeta
		if err := rows.Scan(&meta.ChatID, &meta.Timestamp, &meta.Provider, &meta.Model, &meta.Persona); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}

	return metas, nil
}

// Delete removes a chat; its messages go with it through the foreign key
func (r *ChatRepository) Delete(ctx context.Context, chatID string) error {
	if !models.ValidChatID(chatID) {
		return fmt.Errorf("%w: %q", repositories.ErrInvalidChatID, chatID)
	}

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM chat_histories WHERE chat_id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repositories.ErrChatNotFound
	}

	return nil
}

// Ping checks database connectivity
func (r *ChatRepository) Ping(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// Close closes the underlying pool
func (r *ChatRepository) Close() error {
	return r.db.Close()
}
