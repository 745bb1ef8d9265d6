// Package bolt stores conversations in a single bbolt database file,
// JSON encoded under the chat id in the "chats" bucket.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/upb/multichat/models"
	"github.com/upb/multichat/repositories"
)

var chatsBucket = []byte("chats")

// ChatRepository implements repositories.ChatHistoryRepository on bbolt
type ChatRepository struct {
	db     *bbolt.DB
	logger *zap.Logger
}

// NewChatRepository opens or creates the database file
func NewChatRepository(path string, logger *zap.Logger) (*ChatRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(chatsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create chats bucket: %w", err)
	}

	logger.Info("bolt history store opened", zap.String("path", path))
	return &ChatRepository{db: db, logger: logger}, nil
}

// Save writes the record in its own update transaction
func (r *ChatRepository) Save(ctx context.Context, record *models.ChatRecord) error {
	if !models.ValidChatID(record.ChatID) {
		return fmt.Errorf("%w: %q", repositories.ErrInvalidChatID, record.ChatID)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode chat: %w", err)
	}

	err = r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(chatsBucket).Put([]byte(record.ChatID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}

	r.logger.Debug("chat saved", zap.String("chat_id", record.ChatID), zap.Int("messages", len(record.Messages)))
	return nil
}

// Load reads a single chat
func (r *ChatRepository) Load(ctx context.Context, chatID string) (*models.ChatRecord, error) {
	if !models.ValidChatID(chatID) {
		return nil, fmt.Errorf("%w: %q", repositories.ErrInvalidChatID, chatID)
	}

	var record *models.ChatRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(chatsBucket).Get([]byte(chatID))
		if data == nil {
			return repositories.ErrChatNotFound
		}
		record = &models.ChatRecord{}
		if err := json.Unmarshal(data, record); err != nil {
			return fmt.Errorf("failed to decode chat %s: %w", chatID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List decodes every stored chat; undecodable entries are logged and skipped
func (r *ChatRepository) List(ctx context.Context) ([]models.ChatMeta, error) {
	var metas []models.ChatMeta
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(chatsBucket).ForEach(func(k, v []byte) error {
			var record models.ChatRecord
			if err := json.Unmarshal(v, &record); err != nil {
				r.logger.Warn("skipping undecodable chat", zap.ByteString("chat_id", k), zap.Error(err))
				return nil
			}
			metas = append(metas, record.Meta())
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].Timestamp.After(metas[j].Timestamp)
	})
	if metas == nil {
		metas = []models.ChatMeta{}
	}
	return metas, nil
}

// Delete removes a chat
func (r *ChatRepository) Delete(ctx context.Context, chatID string) error {
	if !models.ValidChatID(chatID) {
		return fmt.Errorf("%w: %q", repositories.ErrInvalidChatID, chatID)
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(chatsBucket)
		if bucket.Get([]byte(chatID)) == nil {
			return repositories.ErrChatNotFound
		}
		return bucket.Delete([]byte(chatID))
	})
}

// Ping runs an empty read transaction
func (r *ChatRepository) Ping(ctx context.Context) error {
	return r.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(chatsBucket) == nil {
			return fmt.Errorf("chats bucket missing")
		}
		return nil
	})
}

// Close closes the database file
func (r *ChatRepository) Close() error {
	r.logger.Info("closing bolt history store")
	return r.db.Close()
}
