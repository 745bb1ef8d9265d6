// Package file stores conversations as one indented JSON document per
// chat in a directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/upb/multichat/models"
	"github.com/upb/multichat/repositories"
)

const fileExt = ".json"

// ChatRepository implements repositories.ChatHistoryRepository on the filesystem
type ChatRepository struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewChatRepository creates the directory if needed
func NewChatRepository(dir string, logger *zap.Logger) (*ChatRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatRepository{
		dir:    dir,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// lock serializes writers of a single chat id
func (r *ChatRepository) lock(chatID string) func() {
	r.mu.Lock()
	l, ok := r.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[chatID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (r *ChatRepository) path(chatID string) (string, error) {
	if !models.ValidChatID(chatID) {
		return "", fmt.Errorf("%w: %q", repositories.ErrInvalidChatID, chatID)
	}
	return filepath.Join(r.dir, chatID+fileExt), nil
}

// Save writes the record through a temp file and rename
func (r *ChatRepository) Save(ctx context.Context, record *models.ChatRecord) error {
	path, err := r.path(record.ChatID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chat: %w", err)
	}

	unlock := r.lock(record.ChatID)
	defer unlock()

	tmp, err := os.CreateTemp(r.dir, "."+record.ChatID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write chat: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write chat: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to save chat: %w", err)
	}

	r.logger.Debug("chat saved", zap.String("chat_id", record.ChatID), zap.Int("messages", len(record.Messages)))
	return nil
}

// Load reads a single chat
func (r *ChatRepository) Load(ctx context.Context, chatID string) (*models.ChatRecord, error) {
	path, err := r.path(chatID)
	if err != nil {
		return nil, err
	}

	record, err := readRecord(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, repositories.ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List reads every chat file; unreadable files are logged and skipped
func (r *ChatRepository) List(ctx context.Context) ([]models.ChatMeta, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list history directory: %w", err)
	}

	metas := make([]models.ChatMeta, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		record, err := readRecord(filepath.Join(r.dir, name))
		if err != nil {
			r.logger.Warn("error reading chat file", zap.String("file", name), zap.Error(err))
			continue
		}
		metas = append(metas, record.Meta())
	}

	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].Timestamp.After(metas[j].Timestamp)
	})
	return metas, nil
}

// Delete removes a chat file
func (r *ChatRepository) Delete(ctx context.Context, chatID string) error {
	path, err := r.path(chatID)
	if err != nil {
		return err
	}

	unlock := r.lock(chatID)
	defer unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return repositories.ErrChatNotFound
		}
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

// Ping checks that the history directory is still present
func (r *ChatRepository) Ping(ctx context.Context) error {
	info, err := os.Stat(r.dir)
	if err != nil {
		return fmt.Errorf("history directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("history path %s is not a directory", r.dir)
	}
	return nil
}

// Close is a no-op for the file store
func (r *ChatRepository) Close() error {
	return nil
}

func readRecord(path string) (*models.ChatRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record models.ChatRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &record, nil
}
