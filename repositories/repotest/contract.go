// Package repotest holds behaviour checks shared by every
// ChatHistoryRepository backend.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/multichat/models"
	"github.com/upb/multichat/repositories"
	"github.com/upb/multichat/services/providers"
)

// NewRecord builds a two-turn conversation saved at ts
func NewRecord(id string, ts time.Time) *models.ChatRecord {
	return &models.ChatRecord{
		ChatID:    id,
		Timestamp: ts.UTC().Truncate(time.Millisecond),
		Provider:  "OpenAI",
		Model:     "GPT-4o",
		Persona:   "Concise",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "2+2?"},
			{Role: providers.RoleAssistant, Content: "4"},
		},
	}
}

// RunChatHistoryContract exercises a backend through the repository interface
func RunChatHistoryContract(t *testing.T, newRepo func(t *testing.T) repositories.ChatHistoryRepository) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("save and load round trip", func(t *testing.T) {
		repo := newRepo(t)
		record := NewRecord("chat-1", base)

		require.NoError(t, repo.Save(ctx, record))

		loaded, err := repo.Load(ctx, "chat-1")
		require.NoError(t, err)
		assert.Equal(t, record.ChatID, loaded.ChatID)
		assert.True(t, record.Timestamp.Equal(loaded.Timestamp))
		assert.Equal(t, record.Messages, loaded.Messages)
		assert.Equal(t, "Concise", loaded.Persona)
	})

	t.Run("save replaces an existing chat", func(t *testing.T) {
		repo := newRepo(t)
		record := NewRecord("chat-1", base)
		require.NoError(t, repo.Save(ctx, record))

		record.Messages = append(record.Messages, providers.Message{Role: providers.RoleUser, Content: "and 3+3?"})
		require.NoError(t, repo.Save(ctx, record))

		loaded, err := repo.Load(ctx, "chat-1")
		require.NoError(t, err)
		assert.Len(t, loaded.Messages, 3)

		metas, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, metas, 1)
	})

	t.Run("missing chat", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Load(ctx, "nope")
		assert.ErrorIs(t, err, repositories.ErrChatNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "nope"), repositories.ErrChatNotFound)
	})

	t.Run("list is newest first", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Save(ctx, NewRecord("old", base)))
		require.NoError(t, repo.Save(ctx, NewRecord("new", base.Add(2*time.Hour))))
		require.NoError(t, repo.Save(ctx, NewRecord("mid", base.Add(time.Hour))))

		metas, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, metas, 3)
		assert.Equal(t, []string{"new", "mid", "old"}, []string{metas[0].ChatID, metas[1].ChatID, metas[2].ChatID})
		assert.Equal(t, "OpenAI", metas[0].Provider)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Save(ctx, NewRecord("chat-1", base)))

		require.NoError(t, repo.Delete(ctx, "chat-1"))
		_, err := repo.Load(ctx, "chat-1")
		assert.ErrorIs(t, err, repositories.ErrChatNotFound)
	})

	t.Run("invalid ids are rejected", func(t *testing.T) {
		repo := newRepo(t)
		for _, id := range []string{"", "../etc/passwd", "a/b", "..", ".hidden"} {
			assert.ErrorIs(t, repo.Save(ctx, NewRecord(id, base)), repositories.ErrInvalidChatID, id)
			_, err := repo.Load(ctx, id)
			assert.ErrorIs(t, err, repositories.ErrInvalidChatID, id)
		}
	})

	t.Run("concurrent saves", func(t *testing.T) {
		repo := newRepo(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				record := NewRecord("shared", base)
				record.Messages = append(record.Messages, providers.Message{Role: providers.RoleUser, Content: fmt.Sprintf("turn %d", i)})
				assert.NoError(t, repo.Save(ctx, record))
			}(i)
		}
		wg.Wait()

		loaded, err := repo.Load(ctx, "shared")
		require.NoError(t, err)
		assert.Len(t, loaded.Messages, 3)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(ctx))
	})
}
