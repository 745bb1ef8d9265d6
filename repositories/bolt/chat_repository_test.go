package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/multichat/repositories"
	"github.com/upb/multichat/repositories/repotest"
)

func openTestRepo(t *testing.T, path string) *ChatRepository {
	t.Helper()
	repo, err := NewChatRepository(path, zap.NewNop())
	require.NoError(t, err)
	return repo
}

func TestChatRepository_Contract(t *testing.T) {
	repotest.RunChatHistoryContract(t, func(t *testing.T) repositories.ChatHistoryRepository {
		repo := openTestRepo(t, filepath.Join(t.TempDir(), "chats.db"))
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	})
}

func TestChatRepository_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chats.db")
	ctx := context.Background()

	repo := openTestRepo(t, path)
	require.NoError(t, repo.Save(ctx, repotest.NewRecord("durable", time.Now())))
	require.NoError(t, repo.Close())

	reopened := openTestRepo(t, path)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "durable")
	require.NoError(t, err)
	assert.Len(t, loaded.Messages, 2)
}

func TestChatRepository_EmptyList(t *testing.T) {
	repo := openTestRepo(t, filepath.Join(t.TempDir(), "chats.db"))
	defer repo.Close()

	metas, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, metas)
	assert.Empty(t, metas)
}
