// Package chat runs stored conversations: it loads history, dispatches the
// next turn and persists the result.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/multichat/config"
	"github.com/upb/multichat/models"
	"github.com/upb/multichat/repositories"
	"github.com/upb/multichat/services/dispatch"
	"github.com/upb/multichat/services/providers"
)

// ErrEmptyMessage is returned when Send is called without text
var ErrEmptyMessage = errors.New("message cannot be empty")

// Dispatcher is the subset of dispatch.Service used by the chat service
type Dispatcher interface {
	Dispatch(ctx context.Context, req *dispatch.Request) *providers.CompletionResult
	Catalog() *config.Catalog
}

// Session identifies the conversation and the provider settings for a send
type Session struct {
	// ChatID is empty for a new conversation
	ChatID      string                 `json:"chat_id,omitempty"`
	ProviderID  string                 `json:"provider" validate:"required"`
	ModelID     string                 `json:"model" validate:"required"`
	PersonaID   string                 `json:"persona,omitempty"`
	Attachments []providers.Attachment `json:"attachments,omitempty"`
}

// Reply is the outcome of one Send
type Reply struct {
	ChatID   string                      `json:"chat_id"`
	Result   *providers.CompletionResult `json:"result"`
	Messages []providers.Message         `json:"messages"`
}

// Service implements the chat session flow
type Service struct {
	dispatcher Dispatcher
	history    repositories.ChatHistoryRepository
	logger     *zap.Logger
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new chat service
func NewService(dispatcher Dispatcher, history repositories.ChatHistoryRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		dispatcher: dispatcher,
		history:    history,
		logger:     logger,
		now:        time.Now,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (s *Service) lock(chatID string) func() {
	s.mu.Lock()
	l, ok := s.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[chatID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Send appends text as a user turn, dispatches the conversation and saves
// it with the assistant reply. Provider failures are kept in the history
// as the assistant turn, the same way they are shown to the user.
func (s *Service) Send(ctx context.Context, session *Session, text string) (*Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	chatID := session.ChatID
	if chatID == "" {
		chatID = uuid.New().String()
	} else if !models.ValidChatID(chatID) {
		return nil, fmt.Errorf("%w: %q", repositories.ErrInvalidChatID, chatID)
	}

	unlock := s.lock(chatID)
	defer unlock()

	history, err := s.loadTurns(ctx, chatID)
	if err != nil {
		return nil, err
	}
	history = append(history, providers.Message{Role: providers.RoleUser, Content: text})

	result := s.dispatcher.Dispatch(ctx, &dispatch.Request{
		ProviderID:  session.ProviderID,
		ModelID:     session.ModelID,
		PersonaID:   session.PersonaID,
		Messages:    history,
		Attachments: session.Attachments,
	})
	history = append(history, providers.Message{Role: providers.RoleAssistant, Content: result.Text})

	record := &models.ChatRecord{
		ChatID:    chatID,
		Timestamp: s.now().UTC(),
		Messages:  history,
	}
	record.Provider, record.Model, record.Persona = s.displayNames(session)

	if err := s.history.Save(ctx, record); err != nil {
		s.logger.Error("failed to save chat",
			zap.String("chat_id", chatID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save chat: %w", err)
	}

	s.logger.Info("chat turn saved",
		zap.String("chat_id", chatID),
		zap.String("provider", session.ProviderID),
		zap.Int("turns", len(history)),
		zap.Bool("failed", result.Failed()))

	return &Reply{ChatID: chatID, Result: result, Messages: history}, nil
}

// loadTurns returns the stored turns of a chat, or none for a new id
func (s *Service) loadTurns(ctx context.Context, chatID string) ([]providers.Message, error) {
	record, err := s.history.Load(ctx, chatID)
	if errors.Is(err, repositories.ErrChatNotFound) {
		return []providers.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	return record.Messages, nil
}

// displayNames resolves the labels stored with a chat. Ids that are not in
// the catalog are stored as given.
func (s *Service) displayNames(session *Session) (provider, model, persona string) {
	provider, model, persona = session.ProviderID, session.ModelID, session.PersonaID

	catalog := s.dispatcher.Catalog()
	if catalog == nil {
		return provider, model, persona
	}
	if p, ok := catalog.Provider(session.ProviderID); ok {
		provider = p.DisplayName()
	}
	if m := catalog.Model(session.ProviderID, session.ModelID); m.Name != "" {
		model = m.Name
	}
	if p, ok := catalog.Persona(session.PersonaID); ok && p.Name != "" {
		persona = p.Name
	}
	return provider, model, persona
}

// Resume returns a stored conversation
func (s *Service) Resume(ctx context.Context, chatID string) (*models.ChatRecord, error) {
	return s.history.Load(ctx, chatID)
}

// List returns stored conversations, newest first
func (s *Service) List(ctx context.Context) ([]models.ChatMeta, error) {
	return s.history.List(ctx)
}

// Delete removes a stored conversation
func (s *Service) Delete(ctx context.Context, chatID string) error {
	unlock := s.lock(chatID)
	defer unlock()

	if err := s.history.Delete(ctx, chatID); err != nil {
		return err
	}
	s.logger.Info("chat deleted", zap.String("chat_id", chatID))
	return nil
}

// Ping checks the history store
func (s *Service) Ping(ctx context.Context) error {
	return s.history.Ping(ctx)
}
