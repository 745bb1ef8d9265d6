package models

import (
	"regexp"
	"time"

	"github.com/upb/multichat/services/providers"
)

var chatIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ChatRecord is a persisted conversation
type ChatRecord struct {
	ChatID    string              `json:"chat_id"`
	Timestamp time.Time           `json:"timestamp"`
	Provider  string              `json:"provider"` // display name at save time
	Model     string              `json:"model"`
	Persona   string              `json:"persona"`
	Messages  []providers.Message `json:"messages"`
}

// ChatMeta is the listing view of a ChatRecord
type ChatMeta struct {
	ChatID    string    `json:"chat_id"`
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Persona   string    `json:"persona"`
}

// Meta returns the record without its messages
func (r *ChatRecord) Meta() ChatMeta {
	return ChatMeta{
		ChatID:    r.ChatID,
		Timestamp: r.Timestamp,
		Provider:  r.Provider,
		Model:     r.Model,
		Persona:   r.Persona,
	}
}

// ValidChatID reports whether id is safe to use as a storage key. It
// rejects path separators and relative path segments.
func ValidChatID(id string) bool {
	return chatIDPattern.MatchString(id) && id != "." && id != ".."
}
