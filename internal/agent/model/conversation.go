package model

import (
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Role is the speaker of a conversational message.
type Role = schema.RoleType

const (
	RoleUser      Role = schema.User
	RoleAssistant Role = schema.Assistant
	RoleSystem    Role = schema.System
)

// ValidRole reports whether r may be stored in conversational memory.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one entry of a conversation. It is never mutated after creation.
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ToSchema converts the message into the eino message used for model calls.
func (m Message) ToSchema() *schema.Message {
	return &schema.Message{Role: m.Role, Content: m.Content}
}

// ToSchemaMessages converts a history slice for model calls.
func ToSchemaMessages(msgs []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ToSchema())
	}
	return out
}

// ConversationKey identifies one conversation of one user.
type ConversationKey struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

// String returns the storage key for the conversation.
func (k ConversationKey) String() string {
	return fmt.Sprintf("conversation:%s:%s", k.UserID, k.ConversationID)
}

// Validate rejects keys with missing parts.
func (k ConversationKey) Validate() error {
	if k.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if k.ConversationID == "" {
		return fmt.Errorf("conversation id is required")
	}
	return nil
}

// ConversationSummary describes a stored conversation without returning it.
type ConversationSummary struct {
	Key            ConversationKey `json:"key"`
	MessageCount   int             `json:"message_count"`
	UserCount      int             `json:"user_count"`
	AssistantCount int             `json:"assistant_count"`
	SystemCount    int             `json:"system_count"`
	FirstMessage   string          `json:"first_message,omitempty"`
	LastMessage    string          `json:"last_message,omitempty"`
	StartedAt      time.Time       `json:"started_at,omitempty"`
	LastActiveAt   time.Time       `json:"last_active_at,omitempty"`
	TotalChars     int             `json:"total_chars"`
	TokenEstimate  int             `json:"token_estimate"`
}
