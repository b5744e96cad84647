package models

import "time"

// ChatRole is the author of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role    ChatRole `json:"role" binding:"required,oneof=user assistant"`
	Content string   `json:"content" binding:"required,max=4000"`
}

// ChatUsage is the token accounting reported by the LLM provider.
type ChatUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ChatLog records one chat exchange for analytics.
type ChatLog struct {
	ID              string    `db:"id" bson:"_id"`
	UserID          *string   `db:"user_id" bson:"user_id,omitempty"`
	ListingID       *string   `db:"listing_id" bson:"listing_id,omitempty"`
	MessageCount    int       `db:"message_count" bson:"message_count"`
	LastUserMessage string    `db:"last_user_message" bson:"last_user_message"`
	TokensUsed      int64     `db:"tokens_used" bson:"tokens_used"`
	CreatedAt       time.Time `db:"created_at" bson:"created_at"`
}
