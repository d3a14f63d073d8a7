package model

// ChatMessage is one turn of a chat conversation as sent by the client.
// Bounds: at most 50 messages per request, content at most 5000 runes.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

const (
	MaxChatMessages      = 50
	MaxChatContentLength = 5000
)
