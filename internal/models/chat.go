package models

// ChatRole is the author of a conversation turn.
type ChatRole string

// Chat roles accepted from clients. System instructions are built server-side.
const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    ChatRole `json:"role" validate:"required,oneof=user assistant"`
	Content string   `json:"content" validate:"max=20000,no_null_bytes"`
}

// UserContext describes the person asking, for prompt personalization.
type UserContext struct {
	Name string `json:"name" validate:"max=255,no_null_bytes"`
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages" validate:"required,min=1,max=100,dive"`
	TenantID    *string       `json:"tenantId,omitempty" validate:"omitempty,max=255,no_null_bytes"` //nolint:tagliatelle // API contract
	UserContext UserContext   `json:"userContext"`                                                   //nolint:tagliatelle // API contract
}

// ChatResponse is the assistant turn returned to clients. Error carries the failure
// category when Content explains a failure instead of answering.
type ChatResponse struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
	Error   string   `json:"error,omitempty"`
}

// GenerationRequest is a provider-neutral text generation call.
type GenerationRequest struct {
	System      string
	Messages    []ChatMessage
	Temperature float64
}
