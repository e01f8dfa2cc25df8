package domain

// ChatMessage is the provider-agnostic chat message shape used by the
// usecases and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one prior exchange in a follow-up conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest asks for a reply grounded in an earlier reading. History is
// ordered oldest first.
type ChatRequest struct {
	Message     string     `json:"message"`
	Reading     *Reading   `json:"reading"`
	ChatHistory []ChatTurn `json:"chatHistory"`
}
