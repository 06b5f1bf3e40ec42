package llm

// TaskType steers routing: callers say what kind of work this is, never
// which model to use.
type TaskType string

const (
	TaskFastGeneration   TaskType = "fast_generation"
	TaskComplexReasoning TaskType = "complex_reasoning"
	TaskHighQuality      TaskType = "high_quality"
	TaskAnalysis         TaskType = "analysis"
	TaskDrafting         TaskType = "drafting"
	TaskRefinement       TaskType = "refinement"
	TaskCreative         TaskType = "creative"
	TaskStructuredOutput TaskType = "structured_output"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a completion request. MaxTokens 0 lets the provider decide.
type Request struct {
	TaskType    TaskType  `json:"task_type"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Image is an inline image for multimodal completion.
type Image struct {
	MIMEType string
	Data     []byte
}

// Response is a completed generation.
type Response struct {
	Content  string `json:"content"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}
