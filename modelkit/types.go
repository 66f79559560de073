package modelkit

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentKind is the discriminator tag for ContentPart.
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentToolCall   ContentKind = "tool_call"
	ContentToolResult ContentKind = "tool_result"
)

// ToolCallData represents a model-initiated tool invocation.
type ToolCallData struct {
	CallID    string          `json:"call_id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResultData holds the result of a tool execution.
type ToolResultData struct {
	CallID  string          `json:"call_id"`
	Content json.RawMessage `json:"content"`
	IsError bool            `json:"is_error"`
}

// ContentPart is a tagged union representing one part of a message.
type ContentPart struct {
	Kind       ContentKind     `json:"kind"`
	Text       string          `json:"text,omitempty"`
	ToolCall   *ToolCallData   `json:"tool_call,omitempty"`
	ToolResult *ToolResultData `json:"tool_result,omitempty"`
}

// TextPart creates a text ContentPart.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: ContentText, Text: text}
}

// ToolCallPart creates a tool call ContentPart.
func ToolCallPart(callID, name string, args json.RawMessage) ContentPart {
	return ContentPart{
		Kind:     ContentToolCall,
		ToolCall: &ToolCallData{CallID: callID, Name: name, Arguments: args},
	}
}

// ToolResultPart creates a tool result ContentPart.
func ToolResultPart(callID string, content json.RawMessage, isError bool) ContentPart {
	return ContentPart{
		Kind:       ContentToolResult,
		ToolResult: &ToolResultData{CallID: callID, Content: content, IsError: isError},
	}
}

// Message is the fundamental unit of conversation sent to a Model.
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// TextContent returns the concatenation of all text content parts.
func (m Message) TextContent() string {
	var sb strings.Builder
	for _, part := range m.Content {
		if part.Kind == ContentText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{TextPart(text)}}
}

// UserMessage creates a user Message with text content.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{TextPart(text)}}
}

// AssistantMessage creates an assistant Message with text content.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{TextPart(text)}}
}

// ToolResultMessage creates a tool result Message carrying string content.
func ToolResultMessage(callID string, content string, isError bool) Message {
	raw, _ := json.Marshal(content)
	return Message{
		Role:    RoleTool,
		Content: []ContentPart{ToolResultPart(callID, raw, isError)},
	}
}

// ToolDefinition is the serializable description of a tool offered to the
// model: a globally unique name plus a JSON Schema for its arguments.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the input to Model.SendRequest.
type Request struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// ChunkKind identifies the kind of response chunk.
type ChunkKind string

const (
	// ChunkText carries a text fragment to be forwarded to the output sink
	// as soon as it arrives.
	ChunkText ChunkKind = "text"
	// ChunkToolCall carries a tool-call request emitted by the model.
	ChunkToolCall ChunkKind = "tool_call"
	// ChunkError terminates the stream with a transport error. No further
	// chunks follow it.
	ChunkError ChunkKind = "error"
)

// Chunk is a single element of a model response stream.
type Chunk struct {
	Kind     ChunkKind
	Text     string
	ToolCall *ToolCallData
	Err      error
}

// TextChunk creates a text Chunk.
func TextChunk(text string) Chunk {
	return Chunk{Kind: ChunkText, Text: text}
}

// ToolCallChunk creates a tool-call Chunk.
func ToolCallChunk(callID, name string, args json.RawMessage) Chunk {
	return Chunk{
		Kind:     ChunkToolCall,
		ToolCall: &ToolCallData{CallID: callID, Name: name, Arguments: args},
	}
}

// ErrorChunk creates a stream-terminating error Chunk.
func ErrorChunk(err error) Chunk {
	return Chunk{Kind: ChunkError, Err: err}
}
