package chatloop

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ajmitchell/switchboard/modelkit"
)

// MessageKind discriminates between message variants.
type MessageKind string

const (
	KindUser       MessageKind = "user"
	KindAssistant  MessageKind = "assistant"
	KindToolResult MessageKind = "tool_result"
)

// ToolCall is a model-issued request to invoke a named tool. Each call is
// consumed exactly once by the loop.
type ToolCall struct {
	CallID string          `json:"call_id"`
	Name   string          `json:"name"`
	Input  json.RawMessage `json:"input"`
}

// Message is a single entry in the conversation log.
type Message struct {
	Kind       MessageKind        `json:"kind"`
	Timestamp  time.Time          `json:"timestamp"`
	User       *UserMessage       `json:"user,omitempty"`
	Assistant  *AssistantMessage  `json:"assistant,omitempty"`
	ToolResult *ToolResultMessage `json:"tool_result,omitempty"`
}

// UserMessage holds user input.
type UserMessage struct {
	Content string `json:"content"`
}

// AssistantMessage holds one round's model output: streamed text plus any
// tool calls the model issued. Call intents stay in the log so later rounds
// see them paired with their results.
type AssistantMessage struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolResultMessage holds the outcome of one processed tool call.
type ToolResultMessage struct {
	CallID  string        `json:"call_id"`
	Content []ContentPart `json:"content"`
	IsError bool          `json:"is_error"`
}

// Conversation is the append-only message log for one top-level request.
// Only the loop mutates it; it is created fresh per run and discarded when
// the run completes.
//
// Append invariants: a tool result's call ID must match a tool call from
// the most recent assistant message, and no call ID receives two results.
type Conversation struct {
	messages []Message
	pending  map[string]bool
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{pending: make(map[string]bool)}
}

// AppendUser appends a user message.
func (c *Conversation) AppendUser(content string) {
	c.messages = append(c.messages, Message{
		Kind:      KindUser,
		Timestamp: time.Now(),
		User:      &UserMessage{Content: content},
	})
}

// AppendAssistant appends an assistant message and registers its tool calls
// as the set awaiting results.
func (c *Conversation) AppendAssistant(text string, calls []ToolCall) error {
	for _, call := range calls {
		if call.CallID == "" {
			return fmt.Errorf("tool call for %q has no call ID", call.Name)
		}
		if c.pending[call.CallID] {
			return fmt.Errorf("duplicate tool call ID %q", call.CallID)
		}
	}
	c.messages = append(c.messages, Message{
		Kind:      KindAssistant,
		Timestamp: time.Now(),
		Assistant: &AssistantMessage{Text: text, ToolCalls: calls},
	})
	for _, call := range calls {
		c.pending[call.CallID] = true
	}
	return nil
}

// AppendToolResult appends exactly one result for a pending call ID.
func (c *Conversation) AppendToolResult(callID string, outcome Outcome) error {
	if !c.pending[callID] {
		return fmt.Errorf("tool result for unknown or already answered call ID %q", callID)
	}
	delete(c.pending, callID)

	content := outcome.Content
	if outcome.Failed {
		content = []ContentPart{TextContent(outcome.Message)}
	}
	c.messages = append(c.messages, Message{
		Kind:      KindToolResult,
		Timestamp: time.Now(),
		ToolResult: &ToolResultMessage{
			CallID:  callID,
			Content: content,
			IsError: outcome.Failed,
		},
	})
	return nil
}

// PendingCalls returns the number of tool calls still awaiting a result.
func (c *Conversation) PendingCalls() int {
	return len(c.pending)
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the log.
func (c *Conversation) Len() int { return len(c.messages) }

// ModelMessages converts the log into the wire shape a Model consumes.
func (c *Conversation) ModelMessages() []modelkit.Message {
	var out []modelkit.Message
	for _, msg := range c.messages {
		switch msg.Kind {
		case KindUser:
			out = append(out, modelkit.UserMessage(msg.User.Content))
		case KindAssistant:
			m := modelkit.AssistantMessage(msg.Assistant.Text)
			for _, call := range msg.Assistant.ToolCalls {
				m.Content = append(m.Content,
					modelkit.ToolCallPart(call.CallID, call.Name, call.Input))
			}
			out = append(out, m)
		case KindToolResult:
			out = append(out, modelkit.ToolResultMessage(
				msg.ToolResult.CallID,
				flattenContent(msg.ToolResult.Content),
				msg.ToolResult.IsError,
			))
		}
	}
	return out
}
