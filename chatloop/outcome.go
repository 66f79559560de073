package chatloop

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PartKind discriminates tool result content parts.
type PartKind string

const (
	PartText PartKind = "text"
	PartData PartKind = "data"
)

// ContentPart is one element of a tool's result content. Tools return an
// ordered sequence of plain text and structured parts; the loop and gate
// pass them through without interpreting or truncating them.
type ContentPart struct {
	Kind PartKind        `json:"kind"`
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// TextContent creates a text ContentPart.
func TextContent(text string) ContentPart {
	return ContentPart{Kind: PartText, Text: text}
}

// DataContent creates a structured ContentPart.
func DataContent(data json.RawMessage) ContentPart {
	return ContentPart{Kind: PartData, Data: data}
}

// Outcome is the result of one tool invocation: either success content or
// a failure message. Failures are data, not errors; they travel back to
// the model as an error-flagged tool result and never abort a round.
type Outcome struct {
	Failed  bool          `json:"failed"`
	Message string        `json:"message,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
}

// Success creates a successful Outcome from content parts.
func Success(parts ...ContentPart) Outcome {
	return Outcome{Content: parts}
}

// SuccessText creates a successful Outcome with a single text part.
func SuccessText(text string) Outcome {
	return Outcome{Content: []ContentPart{TextContent(text)}}
}

// Failure creates a failed Outcome.
func Failure(message string) Outcome {
	return Outcome{Failed: true, Message: message}
}

// Failuref creates a failed Outcome with a formatted message.
func Failuref(format string, args ...any) Outcome {
	return Outcome{Failed: true, Message: fmt.Sprintf(format, args...)}
}

// Text returns the outcome's failure message or its concatenated text parts.
func (o Outcome) Text() string {
	if o.Failed {
		return o.Message
	}
	return flattenContent(o.Content)
}

func flattenContent(parts []ContentPart) string {
	var sb strings.Builder
	for _, part := range parts {
		switch part.Kind {
		case PartText:
			sb.WriteString(part.Text)
		case PartData:
			sb.Write(part.Data)
		}
	}
	return sb.String()
}
