package modelkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmModel adapts a gollm.LLM instance to the Model interface. It is the
// one live provider backend; everything else in the module talks to the
// Model abstraction only.
type GollmModel struct {
	provider string
	model    string
	llm      gollm.LLM
}

// GollmOption configures a GollmModel.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	apiKey      string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithAPIKey sets the API key. When empty, gollm reads it from the
// provider's environment variable.
func WithAPIKey(key string) GollmOption {
	return func(c *gollmConfig) { c.apiKey = key }
}

// WithMaxTokens sets the response token budget.
func WithMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) { c.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GollmOption {
	return func(c *gollmConfig) { c.temperature = t }
}

// WithGollmOptions appends raw gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) { c.extraOpts = append(c.extraOpts, opts...) }
}

// NewGollmModel creates a GollmModel for the given provider and model ID.
func NewGollmModel(provider, model string, opts ...GollmOption) (*GollmModel, error) {
	cfg := &gollmConfig{maxTokens: 4096, temperature: 0.7}
	for _, opt := range opts {
		opt(cfg)
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm LLM for provider %s: %w", provider, err)
	}

	return &GollmModel{provider: provider, model: model, llm: llm}, nil
}

// NewGollmModelFromLLM wraps an existing gollm.LLM instance.
func NewGollmModelFromLLM(provider, model string, llm gollm.LLM) *GollmModel {
	return &GollmModel{provider: provider, model: model, llm: llm}
}

// ID returns the model identifier.
func (g *GollmModel) ID() string { return g.model }

// SendRequest translates the request into a gollm prompt and adapts the
// provider response to a chunk stream. Token deltas are forwarded as they
// arrive when the provider supports streaming; tool calls are parsed from
// the completed response and emitted after the text.
func (g *GollmModel) SendRequest(ctx context.Context, req Request) (<-chan Chunk, error) {
	prompt, err := g.translateRequest(req)
	if err != nil {
		return nil, NewTransportError(g.provider, "build request", err)
	}
	if req.Model != "" && req.Model != g.model {
		g.llm.SetOption("model", req.Model)
	}

	ch := make(chan Chunk, 64)

	if !g.llm.SupportsStreaming() {
		go func() {
			defer close(ch)
			text, err := g.llm.Generate(ctx, prompt)
			if err != nil {
				ch <- ErrorChunk(NewTransportError(g.provider, "generate", err))
				return
			}
			g.emitResponse(ctx, ch, text)
		}()
		return ch, nil
	}

	stream, err := g.llm.Stream(ctx, prompt)
	if err != nil {
		return nil, NewTransportError(g.provider, "open stream", err)
	}

	go func() {
		defer close(ch)
		defer stream.Close()

		var full strings.Builder
		sent := 0
		for {
			token, err := stream.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				ch <- ErrorChunk(NewTransportError(g.provider, "stream", err))
				return
			}
			if token == nil {
				continue
			}
			full.WriteString(token.Text)
			// Text that turns out to be embedded tool-call JSON is not
			// forwarded as a delta; it is parsed after the stream ends.
			if !looksLikeToolCallJSON(full.String()) {
				select {
				case ch <- TextChunk(token.Text):
				case <-ctx.Done():
					return
				}
				sent = full.Len()
			}
		}
		calls := parseToolCalls(full.String())
		// A false marker match must not swallow output: whatever was
		// withheld and did not parse into calls goes out as text.
		if len(calls) == 0 && sent < full.Len() {
			select {
			case ch <- TextChunk(full.String()[sent:]):
			case <-ctx.Done():
				return
			}
		}
		for _, call := range calls {
			select {
			case ch <- Chunk{Kind: ChunkToolCall, ToolCall: &call}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// emitResponse splits a complete response into text and tool-call chunks.
func (g *GollmModel) emitResponse(ctx context.Context, ch chan<- Chunk, text string) {
	calls := parseToolCalls(text)
	cleaned := stripToolCallJSON(text, calls)
	if cleaned != "" {
		select {
		case ch <- TextChunk(cleaned):
		case <-ctx.Done():
			return
		}
	}
	for _, call := range calls {
		select {
		case ch <- Chunk{Kind: ChunkToolCall, ToolCall: &call}:
		case <-ctx.Done():
			return
		}
	}
}

// translateRequest converts a Request into a gollm Prompt. gollm takes a
// single prompt string, so prior turns are flattened into labeled context.
func (g *GollmModel) translateRequest(req Request) (*gollm.Prompt, error) {
	var systemPrompt string
	var parts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt += msg.TextContent() + "\n"
		case RoleUser:
			parts = append(parts, msg.TextContent())
		case RoleAssistant:
			if text := msg.TextContent(); text != "" {
				parts = append(parts, "[Assistant]: "+text)
			}
			for _, part := range msg.Content {
				if part.Kind == ContentToolCall && part.ToolCall != nil {
					parts = append(parts, fmt.Sprintf("[Assistant called %s(%s)]",
						part.ToolCall.Name, string(part.ToolCall.Arguments)))
				}
			}
		case RoleTool:
			for _, part := range msg.Content {
				if part.Kind != ContentToolResult || part.ToolResult == nil {
					continue
				}
				var content string
				_ = json.Unmarshal(part.ToolResult.Content, &content)
				if content == "" {
					content = string(part.ToolResult.Content)
				}
				prefix := "[Tool Result]"
				if part.ToolResult.IsError {
					prefix = "[Tool Error]"
				}
				parts = append(parts, prefix+": "+content)
			}
		}
	}

	promptText := strings.Join(parts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	promptOpts := []gollm.PromptOption{}
	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(systemPrompt), gollm.CacheTypeEphemeral))
	}
	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
		promptOpts = append(promptOpts, gollm.WithToolChoice("auto"))
	}

	return gollm.NewPrompt(promptText, promptOpts...), nil
}

var toolCallMarkers = []string{`{"tool_calls"`, `[{"name"`}

func looksLikeToolCallJSON(text string) bool {
	for _, marker := range toolCallMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

type rawToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// parseToolCalls extracts tool calls that gollm returns embedded in the
// response text, either as a bare JSON array of {name, arguments} objects
// or wrapped in a {"tool_calls": [...]} object.
func parseToolCalls(text string) []ToolCallData {
	start := -1
	for _, marker := range toolCallMarkers {
		if idx := strings.Index(text, marker); idx != -1 {
			start = idx
			break
		}
	}
	if start == -1 {
		return nil
	}
	payload := []byte(text[start:])

	var rawCalls []rawToolCall
	if err := json.Unmarshal(payload, &rawCalls); err != nil {
		var wrapper struct {
			ToolCalls []rawToolCall `json:"tool_calls"`
		}
		if err := json.Unmarshal(payload, &wrapper); err != nil {
			return nil
		}
		rawCalls = wrapper.ToolCalls
	}
	if len(rawCalls) == 0 {
		return nil
	}

	calls := make([]ToolCallData, 0, len(rawCalls))
	for _, rc := range rawCalls {
		calls = append(calls, ToolCallData{
			CallID:    "call_" + uuid.New().String()[:8],
			Name:      rc.Name,
			Arguments: rc.Arguments,
		})
	}
	return calls
}

// stripToolCallJSON removes parsed tool-call JSON from the text.
func stripToolCallJSON(text string, calls []ToolCallData) string {
	if len(calls) == 0 {
		return text
	}
	result := text
	for _, marker := range toolCallMarkers {
		if idx := strings.Index(result, marker); idx != -1 {
			result = strings.TrimSpace(result[:idx])
		}
	}
	return result
}
