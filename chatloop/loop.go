package chatloop

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajmitchell/switchboard/modelkit"
)

// MaxRounds is the hard ceiling on model round-trips per run. A run may be
// configured with a smaller budget but never a larger one.
const MaxRounds = 15

// DefaultSystemInstruction is embedded ahead of the user prompt in the
// conversation's opening message.
const DefaultSystemInstruction = "You are a coding assistant working inside the user's workspace. " +
	"Use the available tools to read and modify files, run commands, and inspect the workspace. " +
	"Call tools when you need information or need to make changes; respond with plain text when you are done."

// Loop drives bounded multi-round conversations between a model and the
// tool registry. A Loop is created per top-level request; its conversation
// state is not shared and is discarded when Run returns.
type Loop struct {
	model             modelkit.Model
	registry          *Registry
	gate              *Gate
	emitter           *EventEmitter
	logger            *zap.Logger
	maxRounds         int
	systemInstruction string
	token             InvocationToken
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// WithMaxRounds lowers the round budget for this loop. Values outside
// [1, MaxRounds] are clamped.
func WithMaxRounds(n int) Option {
	return func(l *Loop) { l.maxRounds = n }
}

// WithSystemInstruction replaces the default system-level instruction.
func WithSystemInstruction(instruction string) Option {
	return func(l *Loop) { l.systemInstruction = instruction }
}

// WithInvocationToken sets the opaque token threaded into every tool
// confirmation. When unset, a fresh token is generated per run.
func WithInvocationToken(token InvocationToken) Option {
	return func(l *Loop) { l.token = token }
}

// New creates a Loop over a model, a tool registry, and an approver for
// confirmation-gated tools.
func New(model modelkit.Model, registry *Registry, approver Approver, opts ...Option) *Loop {
	l := &Loop{
		model:             model,
		registry:          registry,
		logger:            zap.NewNop(),
		maxRounds:         MaxRounds,
		systemInstruction: DefaultSystemInstruction,
		emitter:           NewEventEmitter(uuid.New().String(), 256),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.maxRounds < 1 {
		l.maxRounds = 1
	}
	if l.maxRounds > MaxRounds {
		l.maxRounds = MaxRounds
	}
	l.gate = NewGate(registry, approver, l.logger)
	return l
}

// Events returns the loop's event channel for host integration.
func (l *Loop) Events() <-chan Event {
	return l.emitter.Events()
}

// Close releases the event channel. Call after the final Run.
func (l *Loop) Close() {
	l.emitter.Close()
}

// Run processes one prompt to completion. Text output is streamed to sink
// as the model produces it. The returned error is non-nil only for model
// transport failures (and malformed model responses); tool-level failures
// and cancellation are not errors.
func (l *Loop) Run(ctx context.Context, prompt string, sink OutputSink) error {
	token := l.token
	if token == "" {
		token = InvocationToken(uuid.New().String())
	}

	conv := NewConversation()
	conv.AppendUser(l.systemInstruction + "\n\n" + prompt)

	l.emitter.Emit(EventRunStart, map[string]any{"model": l.model.ID()})
	l.logger.Debug("run start",
		zap.String("model", l.model.ID()),
		zap.Int("tools", l.registry.Count()),
		zap.Int("max_rounds", l.maxRounds))

	exhausted := true
	for round := 0; round < l.maxRounds; round++ {
		if ctx.Err() != nil {
			l.finish("cancelled", round)
			return nil
		}

		l.emitter.Emit(EventRoundStart, map[string]any{"round": round})

		stream, err := l.model.SendRequest(ctx, modelkit.Request{
			Model:    l.model.ID(),
			Messages: conv.ModelMessages(),
			Tools:    l.registry.Definitions(),
		})
		if err != nil {
			return l.fatal(sink, round, err)
		}

		text, calls, cancelled, streamErr := l.consume(ctx, stream, sink)
		if streamErr != nil {
			return l.fatal(sink, round, streamErr)
		}
		if cancelled {
			l.finish("cancelled", round)
			return nil
		}

		if err := conv.AppendAssistant(text, calls); err != nil {
			return l.fatal(sink, round, fmt.Errorf("malformed model response: %w", err))
		}

		// Zero tool calls means the model considers the task complete.
		if len(calls) == 0 {
			exhausted = false
			break
		}

		for _, call := range calls {
			if ctx.Err() != nil {
				l.finish("cancelled", round)
				return nil
			}
			l.emitter.Emit(EventToolCallStart, map[string]any{
				"tool": call.Name, "call_id": call.CallID,
			})
			outcome := l.gate.Invoke(ctx, call, token)
			if err := conv.AppendToolResult(call.CallID, outcome); err != nil {
				return l.fatal(sink, round, fmt.Errorf("malformed model response: %w", err))
			}
			l.emitter.Emit(EventToolCallEnd, map[string]any{
				"tool": call.Name, "call_id": call.CallID, "failed": outcome.Failed,
			})
		}
	}

	if exhausted {
		// Budget exhaustion terminates silently; streamed output stands.
		l.logger.Info("round budget exhausted", zap.Int("max_rounds", l.maxRounds))
		l.emitter.Emit(EventRoundBudget, map[string]any{"max_rounds": l.maxRounds})
	}
	l.finish("completed", conv.Len())
	return nil
}

// consume drains one response stream, forwarding text to the sink as it
// arrives and collecting tool calls in emission order. On cancellation it
// stops consuming; already-forwarded output stands and no tool calls from
// the interrupted round are returned.
func (l *Loop) consume(ctx context.Context, stream <-chan modelkit.Chunk, sink OutputSink) (string, []ToolCall, bool, error) {
	var text strings.Builder
	var calls []ToolCall

	for chunk := range stream {
		if ctx.Err() != nil {
			return "", nil, true, nil
		}
		switch chunk.Kind {
		case modelkit.ChunkText:
			sink.Append(chunk.Text)
			text.WriteString(chunk.Text)
		case modelkit.ChunkToolCall:
			calls = append(calls, ToolCall{
				CallID: chunk.ToolCall.CallID,
				Name:   chunk.ToolCall.Name,
				Input:  chunk.ToolCall.Arguments,
			})
		case modelkit.ChunkError:
			return "", nil, false, chunk.Err
		}
	}

	return text.String(), calls, false, nil
}

// fatal reports a transport-level failure once to the sink and ends the run.
func (l *Loop) fatal(sink OutputSink, round int, err error) error {
	l.logger.Error("model request failed", zap.Int("round", round), zap.Error(err))
	sink.Append(fmt.Sprintf("\n\nThe model request failed: %v\n", err))
	l.emitter.Emit(EventRunError, map[string]any{"round": round, "error": err.Error()})
	return err
}

func (l *Loop) finish(reason string, detail int) {
	l.logger.Debug("run end", zap.String("reason", reason), zap.Int("detail", detail))
	l.emitter.Emit(EventRunEnd, map[string]any{"reason": reason})
}
