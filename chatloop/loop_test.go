package chatloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajmitchell/switchboard/modelkit"
)

// scriptedModel returns a canned chunk sequence per round and captures
// every request it receives, so tests can inspect the exact conversation
// state the loop sent before each round.
type scriptedModel struct {
	mu       sync.Mutex
	script   func(round int) []modelkit.Chunk
	requests []modelkit.Request
	sendErr  error
}

func (m *scriptedModel) ID() string { return "scripted" }

func (m *scriptedModel) SendRequest(ctx context.Context, req modelkit.Request) (<-chan modelkit.Chunk, error) {
	m.mu.Lock()
	round := len(m.requests)
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.sendErr != nil {
		return nil, m.sendErr
	}

	chunks := m.script(round)
	ch := make(chan modelkit.Chunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (m *scriptedModel) Requests() []modelkit.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]modelkit.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// bufferSink accumulates streamed text.
type bufferSink struct {
	mu sync.Mutex
	sb strings.Builder
}

func (s *bufferSink) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sb.WriteString(text)
}

func (s *bufferSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sb.String()
}

func approveAll() Approver {
	return ApproverFunc(func(ctx context.Context, token InvocationToken, req ApprovalRequest) (bool, error) {
		return true, nil
	})
}

func rejectAll() Approver {
	return ApproverFunc(func(ctx context.Context, token InvocationToken, req ApprovalRequest) (bool, error) {
		return false, nil
	})
}

// toolResultText extracts the string content of a tool result message.
func toolResultText(t *testing.T, msg modelkit.Message) string {
	t.Helper()
	require.Equal(t, modelkit.RoleTool, msg.Role)
	require.Len(t, msg.Content, 1)
	require.NotNil(t, msg.Content[0].ToolResult)
	var text string
	require.NoError(t, json.Unmarshal(msg.Content[0].ToolResult.Content, &text))
	return text
}

func TestRunTextOnly(t *testing.T) {
	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		return []modelkit.Chunk{
			modelkit.TextChunk("Hello, "),
			modelkit.TextChunk("world."),
		}
	}}
	reg := NewRegistry()
	reg.MustRegister(ToolDescriptor{
		Name:   "probe",
		Invoke: func(ctx context.Context, input json.RawMessage) (Outcome, error) { return SuccessText("ok"), nil },
	})

	loop := New(model, reg, nil)
	defer loop.Close()

	sink := &bufferSink{}
	err := loop.Run(context.Background(), "say hello", sink)
	require.NoError(t, err)

	assert.Equal(t, "Hello, world.", sink.String())

	reqs := model.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "probe", reqs[0].Tools[0].Name)
	require.NotEmpty(t, reqs[0].Messages)
	assert.Equal(t, modelkit.RoleUser, reqs[0].Messages[0].Role)
	assert.Contains(t, reqs[0].Messages[0].TextContent(), "say hello")
}

func TestRunToolCallThenText(t *testing.T) {
	var invoked []string
	reg := NewRegistry()
	reg.MustRegister(ToolDescriptor{
		Name: "echo",
		Invoke: func(ctx context.Context, input json.RawMessage) (Outcome, error) {
			invoked = append(invoked, string(input))
			return SuccessText("pong"), nil
		},
	})

	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		if round == 0 {
			return []modelkit.Chunk{
				modelkit.TextChunk("checking..."),
				modelkit.ToolCallChunk("call_1", "echo", json.RawMessage(`{"msg":"ping"}`)),
			}
		}
		return []modelkit.Chunk{modelkit.TextChunk("done")}
	}}

	loop := New(model, reg, nil)
	defer loop.Close()

	sink := &bufferSink{}
	err := loop.Run(context.Background(), "ping the echo tool", sink)
	require.NoError(t, err)

	require.Equal(t, []string{`{"msg":"ping"}`}, invoked)
	assert.Equal(t, "checking...done", sink.String())

	reqs := model.Requests()
	require.Len(t, reqs, 2)

	// The second round must see the call intent paired with its result.
	msgs := reqs[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, modelkit.RoleUser, msgs[0].Role)

	require.Equal(t, modelkit.RoleAssistant, msgs[1].Role)
	var callParts []modelkit.ContentPart
	for _, p := range msgs[1].Content {
		if p.Kind == modelkit.ContentToolCall {
			callParts = append(callParts, p)
		}
	}
	require.Len(t, callParts, 1)
	assert.Equal(t, "call_1", callParts[0].ToolCall.CallID)
	assert.Equal(t, "echo", callParts[0].ToolCall.Name)

	require.Equal(t, modelkit.RoleTool, msgs[2].Role)
	assert.Equal(t, "call_1", msgs[2].Content[0].ToolResult.CallID)
	assert.False(t, msgs[2].Content[0].ToolResult.IsError)
	assert.Equal(t, "pong", toolResultText(t, msgs[2]))
}

func TestRunUnknownToolBecomesFailureResult(t *testing.T) {
	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		if round == 0 {
			return []modelkit.Chunk{
				modelkit.ToolCallChunk("call_1", "doesNotExist", json.RawMessage(`{}`)),
			}
		}
		return []modelkit.Chunk{modelkit.TextChunk("recovered")}
	}}

	loop := New(model, NewRegistry(), nil)
	defer loop.Close()

	sink := &bufferSink{}
	err := loop.Run(context.Background(), "call something missing", sink)
	require.NoError(t, err)

	reqs := model.Requests()
	require.Len(t, reqs, 2)

	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	require.Equal(t, modelkit.RoleTool, last.Role)
	assert.True(t, last.Content[0].ToolResult.IsError)
	assert.Contains(t, toolResultText(t, last), "tool not found: doesNotExist")
	assert.Equal(t, "recovered", sink.String())
}

func TestRunRoundBudgetExhausted(t *testing.T) {
	var calls int
	reg := NewRegistry()
	reg.MustRegister(ToolDescriptor{
		Name: "again",
		Invoke: func(ctx context.Context, input json.RawMessage) (Outcome, error) {
			calls++
			return SuccessText("more"), nil
		},
	})

	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		return []modelkit.Chunk{
			modelkit.ToolCallChunk(fmt.Sprintf("call_%d", round), "again", json.RawMessage(`{}`)),
		}
	}}

	loop := New(model, reg, nil)
	defer loop.Close()

	err := loop.Run(context.Background(), "never stop", &bufferSink{})
	require.NoError(t, err)

	assert.Len(t, model.Requests(), MaxRounds)
	assert.Equal(t, MaxRounds, calls)
}

func TestRunMaxRoundsClamped(t *testing.T) {
	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		return []modelkit.Chunk{
			modelkit.ToolCallChunk(fmt.Sprintf("call_%d", round), "missing", json.RawMessage(`{}`)),
		}
	}}

	loop := New(model, NewRegistry(), nil, WithMaxRounds(100))
	defer loop.Close()

	require.NoError(t, loop.Run(context.Background(), "spin", &bufferSink{}))
	assert.Len(t, model.Requests(), MaxRounds)
}

func TestRunLoweredRoundBudget(t *testing.T) {
	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		return []modelkit.Chunk{
			modelkit.ToolCallChunk(fmt.Sprintf("call_%d", round), "missing", json.RawMessage(`{}`)),
		}
	}}

	loop := New(model, NewRegistry(), nil, WithMaxRounds(2))
	defer loop.Close()

	require.NoError(t, loop.Run(context.Background(), "spin", &bufferSink{}))
	assert.Len(t, model.Requests(), 2)
}

func TestRunRejectedConfirmationSkipsToolBody(t *testing.T) {
	var invoked bool
	reg := NewRegistry()
	reg.MustRegister(ToolDescriptor{
		Name: "editFile",
		Confirm: func(input json.RawMessage) (*Confirmation, error) {
			return &Confirmation{Title: "Edit main.go", Message: "Apply this edit?"}, nil
		},
		Invoke: func(ctx context.Context, input json.RawMessage) (Outcome, error) {
			invoked = true
			return SuccessText("edited"), nil
		},
	})

	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		if round == 0 {
			return []modelkit.Chunk{
				modelkit.ToolCallChunk("call_1", "editFile", json.RawMessage(`{}`)),
			}
		}
		return []modelkit.Chunk{modelkit.TextChunk("understood")}
	}}

	loop := New(model, reg, rejectAll())
	defer loop.Close()

	require.NoError(t, loop.Run(context.Background(), "edit something", &bufferSink{}))

	assert.False(t, invoked)

	reqs := model.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.True(t, last.Content[0].ToolResult.IsError)
	assert.Contains(t, toolResultText(t, last), "declined")
}

func TestRunToolPanicContained(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(ToolDescriptor{
		Name: "boom",
		Invoke: func(ctx context.Context, input json.RawMessage) (Outcome, error) {
			panic("kaboom")
		},
	})

	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		if round == 0 {
			return []modelkit.Chunk{
				modelkit.ToolCallChunk("call_1", "boom", json.RawMessage(`{}`)),
			}
		}
		return []modelkit.Chunk{modelkit.TextChunk("survived")}
	}}

	loop := New(model, reg, nil)
	defer loop.Close()

	sink := &bufferSink{}
	require.NoError(t, loop.Run(context.Background(), "trigger the panic", sink))

	reqs := model.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.True(t, last.Content[0].ToolResult.IsError)
	assert.Contains(t, toolResultText(t, last), "panicked")
	assert.Equal(t, "survived", sink.String())
}

func TestRunTransportErrorIsFatal(t *testing.T) {
	wantErr := modelkit.NewTransportError("openai", "service unavailable", nil)
	model := &scriptedModel{sendErr: wantErr, script: func(round int) []modelkit.Chunk { return nil }}

	loop := New(model, NewRegistry(), nil)
	defer loop.Close()

	sink := &bufferSink{}
	err := loop.Run(context.Background(), "hi", sink)
	require.Error(t, err)
	assert.True(t, modelkit.IsTransportError(err))

	// The failure is reported exactly once through the sink.
	assert.Equal(t, 1, strings.Count(sink.String(), "The model request failed"))
}

func TestRunStreamErrorIsFatal(t *testing.T) {
	wantErr := modelkit.NewTransportError("anthropic", "rate limited", nil)
	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		return []modelkit.Chunk{
			modelkit.TextChunk("partial "),
			modelkit.ErrorChunk(wantErr),
		}
	}}

	loop := New(model, NewRegistry(), nil)
	defer loop.Close()

	sink := &bufferSink{}
	err := loop.Run(context.Background(), "hi", sink)
	require.Error(t, err)
	assert.True(t, modelkit.IsTransportError(err))

	// Text streamed before the failure stands.
	assert.Contains(t, sink.String(), "partial ")
}

func TestRunCancelledBeforeFirstRound(t *testing.T) {
	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		return []modelkit.Chunk{modelkit.TextChunk("never sent")}
	}}

	loop := New(model, NewRegistry(), nil)
	defer loop.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &bufferSink{}
	require.NoError(t, loop.Run(ctx, "hi", sink))
	assert.Empty(t, model.Requests())
	assert.Empty(t, sink.String())
}

func TestRunCancelledDuringToolExecution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	reg := NewRegistry()
	reg.MustRegister(ToolDescriptor{
		Name: "interrupt",
		Invoke: func(ctx context.Context, input json.RawMessage) (Outcome, error) {
			cancel()
			return SuccessText("done anyway"), nil
		},
	})

	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		return []modelkit.Chunk{
			modelkit.ToolCallChunk(fmt.Sprintf("call_%d", round), "interrupt", json.RawMessage(`{}`)),
		}
	}}

	loop := New(model, reg, nil)
	defer loop.Close()

	// Cancellation is cooperative and not an error; no further round starts.
	require.NoError(t, loop.Run(ctx, "hi", &bufferSink{}))
	assert.Len(t, model.Requests(), 1)
}

// cancellingSink cancels its context after the first fragment it receives.
type cancellingSink struct {
	bufferSink
	cancel context.CancelFunc
	once   sync.Once
}

func (s *cancellingSink) Append(text string) {
	s.bufferSink.Append(text)
	s.once.Do(s.cancel)
}

func TestRunCancelledMidStream(t *testing.T) {
	var invoked bool
	reg := NewRegistry()
	reg.MustRegister(ToolDescriptor{
		Name: "trap",
		Invoke: func(ctx context.Context, input json.RawMessage) (Outcome, error) {
			invoked = true
			return SuccessText("ran"), nil
		},
	})

	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		return []modelkit.Chunk{
			modelkit.TextChunk("early "),
			modelkit.TextChunk("late"),
			modelkit.ToolCallChunk("call_1", "trap", json.RawMessage(`{}`)),
		}
	}}

	loop := New(model, reg, nil)
	defer loop.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &cancellingSink{cancel: cancel}

	require.NoError(t, loop.Run(ctx, "stream then stop", sink))

	// Output already forwarded stands; nothing after the cancellation is.
	assert.Equal(t, "early ", sink.String())
	// The round's tool call is discarded, not executed.
	assert.False(t, invoked)
	assert.Len(t, model.Requests(), 1)
}

func TestRunTwoCallsOneRound(t *testing.T) {
	var order []string
	reg := NewRegistry()
	for _, name := range []string{"first", "second"} {
		name := name
		reg.MustRegister(ToolDescriptor{
			Name: name,
			Invoke: func(ctx context.Context, input json.RawMessage) (Outcome, error) {
				order = append(order, name)
				return SuccessText(name + " ok"), nil
			},
		})
	}

	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		if round == 0 {
			return []modelkit.Chunk{
				modelkit.ToolCallChunk("call_a", "first", json.RawMessage(`{}`)),
				modelkit.ToolCallChunk("call_b", "second", json.RawMessage(`{}`)),
			}
		}
		return []modelkit.Chunk{modelkit.TextChunk("both done")}
	}}

	loop := New(model, reg, nil)
	defer loop.Close()

	require.NoError(t, loop.Run(context.Background(), "do both", &bufferSink{}))

	// Sequential execution in emission order.
	assert.Equal(t, []string{"first", "second"}, order)

	reqs := model.Requests()
	require.Len(t, reqs, 2)
	msgs := reqs[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "call_a", msgs[2].Content[0].ToolResult.CallID)
	assert.Equal(t, "call_b", msgs[3].Content[0].ToolResult.CallID)
}

func TestRunApprovedConfirmationRunsTool(t *testing.T) {
	var gotReq ApprovalRequest
	approver := ApproverFunc(func(ctx context.Context, token InvocationToken, req ApprovalRequest) (bool, error) {
		gotReq = req
		return true, nil
	})

	var invoked bool
	reg := NewRegistry()
	reg.MustRegister(ToolDescriptor{
		Name: "writeFile",
		Confirm: func(input json.RawMessage) (*Confirmation, error) {
			return &Confirmation{Title: "Write notes.txt", Message: "Write this file?", Preview: "+hello"}, nil
		},
		Invoke: func(ctx context.Context, input json.RawMessage) (Outcome, error) {
			invoked = true
			return SuccessText("written"), nil
		},
	})

	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		if round == 0 {
			return []modelkit.Chunk{
				modelkit.ToolCallChunk("call_1", "writeFile", json.RawMessage(`{}`)),
			}
		}
		return []modelkit.Chunk{modelkit.TextChunk("saved")}
	}}

	loop := New(model, reg, approver)
	defer loop.Close()

	require.NoError(t, loop.Run(context.Background(), "write the file", &bufferSink{}))

	assert.True(t, invoked)
	assert.Equal(t, "writeFile", gotReq.Tool)
	assert.Equal(t, "call_1", gotReq.CallID)
	assert.Equal(t, "+hello", gotReq.Confirmation.Preview)
}

func TestRunEmitsLifecycleEvents(t *testing.T) {
	model := &scriptedModel{script: func(round int) []modelkit.Chunk {
		return []modelkit.Chunk{modelkit.TextChunk("hi")}
	}}

	loop := New(model, NewRegistry(), nil)

	require.NoError(t, loop.Run(context.Background(), "hello", &bufferSink{}))
	loop.Close()

	var kinds []EventKind
	for ev := range loop.Events() {
		kinds = append(kinds, ev.Kind)
	}
	assert.Contains(t, kinds, EventRunStart)
	assert.Contains(t, kinds, EventRoundStart)
	assert.Contains(t, kinds, EventRunEnd)
}
