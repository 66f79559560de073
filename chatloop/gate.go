package chatloop

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// InvocationToken is the opaque correlation handle threaded from the
// top-level request into every tool invocation, so a host-side approval UI
// can link a confirmation prompt back to its originating request. The core
// never inspects its contents.
type InvocationToken string

// ApprovalRequest is what the gate hands to an Approver when a tool
// declares a confirmation step.
type ApprovalRequest struct {
	Tool         string
	CallID       string
	Confirmation Confirmation
}

// Approver obtains external approval for a pending side effect. Approve
// returns false to reject; an error means the approval mechanism itself
// failed, which the gate treats as a rejection.
type Approver interface {
	Approve(ctx context.Context, token InvocationToken, req ApprovalRequest) (bool, error)
}

// ApproverFunc adapts a function to the Approver interface.
type ApproverFunc func(ctx context.Context, token InvocationToken, req ApprovalRequest) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, token InvocationToken, req ApprovalRequest) (bool, error) {
	return f(ctx, token, req)
}

// Gate wraps single tool invocations. It is the only place tool bodies are
// called from, and it guarantees that nothing a tool does escapes as
// anything other than a Failure outcome, whether that is a missing
// registration, a rejected confirmation, a returned error, or a panic.
type Gate struct {
	registry *Registry
	approver Approver
	logger   *zap.Logger
}

// NewGate creates a Gate over a registry. approver may be nil, in which
// case every tool that requires confirmation is rejected.
func NewGate(registry *Registry, approver Approver, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{registry: registry, approver: approver, logger: logger}
}

// Invoke runs one tool call through lookup, confirmation, and execution.
func (g *Gate) Invoke(ctx context.Context, call ToolCall, token InvocationToken) Outcome {
	desc := g.registry.Get(call.Name)
	if desc == nil {
		g.logger.Debug("tool not found", zap.String("tool", call.Name), zap.String("call_id", call.CallID))
		return Failuref("tool not found: %s", call.Name)
	}

	if desc.Confirm != nil {
		confirmation, err := desc.Confirm(call.Input)
		if err != nil {
			return Failuref("confirmation for %s could not be prepared: %v", call.Name, err)
		}
		if confirmation == nil {
			confirmation = &Confirmation{Title: call.Name, Message: "Allow this tool to run?"}
		}
		if g.approver == nil {
			return Failuref("%s requires confirmation but no approval mechanism is available", call.Name)
		}
		approved, err := g.approver.Approve(ctx, token, ApprovalRequest{
			Tool:         call.Name,
			CallID:       call.CallID,
			Confirmation: *confirmation,
		})
		if err != nil {
			return Failuref("confirmation for %s failed: %v", call.Name, err)
		}
		if !approved {
			g.logger.Debug("tool call rejected", zap.String("tool", call.Name), zap.String("call_id", call.CallID))
			return Failuref("the user declined to run %s", call.Name)
		}
	}

	return g.execute(ctx, desc, call)
}

// execute calls the tool body with panic containment.
func (g *Gate) execute(ctx context.Context, desc *ToolDescriptor, call ToolCall) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("tool panicked",
				zap.String("tool", call.Name),
				zap.Any("panic", r))
			outcome = Failuref("tool %s panicked: %v", call.Name, r)
		}
	}()

	result, err := desc.Invoke(ctx, call.Input)
	if err != nil {
		return Failure(fmt.Sprintf("tool %s failed: %v", call.Name, err))
	}
	return result
}
