package chatloop

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ajmitchell/switchboard/modelkit"
)

// InvokeFunc executes a tool body. Returned errors are converted to Failure
// outcomes at the gate boundary; tools may also return a Failure outcome
// directly with a nil error.
type InvokeFunc func(ctx context.Context, input json.RawMessage) (Outcome, error)

// ConfirmFunc prepares a confirmation request for a tool invocation. A nil
// ConfirmFunc on a descriptor means the tool runs without approval.
type ConfirmFunc func(input json.RawMessage) (*Confirmation, error)

// Confirmation describes a pending side effect for external approval.
type Confirmation struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	// Preview is an optional human-readable rendering of the side effect,
	// e.g. a unified diff of a proposed file edit.
	Preview string `json:"preview,omitempty"`
}

// ToolDescriptor describes one registered tool. Descriptors are immutable
// once registered; the registry lives for the process lifetime.
type ToolDescriptor struct {
	Name        string
	Description string
	// Schema is a JSON Schema describing the accepted input.
	Schema  map[string]any
	Confirm ConfirmFunc
	Invoke  InvokeFunc
}

// Registry is an ordered mapping from tool name to descriptor.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]*ToolDescriptor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*ToolDescriptor)}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(desc ToolDescriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("tool descriptor has no name")
	}
	if desc.Invoke == nil {
		return fmt.Errorf("tool %q has no invoke function", desc.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("tool %q is already registered", desc.Name)
	}
	r.tools[desc.Name] = &desc
	r.order = append(r.order, desc.Name)
	return nil
}

// MustRegister registers a tool and panics on error. For use at startup
// with statically known descriptors.
func (r *Registry) MustRegister(desc ToolDescriptor) {
	if err := r.Register(desc); err != nil {
		panic(err)
	}
}

// Get returns a registered tool by name, or nil if not found.
func (r *Registry) Get(name string) *ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns tool definitions in registration order, in the shape
// sent to the model.
func (r *Registry) Definitions() []modelkit.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]modelkit.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, modelkit.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Schema,
		})
	}
	return defs
}
