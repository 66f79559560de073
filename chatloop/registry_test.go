package chatloop

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, input json.RawMessage) (Outcome, error) {
	return SuccessText("ok"), nil
}

func TestRegistryRegisterValidation(t *testing.T) {
	reg := NewRegistry()

	require.Error(t, reg.Register(ToolDescriptor{Invoke: noop}))
	require.Error(t, reg.Register(ToolDescriptor{Name: "noInvoke"}))

	require.NoError(t, reg.Register(ToolDescriptor{Name: "a", Invoke: noop}))
	err := reg.Register(ToolDescriptor{Name: "a", Invoke: noop})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	reg := NewRegistry()
	schema := map[string]any{"type": "object"}
	for _, name := range []string{"zeta", "alpha", "mid"} {
		reg.MustRegister(ToolDescriptor{Name: name, Description: "d:" + name, Schema: schema, Invoke: noop})
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, reg.Names())
	assert.Equal(t, 3, reg.Count())

	defs := reg.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "zeta", defs[0].Name)
	assert.Equal(t, "d:zeta", defs[0].Description)
	assert.Equal(t, schema, defs[0].Parameters)
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(ToolDescriptor{Name: "present", Invoke: noop})

	assert.NotNil(t, reg.Get("present"))
	assert.Nil(t, reg.Get("absent"))
}
