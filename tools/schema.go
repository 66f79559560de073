package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// schemaFor reflects a JSON Schema from an argument struct. Descriptions
// and required markers come from `json` and `jsonschema` struct tags.
func schemaFor(v any) map[string]any {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(v)

	raw, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("reflect schema for %T: %v", v, err))
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("reflect schema for %T: %v", v, err))
	}
	// The loop sends bare parameter objects; the draft URI is noise there.
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

// decodeArgs unmarshals tool input into a typed argument struct.
func decodeArgs(input json.RawMessage, v any) error {
	if len(input) == 0 {
		return fmt.Errorf("missing arguments")
	}
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
