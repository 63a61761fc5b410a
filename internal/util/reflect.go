package util

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ReflectSchema derives a JSON schema map from the Go type T using struct
// tags.
//
// Supported tags:
//   - json:"name"                  - property name
//   - json:",omitempty"            - keeps the property but omits it from output
//   - jsonschema:"required"        - explicitly mark as required
//   - jsonschema:"description=..." - property description
//   - jsonschema:"enum=a|b"        - allowed values
//   - jsonschema:"minimum=N"       - numeric constraints
//
// The schema is fully inlined (no $ref) and stripped of $schema / $id so it
// can be handed to LLM providers directly.
func ReflectSchema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		// Use jsonschema tags to determine required fields.
		RequiredFromJSONSchemaTags: true,
		// Inline the root struct instead of wrapping it in $defs.
		ExpandedStruct: true,
		// Do not emit $ref pointers for nested definitions.
		DoNotReference: true,
	}

	var zero T
	schema := reflector.Reflect(&zero)

	m, err := schemaToMap(schema)
	if err != nil {
		return nil, fmt.Errorf("convert schema to map: %w", err)
	}
	return m, nil
}

// schemaToMap converts a jsonschema.Schema to map[string]any by round-
// tripping through JSON, which normalizes all internal schema types.
func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	// Not needed for LLM tool / output schemas.
	delete(result, "$schema")
	delete(result, "$id")

	return result, nil
}
