package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"

	"github.com/agentkit-go/agentkit/internal/util"
	"github.com/agentkit-go/agentkit/model"
)

// OutputType declares the structured output an agent must produce. The
// runner sends the type's JSON schema to the model and parses the final
// message through Parse; a message that does not conform stops the run with
// a model behavior error instead of being returned as plain text.
type OutputType struct {
	name        string
	description string
	schema      map[string]any
	strict      bool
	parse       func(data []byte) (any, error)
}

// OutputTypeOptions configures ForType.
type OutputTypeOptions struct {
	// Name overrides the schema name sent to the provider. Defaults to the
	// Go type name.
	Name string

	// Description is attached to the schema sent to the provider.
	Description string

	// NonStrict disables strict schema enforcement for providers that
	// reject strict schemas. Parsing then tolerates unknown fields.
	NonStrict bool
}

// ForType derives an OutputType from T's JSON structure. Field requirements
// and descriptions come from `json` and `jsonschema` struct tags. In strict
// mode (the default) every property is marked required and additional
// properties are rejected, matching strict structured output rules.
func ForType[T any](optFns ...func(o *OutputTypeOptions)) (*OutputType, error) {
	opts := OutputTypeOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	schema, err := util.ReflectSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("reflect output schema: %w", err)
	}

	strict := !opts.NonStrict
	if strict {
		schema = strictify(schema)
	}

	name := opts.Name
	if name == "" {
		name = typeName[T]()
	}

	return &OutputType{
		name:        name,
		description: opts.Description,
		schema:      schema,
		strict:      strict,
		parse: func(data []byte) (any, error) {
			return decodeAs[T](data, strict)
		},
	}, nil
}

// MustForType is like ForType but panics on error. Intended for
// package-level agent declarations.
func MustForType[T any](optFns ...func(o *OutputTypeOptions)) *OutputType {
	o, err := ForType[T](optFns...)
	if err != nil {
		panic(err)
	}
	return o
}

// Name returns the schema name sent to the provider.
func (o *OutputType) Name() string { return o.name }

// Strict reports whether the schema enforces strict conformance.
func (o *OutputType) Strict() bool { return o.strict }

// Schema returns the provider-facing output schema declaration.
func (o *OutputType) Schema() model.OutputSchema {
	return model.OutputSchema{
		Name:        o.name,
		Description: o.description,
		Schema:      o.schema,
		Strict:      o.strict,
	}
}

// Parse decodes a final model message into the declared Go type. The result
// is the value itself, not a pointer.
func (o *OutputType) Parse(data []byte) (any, error) {
	return o.parse(data)
}

func decodeAs[T any](data []byte, strict bool) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}

	var v T
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}

	return v, nil
}

func typeName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return "output"
}

// strictify rewrites a reflected schema for strict structured output: every
// object lists all of its properties as required and forbids additional
// properties. Nested schemas (including $defs) are rewritten recursively.
func strictify(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema)+2)
	for k, v := range schema {
		out[k] = strictifyValue(v)
	}
	if out["type"] == "object" {
		props, _ := out["properties"].(map[string]any)
		required := make([]string, 0, len(props))
		for name := range props {
			required = append(required, name)
		}
		sort.Strings(required)
		out["required"] = required
		out["additionalProperties"] = false
	}
	return out
}

func strictifyValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return strictify(vv)
	case []any:
		for i, e := range vv {
			vv[i] = strictifyValue(e)
		}
		return vv
	default:
		return v
	}
}
