package kometa

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed kometa_metadata_schema.json
var defaultSchema string

// Validator checks a document against a Kometa metadata JSON Schema.
// The zero Validator is unusable; construct one with NewValidator.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles a validator. When path is non-empty the schema
// is read from disk, otherwise the built-in schema is used.
func NewValidator(path string) (*Validator, error) {
	name := "kometa_metadata_schema.json"
	source := defaultSchema
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		name = path
		source = string(raw)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks the document's normalized tree against the schema.
func (v *Validator) Validate(d *Document) error {
	if err := v.schema.Validate(toJSONValue(d.Root)); err != nil {
		return fmt.Errorf("validate %s: %w", d.Path, err)
	}
	return nil
}

// toJSONValue rewrites the YAML-decoded tree into the value shapes the
// schema library expects from encoding/json.
func toJSONValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSONValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSONValue(item)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}
