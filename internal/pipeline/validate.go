package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/labex-extractor/internal/labreport"
)

// BuildResultJSONSchema returns the JSON Schema a serialized labreport.Result
// must satisfy for the given table layout. Rows are pinned to the column count.
func BuildResultJSONSchema(s labreport.Schema) map[string]any {
	width := s.Width()
	field := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"label": map[string]any{"type": "string", "minLength": 1},
			"value": map[string]any{"type": "string"},
			"found": map[string]any{"type": "boolean"},
		},
		"required": []string{"label", "value", "found"},
	}
	row := map[string]any{
		"type":     "array",
		"items":    map[string]any{"type": "string"},
		"minItems": width,
		"maxItems": width,
	}
	zones := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"general_info":      nonNegative(),
			"chemical_analysis": nonNegative(),
			"conclusion":        nonNegative(),
		},
		"required": []string{"general_info", "chemical_analysis", "conclusion"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"family": map[string]any{"type": "string", "minLength": 1},
			"schema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":    map[string]any{"const": s.Name},
					"columns": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": width, "maxItems": width},
				},
				"required": []string{"name", "columns"},
			},
			"header": map[string]any{"type": "array", "items": field},
			"rows":   map[string]any{"type": "array", "items": row},
			"zones":  zones,
		},
		"required": []string{"family", "schema", "header", "rows", "zones"},
	}
}

func nonNegative() map[string]any {
	return map[string]any{"type": "integer", "minimum": 0}
}

var (
	compiledMu sync.Mutex
	compiled   = map[string]*jsonschema.Schema{}
)

// resultSchema compiles the result schema for s once per schema name.
func resultSchema(s labreport.Schema) (*jsonschema.Schema, error) {
	key := fmt.Sprintf("%s/%d", s.Name, s.Width())

	compiledMu.Lock()
	defer compiledMu.Unlock()
	if sch, ok := compiled[key]; ok {
		return sch, nil
	}

	b, err := json.Marshal(BuildResultJSONSchema(s))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("result.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	sch, err := compiler.Compile("result.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	compiled[key] = sch
	return sch, nil
}

// ValidateResultJSON checks data against the result schema of s.
func ValidateResultJSON(s labreport.Schema, data []byte) error {
	sch, err := resultSchema(s)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
