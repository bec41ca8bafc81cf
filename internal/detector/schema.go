package detector

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildResponseJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map describing the inference service response. A payload that
// fails it is a terminal model fault, never a retry candidate.
func BuildResponseJSONSchema() map[string]any {
	boundingBox := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x":      map[string]any{"type": "number"},
			"y":      map[string]any{"type": "number"},
			"width":  map[string]any{"type": "number"},
			"height": map[string]any{"type": "number"},
		},
		"required": []string{"x", "y", "width", "height"},
	}
	detection := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"roomId":      map[string]any{"type": "integer"},
			"class":       map[string]any{"type": "string"},
			"confidence":  map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"boundingBox": boundingBox,
			"area":        map[string]any{"type": "number", "minimum": 0.0},
		},
		"required": []string{"class", "confidence", "boundingBox"},
	}
	dimensions := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"width":  map[string]any{"type": "integer"},
			"height": map[string]any{"type": "integer"},
		},
		"required": []string{"width", "height"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"detections":    map[string]any{"type": "array", "items": detection},
			"dimensions":    dimensions,
			"totalRooms":    map[string]any{"type": "integer", "minimum": 0},
			"avgConfidence": map[string]any{"type": "number"},
		},
		"required": []string{"detections"},
	}
}

// ValidateResponseJSON validates a raw service response against the
// response schema.
func ValidateResponseJSON(data []byte) error {
	b, err := json.Marshal(BuildResponseJSONSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
