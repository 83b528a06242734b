package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RecordSchema returns the JSON Schema (draft 2020-12 subset) of a parsed
// receipt as a generic map. Every scalar is nullable; services is required.
func RecordSchema() map[string]any {
	props := map[string]any{
		"receipt_number":   nullableString(map[string]any{"pattern": `^[A-Za-z0-9]+$`}),
		"date":             nullableString(map[string]any{"pattern": `^\d{2}\.\d{2}\.(\d{2}|\d{4})$`}),
		"time":             nullableString(map[string]any{"pattern": `^([01]\d|2[0-3]):[0-5]\d$`}),
		"seller_name":      nullableString(map[string]any{"minLength": 1}),
		"seller_inn":       nullableString(map[string]any{"pattern": `^(\d{10}|\d{12})$`}),
		"buyer_inn":        nullableString(map[string]any{"pattern": `^\d{10}$`}),
		"total_amount":     nullableString(map[string]any{"pattern": decimalPattern}),
		"tax_mode":         nullableString(map[string]any{"enum": []any{"НПД", nil}}),
		"check_former":     nullableString(map[string]any{"minLength": 2}),
		"check_former_inn": nullableString(map[string]any{"pattern": `^\d{10,12}$`}),
		"fns_url":          map[string]any{"type": "string", "pattern": `^https?://`},
		"raw_text":         map[string]any{"type": "string"},
		"services": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"name", "amount"},
				"properties": map[string]any{
					"name":   map[string]any{"type": "string", "minLength": 1},
					"amount": decimalProp(),
				},
			},
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"services"},
	}
}

func nullableString(extra map[string]any) map[string]any {
	p := map[string]any{"type": []any{"string", "null"}}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

const decimalPattern = `^\d+(\.\d+)?$`

func decimalProp() map[string]any {
	return map[string]any{"type": "string", "pattern": decimalPattern}
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func recordSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = Compile(RecordSchema())
	})
	return compiled, compileErr
}

// Compile turns a schema map into a reusable validator.
func Compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile("record.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// Validate checks a serialized record against RecordSchema.
func Validate(data []byte) error {
	s, err := recordSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
