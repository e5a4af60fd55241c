// Package schema checks outgoing results against their published JSON shape.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/regatta-tracker/constants"
)

// RegattaResultSchema returns the JSON schema of a regatta Result as a generic map.
func RegattaResultSchema() map[string]any {
	participant := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"rank":       map[string]any{"type": "integer", "minimum": 1, "maximum": constants.MaxPlausibleRank},
			"sailNumber": map[string]any{"type": "string", "minLength": 1},
			"name":       map[string]any{"type": "string"},
		},
		"required": []string{"rank", "sailNumber"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success": map[string]any{"type": "boolean"},
			"metadata": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":              map[string]any{"type": "string", "minLength": 1},
					"date":              map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
					"boatClass":         map[string]any{"type": "string"},
					"raceCount":         map[string]any{"type": "integer", "minimum": 0},
					"totalParticipants": map[string]any{"type": "integer", "minimum": 0, "maximum": constants.MaxPlausibleRank},
				},
				"required": []string{"name"},
			},
			"participant": participant,
			"crew":        map[string]any{"type": "string"},
			"allResults":  map[string]any{"type": []string{"array", "null"}, "items": participant},
			"confidence": map[string]any{
				"type": "string",
				"enum": []string{string(constants.ConfidenceHigh), string(constants.ConfidenceMedium), string(constants.ConfidenceLow)},
			},
			"feedback":   map[string]any{"type": "string"},
			"method":     map[string]any{"type": "string"},
			"ocrQuality": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"issues":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"trace":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"success", "metadata", "confidence"},
	}
}

// InvoiceResultSchema returns the JSON schema of an invoice Result.
func InvoiceResultSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success":  map[string]any{"type": "boolean"},
			"amount":   map[string]any{"type": "number", "minimum": 0, "maximum": 100000},
			"currency": map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
			"candidates": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"value", "pattern"},
				},
			},
			"method":   map[string]any{"type": "string"},
			"feedback": map[string]any{"type": "string"},
		},
		"required": []string{"success"},
	}
}

// Validator holds compiled schemas. The zero value is not usable; use New.
type Validator struct {
	regatta *jsonschema.Schema
	invoice *jsonschema.Schema
}

var (
	defaultOnce sync.Once
	defaultV    *Validator
	defaultErr  error
)

// Default returns a process-wide Validator compiled on first use.
func Default() (*Validator, error) {
	defaultOnce.Do(func() { defaultV, defaultErr = New() })
	return defaultV, defaultErr
}

func New() (*Validator, error) {
	r, err := compile("regatta-result.json", RegattaResultSchema())
	if err != nil {
		return nil, err
	}
	i, err := compile("invoice-result.json", InvoiceResultSchema())
	if err != nil {
		return nil, err
	}
	return &Validator{regatta: r, invoice: i}, nil
}

func compile(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// ValidateRegatta checks a marshalled regatta result.
func (v *Validator) ValidateRegatta(data []byte) error { return validate(v.regatta, data) }

// ValidateInvoice checks a marshalled invoice result.
func (v *Validator) ValidateInvoice(data []byte) error { return validate(v.invoice, data) }

func validate(s *jsonschema.Schema, data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
