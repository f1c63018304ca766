package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	OperationHealth         = "health"
	OperationGenerateScript = "generate-script"
	OperationAnalyze        = "analyze"
)

// LoadRegistry reads a registry file and merges it over Default(). A file entry
// for a built-in operation overrides only the fields it sets, so omitting
// inputSchema keeps the built-in request schema.
func LoadRegistry(path string) (*OperationRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg OperationRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}

	merged := Default()
	if reg.Version != "" {
		merged.Version = reg.Version
	}
	if reg.LastUpdated != "" {
		merged.LastUpdated = reg.LastUpdated
	}
	for _, op := range reg.Operations {
		if op.ID == "" {
			return nil, fmt.Errorf("registry %s: operation without id", path)
		}
		merged.put(op)
	}
	return merged, nil
}

// Get returns the operation with the given id.
func (r *OperationRegistry) Get(id string) (*Operation, bool) {
	for i := range r.Operations {
		if r.Operations[i].ID == id {
			return &r.Operations[i], true
		}
	}
	return nil, false
}

// InputSchema returns the request schema for an operation, or nil.
func (r *OperationRegistry) InputSchema(id string) map[string]interface{} {
	if op, ok := r.Get(id); ok {
		return op.InputSchema
	}
	return nil
}

func (r *OperationRegistry) put(op Operation) {
	for i := range r.Operations {
		if r.Operations[i].ID == op.ID {
			r.Operations[i] = overlay(r.Operations[i], op)
			return
		}
	}
	r.Operations = append(r.Operations, op)
}

func overlay(base, op Operation) Operation {
	if op.DisplayName != "" {
		base.DisplayName = op.DisplayName
	}
	if op.Description != "" {
		base.Description = op.Description
	}
	if op.Method != "" {
		base.Method = op.Method
	}
	if op.Path != "" {
		base.Path = op.Path
	}
	if op.ContentType != "" {
		base.ContentType = op.ContentType
	}
	if len(op.InputSchema) > 0 {
		base.InputSchema = op.InputSchema
	}
	if len(op.OutputSchema) > 0 {
		base.OutputSchema = op.OutputSchema
	}
	if op.ErrorCodes != nil {
		base.ErrorCodes = op.ErrorCodes
	}
	if op.Timeout != "" {
		base.Timeout = op.Timeout
	}
	if op.Tags != nil {
		base.Tags = op.Tags
	}
	return base
}

// TimeoutDuration returns the whole-operation deadline, or 0 when none is set
// or it does not parse.
func (o *Operation) TimeoutDuration() time.Duration {
	if o == nil || o.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(o.Timeout)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// Default returns the built-in registry.
func Default() *OperationRegistry {
	return &OperationRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-10-17",
		Operations: []Operation{
			{
				ID:          OperationHealth,
				DisplayName: "Health",
				Description: "Liveness probe; independent of provider availability",
				Method:      "GET",
				Path:        "/health",
				ErrorCodes:  []string{},
				Tags:        []string{"ops"},
			},
			{
				ID:          OperationGenerateScript,
				DisplayName: "Generate Script",
				Description: "Generates a timed presentation script for a topic",
				Method:      "POST",
				Path:        "/generate_script",
				ContentType: "application/json",
				InputSchema: scriptRequestSchema(),
				OutputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"title", "script"},
					"properties": map[string]interface{}{
						"title":  map[string]interface{}{"type": "string"},
						"script": scriptLinesSchema(1),
					},
				},
				ErrorCodes: []string{"VALIDATION_ERROR", "UPSTREAM_ERROR", "UPSTREAM_TIMEOUT", "UPSTREAM_MALFORMED"},
				Timeout:    "60s",
				Tags:       []string{"coaching"},
			},
			{
				ID:          OperationAnalyze,
				DisplayName: "Analyze Rehearsal",
				Description: "Transcribes recorded audio and scores it against the original script",
				Method:      "POST",
				Path:        "/analyze",
				ContentType: "multipart/form-data",
				InputSchema: originalScriptSchema(),
				ErrorCodes: []string{
					"VALIDATION_ERROR", "PAYLOAD_TOO_LARGE", "UNSUPPORTED_MEDIA_TYPE",
					"UPSTREAM_ERROR", "UPSTREAM_TIMEOUT", "UPSTREAM_MALFORMED",
				},
				Timeout: "120s",
				Tags:    []string{"coaching", "audio"},
			},
		},
	}
}

func scriptRequestSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"topic"},
		"properties": map[string]interface{}{
			"topic": map[string]interface{}{
				"type":      "string",
				"minLength": 1,
				"maxLength": 500,
				"pattern":   `\S`,
			},
			"duration": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
				"maximum": 60,
			},
			"length_seconds": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
				"maximum": 3600,
			},
		},
	}
}

// originalScriptSchema accepts either {"script": [...]} or a bare array.
func originalScriptSchema() map[string]interface{} {
	return map[string]interface{}{
		"oneOf": []interface{}{
			scriptLinesSchema(1),
			map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"script"},
				"properties": map[string]interface{}{
					"script": scriptLinesSchema(1),
				},
			},
		},
	}
}

func scriptLinesSchema(minItems int) map[string]interface{} {
	return map[string]interface{}{
		"type":     "array",
		"minItems": minItems,
		"items": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"timestamp", "line"},
			"properties": map[string]interface{}{
				"timestamp": map[string]interface{}{"type": "string"},
				"line":      map[string]interface{}{"type": "string"},
			},
		},
	}
}
