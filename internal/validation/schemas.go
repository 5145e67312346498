package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Event payloads arrive over Kafka from other teams; they are validated
// against JSON schemas before touching the store.

const interactionEventSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["user_id", "job_id", "kind"],
	"properties": {
		"user_id": {"type": "string", "minLength": 1},
		"job_id": {"type": "string", "minLength": 1},
		"kind": {"type": "string", "enum": ["application", "rating", "bookmark", "view", "click"]},
		"value": {"type": "number", "minimum": 1, "maximum": 5},
		"duration": {"type": "integer", "minimum": 0},
		"session_id": {"type": "string"},
		"timestamp": {"type": "string", "format": "date-time"}
	},
	"additionalProperties": true
}`

const jobEventSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["job_id", "action"],
	"properties": {
		"job_id": {"type": "string", "minLength": 1},
		"action": {"type": "string", "enum": ["created", "updated", "deleted"]},
		"timestamp": {"type": "string", "format": "date-time"}
	},
	"additionalProperties": true
}`

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// SchemaValidator holds the compiled event schemas.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

func NewSchemaValidator() (*SchemaValidator, error) {
	v := &SchemaValidator{schemas: make(map[string]*gojsonschema.Schema)}
	for name, raw := range map[string]string{
		"interaction_event": interactionEventSchema,
		"job_event":         jobEventSchema,
	} {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

func (v *SchemaValidator) Validate(schemaName string, payload []byte) (*ValidationResult, error) {
	schema, ok := v.schemas[schemaName]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", schemaName)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return out, nil
}

func (v *SchemaValidator) ValidateInteractionEvent(payload []byte) (*ValidationResult, error) {
	return v.Validate("interaction_event", payload)
}

func (v *SchemaValidator) ValidateJobEvent(payload []byte) (*ValidationResult, error) {
	return v.Validate("job_event", payload)
}
