package delta

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Unknown fields are rejected. Metadata values are not constrained here;
// non-integer entries are dropped during extraction.
const operationSchemaJSON = `{
	"type": "object",
	"required": ["type"],
	"additionalProperties": false,
	"properties": {
		"type":      {"type": "string"},
		"section":   {"type": ["string", "null"]},
		"content":   {"type": ["string", "null"]},
		"bullet_id": {"type": ["string", "null"]},
		"metadata":  {"type": ["object", "null"]}
	}
}`

const batchSchemaJSON = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"reasoning":  {"type": ["string", "null"]},
		"operations": {"type": ["array", "null"], "items": {"type": "object"}}
	}
}`

var (
	operationSchema = mustSchema(operationSchemaJSON)
	batchSchema     = mustSchema(batchSchemaJSON)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("delta: compile schema: %v", err))
	}
	return schema
}

func validate(schema *gojsonschema.Schema, payload map[string]any) error {
	if payload == nil {
		return fmt.Errorf("%w: expected a JSON object", ErrInvalidOperation)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	if len(errs) > 3 {
		errs = append(errs[:3], fmt.Sprintf("... and %d more", len(errs)-3))
	}
	return fmt.Errorf("%w: %s", ErrInvalidOperation, strings.Join(errs, "; "))
}
