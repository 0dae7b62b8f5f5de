// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// payloadSchema describes the shape of a JSON registration post. Field-level
// rules live in the section validators; this only rejects structurally broken bodies.
const payloadSchema = `{
  "type": "object",
  "properties": {
    "action":           {"type": "string", "enum": ["save_and_continue", "save_and_exit", "submit"]},
    "section":          {"type": "integer", "minimum": 0, "maximum": 10},
    "application_id":   {"type": "string"},
    "adults_in_home":   {"type": "boolean"},
    "children_in_home": {"type": "boolean"},
    "personal":    {"$ref": "#/definitions/section"},
    "premises":    {"$ref": "#/definitions/section"},
    "service":     {"$ref": "#/definitions/section"},
    "training":    {"$ref": "#/definitions/section"},
    "suitability": {"$ref": "#/definitions/section"},
    "declaration": {"$ref": "#/definitions/section"},
    "addresses":   {"$ref": "#/definitions/collection"},
    "employment":  {"$ref": "#/definitions/collection"},
    "household":   {"$ref": "#/definitions/collection"},
    "references":  {"$ref": "#/definitions/collection"}
  },
  "required": ["action"],
  "definitions": {
    "section": {
      "type": "object",
      "additionalProperties": {"type": ["string", "number", "boolean", "null"]}
    },
    "collection": {
      "type": "array",
      "maxItems": 50,
      "items": {"$ref": "#/definitions/section"}
    }
  }
}`

var payloadSchemaLoader = gojsonschema.NewStringLoader(payloadSchema)

// ValidatePayloadShape checks a decoded JSON document against the payload
// schema and returns one FieldError per schema violation.
func ValidatePayloadShape(document interface{}) ([]FieldError, error) {
	result, err := gojsonschema.Validate(payloadSchemaLoader, gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	errs := make([]FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		entity, field := splitSchemaField(desc.Field())
		errs = append(errs, FieldError{
			Entity:  entity,
			Field:   field,
			Code:    CodeInvalidType,
			Message: desc.Description(),
		})
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Path() < errs[j].Path() })
	return errs, nil
}

// splitSchemaField turns gojsonschema's "personal.first_name" / "addresses.0"
// into an entity and a field.
func splitSchemaField(field string) (string, string) {
	if field == "(root)" {
		return "payload", ""
	}
	parts := strings.SplitN(field, ".", 2)
	if len(parts) == 1 {
		return "payload", parts[0]
	}
	return parts[0], parts[1]
}
