// pkg/registry/schema.go
package registry

// SectionRegistry lists the form sections in the order the applicant completes them.
type SectionRegistry struct {
	Version     string    `json:"version"`
	LastUpdated string    `json:"lastUpdated"`
	Sections    []Section `json:"sections"`
}

type Section struct {
	Index       int    `json:"index"`
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Repeating   bool   `json:"repeating"`
	MinItems    int    `json:"minItems,omitempty"`
}

const registrySchema = `{
  "type": "object",
  "required": ["version", "sections"],
  "properties": {
    "version": {"type": "string"},
    "lastUpdated": {"type": "string"},
    "sections": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["index", "key", "title"],
        "properties": {
          "index": {"type": "integer", "minimum": 1},
          "key": {"type": "string", "pattern": "^[a-z_]+$"},
          "title": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "repeating": {"type": "boolean"},
          "minItems": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`
