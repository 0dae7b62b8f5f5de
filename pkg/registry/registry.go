// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed sections.json
var defaultSections []byte

// Default returns the built-in section registry.
func Default() *SectionRegistry {
	reg, err := Parse(defaultSections)
	if err != nil {
		panic(fmt.Sprintf("embedded section registry is invalid: %v", err))
	}
	return reg
}

// LoadRegistry reads a registry file; an empty path yields Default().
func LoadRegistry(path string) (*SectionRegistry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a registry document.
func Parse(data []byte) (*SectionRegistry, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(registrySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("registry schema violations: %s", strings.Join(msgs, "; "))
	}

	var reg SectionRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks that indexes run 1..n without gaps and keys are unique.
func (r *SectionRegistry) Validate() error {
	seen := make(map[string]bool, len(r.Sections))
	for i, s := range r.Sections {
		if s.Index != i+1 {
			return fmt.Errorf("section %q has index %d, expected %d", s.Key, s.Index, i+1)
		}
		if seen[s.Key] {
			return fmt.Errorf("duplicate section key %q", s.Key)
		}
		seen[s.Key] = true
		if s.MinItems > 0 && !s.Repeating {
			return fmt.Errorf("section %q sets minItems but is not repeating", s.Key)
		}
	}
	return nil
}

func (r *SectionRegistry) Count() int {
	return len(r.Sections)
}

// Lookup returns the section with the given 1-based index.
func (r *SectionRegistry) Lookup(index int) (Section, bool) {
	if index < 1 || index > len(r.Sections) {
		return Section{}, false
	}
	return r.Sections[index-1], true
}

func (r *SectionRegistry) ByKey(key string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// MinItems returns the minimum item count a repeating section needs at submit.
func (r *SectionRegistry) MinItems(key string) int {
	s, ok := r.ByKey(key)
	if !ok {
		return 0
	}
	return s.MinItems
}
