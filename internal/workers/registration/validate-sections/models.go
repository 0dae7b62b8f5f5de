// internal/workers/registration/validate-sections/models.go
package validatesections

import (
	"childcare-registration/internal/common/validation"
	"childcare-registration/internal/models"
)

type Input struct {
	Mode    validation.Mode `json:"mode"`
	Payload models.Payload  `json:"payload"`
}

type Output struct {
	Valid    bool                    `json:"valid"`
	Sections map[string]bool         `json:"sections"`
	Errors   []validation.FieldError `json:"errors,omitempty"`
}

// Result is the outcome of validating one payload. Changeset holds only the
// entities and items that passed; Sections reports validity per section that
// was posted (every section in submit mode).
type Result struct {
	Mode      validation.Mode
	Changeset *models.Changeset
	Sections  map[string]bool
	Errors    []validation.FieldError
}

func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Result) Output() *Output {
	return &Output{
		Valid:    r.Valid(),
		Sections: r.Sections,
		Errors:   r.Errors,
	}
}

func (r *Result) record(section string, errs []validation.FieldError) {
	r.Errors = append(r.Errors, errs...)
	if ok, seen := r.Sections[section]; !seen || ok {
		r.Sections[section] = len(errs) == 0
	}
}
