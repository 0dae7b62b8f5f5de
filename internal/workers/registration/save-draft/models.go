// internal/workers/registration/save-draft/models.go
package savedraft

import (
	"childcare-registration/internal/common/validation"
	"childcare-registration/internal/models"
)

type Input struct {
	ApplicationID string         `json:"applicationId"`
	Payload       models.Payload `json:"payload"`
}

// Output reports what was persisted. Errors lists the entities and items
// that failed draft validation and were left unsaved.
type Output struct {
	ApplicationID        string                  `json:"applicationId"`
	ApplicationNumber    string                  `json:"applicationNumber"`
	Status               models.Status           `json:"status"`
	LastSectionCompleted int                     `json:"lastSectionCompleted"`
	NextSection          int                     `json:"nextSection"`
	Complete             bool                    `json:"complete"`
	Sections             map[string]bool         `json:"sections"`
	Errors               []validation.FieldError `json:"errors,omitempty"`
}
