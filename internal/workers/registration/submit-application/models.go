// internal/workers/registration/submit-application/models.go
package submitapplication

import (
	"childcare-registration/internal/common/validation"
	"childcare-registration/internal/models"
)

type Input struct {
	ApplicationID string         `json:"applicationId"`
	Payload       models.Payload `json:"payload"`
}

// Output is returned for both outcomes. When Submitted is false nothing was
// persisted and Errors holds every validation problem.
type Output struct {
	ApplicationID     string                  `json:"applicationId,omitempty"`
	ApplicationNumber string                  `json:"applicationNumber,omitempty"`
	Status            models.Status           `json:"status,omitempty"`
	Submitted         bool                    `json:"submitted"`
	Errors            []validation.FieldError `json:"errors,omitempty"`
}
