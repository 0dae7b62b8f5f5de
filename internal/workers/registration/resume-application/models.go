// internal/workers/registration/resume-application/models.go
package resumeapplication

import (
	"childcare-registration/internal/models"
)

type Input struct {
	ApplicationID string `json:"applicationId"`
}

// Output is the resume state rendered by GET /register. Application is nil
// when a fresh, unsaved application was started.
type Output struct {
	Application *models.Application `json:"application"`
	Resumed     bool                `json:"resumed"`
	Sections    []SectionProgress   `json:"sections"`
	Data        *models.Aggregate   `json:"data"`
}

type SectionProgress struct {
	Index     int    `json:"index"`
	Key       string `json:"key"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}
