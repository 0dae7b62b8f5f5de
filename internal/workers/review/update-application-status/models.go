// internal/workers/review/update-application-status/models.go
package updateapplicationstatus

import (
	"time"

	"childcare-registration/internal/models"
)

type Input struct {
	ApplicationID string        `json:"applicationId"`
	Status        models.Status `json:"status"`
}

type Output struct {
	ApplicationID     string        `json:"applicationId"`
	ApplicationNumber string        `json:"applicationNumber"`
	Status            models.Status `json:"status"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}
