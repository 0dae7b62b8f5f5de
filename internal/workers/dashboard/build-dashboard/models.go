// internal/workers/dashboard/build-dashboard/models.go
package builddashboard

import "childcare-registration/internal/models"

// Input narrows the dashboard. A nil ApplicationIDs means every application;
// an empty list (a search without hits) means none.
type Input struct {
	ApplicationIDs []string      `json:"applicationIds,omitempty"`
	Status         models.Status `json:"status,omitempty"`
}

type Output struct {
	Dashboard *models.Dashboard `json:"dashboard"`
	Cached    bool              `json:"cached"`
}

func (in *Input) unfiltered() bool {
	return in.ApplicationIDs == nil && in.Status == ""
}
