// internal/workers/dashboard/search-applications/models.go
package searchapplications

import (
	"time"

	"childcare-registration/internal/models"
)

// Result sources.
const (
	SourceElasticsearch = "elasticsearch"
	SourceStore         = "store"
)

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	ApplicationIDs []string `json:"applicationIds"`
	Total          int      `json:"total"`
	Source         string   `json:"source"`
}

// document is the indexed projection of an application.
type document struct {
	ID                string        `json:"id"`
	ApplicationNumber string        `json:"application_number"`
	Status            models.Status `json:"status"`
	ApplicantName     string        `json:"applicant_name"`
	FirstName         string        `json:"first_name,omitempty"`
	LastName          string        `json:"last_name,omitempty"`
	Email             string        `json:"email,omitempty"`
	LocalAuthority    string        `json:"local_authority,omitempty"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func newDocument(agg *models.Aggregate) document {
	doc := document{
		ID:                agg.Application.ID.String(),
		ApplicationNumber: agg.Application.ApplicationNumber,
		Status:            agg.Application.Status,
		ApplicantName:     agg.Personal.FullName(),
		UpdatedAt:         agg.Application.UpdatedAt,
	}
	if agg.Personal != nil {
		doc.FirstName = agg.Personal.FirstName
		doc.LastName = agg.Personal.LastName
		doc.Email = agg.Personal.Email
	}
	if agg.Premises != nil {
		doc.LocalAuthority = agg.Premises.LocalAuthority
	}
	return doc
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}
