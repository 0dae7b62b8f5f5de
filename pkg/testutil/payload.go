// pkg/testutil/payload.go

// Package testutil provides fixtures and helpers shared by handler, worker
// and end-to-end tests.
package testutil

import (
	"childcare-registration/internal/models"
)

// CompletePayload returns a submission that passes strict validation: Jane
// Smith with premises in Leeds, one address, one job, one household member
// and two references.
func CompletePayload() *models.Payload {
	adults := true
	children := false
	return &models.Payload{
		Action:         models.ActionSubmit,
		Section:        10,
		AdultsInHome:   &adults,
		ChildrenInHome: &children,
		Personal: map[string]interface{}{
			"title":                "Mrs",
			"first_name":           "Jane",
			"last_name":            "Smith",
			"dob":                  "1985-05-20",
			"gender":               "Female",
			"email":                "jane@example.com",
			"phone":                "07987654321",
			"ni_number":            "AB123456C",
			"right_to_work_status": "British Citizen",
		},
		Premises: map[string]interface{}{
			"local_authority": "Leeds",
			"premises_type":   "Domestic",
			"is_own_home":     true,
		},
		Service: map[string]interface{}{
			"care_age_0_5":         true,
			"number_of_assistants": float64(0),
		},
		Training:    map[string]interface{}{},
		Suitability: map[string]interface{}{},
		Declaration: map[string]interface{}{
			"consent_auth_contact":     true,
			"consent_auth_share":       true,
			"consent_understand_usage": true,
			"consent_understand_gdpr":  true,
			"consent_truth":            true,
			"signature":                "Jane Smith",
			"print_name":               "Jane Do Smith",
			"date_signed":              "2025-03-10",
		},
		Addresses: []map[string]interface{}{{
			"line1":        "123 Fake St",
			"town":         "Leeds",
			"postcode":     "LS1 1AA",
			"move_in_date": "2020-01-01",
			"is_current":   true,
		}},
		Employment: []map[string]interface{}{{
			"employer_name": "Self",
			"role":          "Nanny",
			"start_date":    "2015-01-01",
		}},
		Household: []map[string]interface{}{{
			"first_name":   "Partner",
			"last_name":    "Smith",
			"dob":          "1980-01-01",
			"relationship": "Husband",
		}},
		References: []map[string]interface{}{
			{
				"full_name":    "Ref1 Person",
				"email":        "ref1@example.com",
				"phone":        "0111111111",
				"relationship": "Friend",
				"years_known":  float64(5),
			},
			{
				"full_name":    "Ref2 Person",
				"email":        "ref2@example.com",
				"phone":        "0222222222",
				"relationship": "Colleague",
				"years_known":  float64(3),
			},
		},
	}
}

// DraftPayload returns a first-section save with only personal details.
func DraftPayload() *models.Payload {
	return &models.Payload{
		Action:  models.ActionSaveAndContinue,
		Section: 1,
		Personal: map[string]interface{}{
			"first_name": "Jane",
			"last_name":  "Smith",
		},
	}
}
