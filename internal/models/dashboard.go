// internal/models/dashboard.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Dashboard classifications.
const (
	StageRequiresAction = "requires_action"
	StageInProgress     = "in_progress"
	StageCompleted      = "completed"
)

const (
	RiskHigh = "high"
	RiskLow  = "low"
)

// Check statuses.
const (
	CheckNotStarted = "not_started"
	CheckPending    = "pending"
	CheckComplete   = "complete"
)

// Register names derived from the childcare age bands.
const (
	RegisterEarlyYears          = "Early Years Register"
	RegisterChildcareCompulsory = "Childcare Register (compulsory)"
	RegisterChildcareVoluntary  = "Childcare Register (voluntary)"
)

type Dashboard struct {
	Summary      DashboardSummary  `json:"summary"`
	Applications []ApplicationView `json:"applications"`
	GeneratedAt  time.Time         `json:"generated_at"`
}

type DashboardSummary struct {
	TotalApps      int            `json:"total_apps"`
	ByStatus       map[Status]int `json:"by_status"`
	RequiresAction int            `json:"requires_action"`
	InProgress     int            `json:"in_progress"`
	Completed      int            `json:"completed"`
	HighRisk       int            `json:"high_risk"`
}

// ApplicationView is the flattened per-application projection rendered by the
// case-worker dashboard. Missing one-to-one children are serialized as null.
type ApplicationView struct {
	ID                   uuid.UUID         `json:"id"`
	ApplicationNumber    string            `json:"application_number"`
	ApplicantName        string            `json:"applicant_name"`
	Status               Status            `json:"status"`
	Stage                string            `json:"stage"`
	DaysInStage          int               `json:"days_in_stage"`
	Risk                 string            `json:"risk"`
	LastSectionCompleted int               `json:"last_section_completed"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	Personal             *PersonalDetails  `json:"personal"`
	Premises             *Premises         `json:"premises"`
	Service              *ChildcareService `json:"service"`
	Training             *Training         `json:"training"`
	Suitability          *Suitability      `json:"suitability"`
	DeclarationSigned    bool              `json:"declaration_signed"`
	Checks               map[string]string `json:"checks"`
	Registers            []string          `json:"registers"`
	Household            []HouseholdMember `json:"household"`
	References           []Reference       `json:"references"`
	Addresses            []AddressEntry    `json:"addresses"`
	Employment           []EmploymentEntry `json:"employment"`
}
