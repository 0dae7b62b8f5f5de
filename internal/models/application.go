// internal/models/application.go
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft            Status = "DRAFT"
	StatusSubmitted        Status = "SUBMITTED"
	StatusUnderReview      Status = "UNDER_REVIEW"
	StatusChecksInProgress Status = "CHECKS_IN_PROGRESS"
	StatusRegistered       Status = "REGISTERED"
)

// AllStatuses lists statuses in lifecycle order.
var AllStatuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusChecksInProgress,
	StatusRegistered,
}

func (s Status) Valid() bool {
	return s.rank() >= 0
}

func (s Status) rank() int {
	for i, st := range AllStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

// After reports whether s comes strictly later than other in the lifecycle.
func (s Status) After(other Status) bool {
	return s.Valid() && other.Valid() && s.rank() > other.rank()
}

// Editable reports whether the applicant may still change the application.
func (s Status) Editable() bool {
	return s == StatusDraft
}

type Application struct {
	ID                   uuid.UUID `json:"id"`
	ApplicationNumber    string    `json:"application_number"`
	Status               Status    `json:"status"`
	LastSectionCompleted int       `json:"last_section_completed"`
	AdultsInHome         bool      `json:"adults_in_home"`
	ChildrenInHome       bool      `json:"children_in_home"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type PersonalDetails struct {
	ID                 int64     `json:"id"`
	ApplicationID      uuid.UUID `json:"-"`
	Title              string    `json:"title"`
	FirstName          string    `json:"first_name"`
	MiddleNames        string    `json:"middle_names"`
	LastName           string    `json:"last_name"`
	DOB                *Date     `json:"dob"`
	Gender             string    `json:"gender"`
	KnownByOtherNames  bool      `json:"known_by_other_names"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	NINumber           string    `json:"ni_number"`
	RightToWorkStatus  string    `json:"right_to_work_status"`
	LivedOutsideUK     bool      `json:"lived_outside_uk"`
	MilitaryBaseAbroad bool      `json:"military_base_abroad"`
}

func (p *PersonalDetails) FullName() string {
	if p == nil {
		return ""
	}
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

type AddressEntry struct {
	ID            int64     `json:"id"`
	ApplicationID uuid.UUID `json:"-"`
	Line1         string    `json:"line1"`
	Line2         string    `json:"line2"`
	Town          string    `json:"town"`
	Postcode      string    `json:"postcode"`
	MoveInDate    *Date     `json:"move_in_date"`
	MoveOutDate   *Date     `json:"move_out_date"`
	IsCurrent     bool      `json:"is_current"`
}

const (
	PremisesDomestic    = "Domestic"
	PremisesNonDomestic = "Non-domestic"
)

type Premises struct {
	ID              int64     `json:"id"`
	ApplicationID   uuid.UUID `json:"-"`
	LocalAuthority  string    `json:"local_authority"`
	PremisesType    string    `json:"premises_type"`
	IsOwnHome       bool      `json:"is_own_home"`
	HasOutdoorSpace bool      `json:"has_outdoor_space"`
	HasPets         bool      `json:"has_pets"`
	PetsDetails     string    `json:"pets_details"`
}

type ChildcareService struct {
	ID                 int64     `json:"id"`
	ApplicationID      uuid.UUID `json:"-"`
	CareAge0To5        bool      `json:"care_age_0_5"`
	CareAge5To8        bool      `json:"care_age_5_8"`
	CareAge8Plus       bool      `json:"care_age_8_plus"`
	WorkWithAssistants bool      `json:"work_with_assistants"`
	NumberOfAssistants int       `json:"number_of_assistants"`
}

type Training struct {
	ID                    int64     `json:"id"`
	ApplicationID         uuid.UUID `json:"-"`
	FirstAidCompleted     bool      `json:"first_aid_completed"`
	FirstAidDate          *Date     `json:"first_aid_date"`
	FirstAidOrg           string    `json:"first_aid_org"`
	SafeguardingCompleted bool      `json:"safeguarding_completed"`
	SafeguardingDate      *Date     `json:"safeguarding_date"`
	SafeguardingOrg       string    `json:"safeguarding_org"`
	EYFSCompleted         bool      `json:"eyfs_completed"`
	EYFSDate              *Date     `json:"eyfs_date"`
	EYFSOrg               string    `json:"eyfs_org"`
	Level2QualCompleted   bool      `json:"level2_qual_completed"`
	Level2QualDate        *Date     `json:"level2_qual_date"`
	Level2QualOrg         string    `json:"level2_qual_org"`
	FoodHygieneCompleted  bool      `json:"food_hygiene_completed"`
	FoodHygieneDate       *Date     `json:"food_hygiene_date"`
	FoodHygieneOrg        string    `json:"food_hygiene_org"`
}

type EmploymentEntry struct {
	ID            int64     `json:"id"`
	ApplicationID uuid.UUID `json:"-"`
	EmployerName  string    `json:"employer_name"`
	Role          string    `json:"role"`
	StartDate     *Date     `json:"start_date"`
	EndDate       *Date     `json:"end_date"`
	IsCurrent     bool      `json:"is_current"`
}

type HouseholdMember struct {
	ID            int64     `json:"id"`
	ApplicationID uuid.UUID `json:"-"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	DOB           *Date     `json:"dob"`
	Relationship  string    `json:"relationship"`
	IsAdult       bool      `json:"is_adult"`
}

type Reference struct {
	ID            int64     `json:"id"`
	ApplicationID uuid.UUID `json:"-"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Relationship  string    `json:"relationship"`
	YearsKnown    *int      `json:"years_known"`
}

type Suitability struct {
	ID                      int64     `json:"id"`
	ApplicationID           uuid.UUID `json:"-"`
	HasMedicalCondition     bool      `json:"has_medical_condition"`
	MedicalConditionDetails string    `json:"medical_condition_details"`
	IsDisqualified          bool      `json:"is_disqualified"`
	SocialServicesInvolved  bool      `json:"social_services_involved"`
	SocialServicesDetails   string    `json:"social_services_details"`
	HasDBS                  bool      `json:"has_dbs"`
	DBSNumber               string    `json:"dbs_number"`
}

type Declaration struct {
	ID                     int64     `json:"id"`
	ApplicationID          uuid.UUID `json:"-"`
	ConsentAuthContact     bool      `json:"consent_auth_contact"`
	ConsentAuthShare       bool      `json:"consent_auth_share"`
	ConsentUnderstandUsage bool      `json:"consent_understand_usage"`
	ConsentUnderstandGDPR  bool      `json:"consent_understand_gdpr"`
	ConsentTruth           bool      `json:"consent_truth"`
	Signature              string    `json:"signature"`
	PrintName              string    `json:"print_name"`
	DateSigned             *Date     `json:"date_signed"`
}

func (d *Declaration) AllConsentsGiven() bool {
	return d != nil &&
		d.ConsentAuthContact &&
		d.ConsentAuthShare &&
		d.ConsentUnderstandUsage &&
		d.ConsentUnderstandGDPR &&
		d.ConsentTruth
}

// Aggregate is an Application with its full child graph. One-to-one children
// are nil when no row exists.
type Aggregate struct {
	Application *Application       `json:"application"`
	Personal    *PersonalDetails   `json:"personal"`
	Premises    *Premises          `json:"premises"`
	Service     *ChildcareService  `json:"service"`
	Training    *Training          `json:"training"`
	Suitability *Suitability       `json:"suitability"`
	Declaration *Declaration       `json:"declaration"`
	Addresses   []AddressEntry     `json:"addresses"`
	Employment  []EmploymentEntry  `json:"employment"`
	Household   []HouseholdMember  `json:"household"`
	References  []Reference        `json:"references"`
}

// NewAggregate returns an unsaved aggregate with empty (non-nil) collections.
func NewAggregate() *Aggregate {
	return &Aggregate{
		Addresses:  []AddressEntry{},
		Employment: []EmploymentEntry{},
		Household:  []HouseholdMember{},
		References: []Reference{},
	}
}

// IsNew reports whether the aggregate has never been persisted.
func (a *Aggregate) IsNew() bool {
	return a == nil || a.Application == nil
}

// ApplicationNumberPrefix is the per-year prefix of application numbers.
func ApplicationNumberPrefix(year int) string {
	return fmt.Sprintf("RK-%d-", year)
}

func FormatApplicationNumber(year, seq int) string {
	return fmt.Sprintf("%s%05d", ApplicationNumberPrefix(year), seq)
}
