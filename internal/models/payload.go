// internal/models/payload.go
package models

// Form actions accepted by the registration endpoint.
const (
	ActionSaveAndContinue = "save_and_continue"
	ActionSaveAndExit     = "save_and_exit"
	ActionSubmit          = "submit"
)

// Section keys, shared by the payload, the section registry and error entities.
const (
	SectionPersonal    = "personal"
	SectionAddresses   = "address"
	SectionPremises    = "premises"
	SectionService     = "service"
	SectionTraining    = "training"
	SectionEmployment  = "employment"
	SectionHousehold   = "household"
	SectionReferences  = "reference"
	SectionSuitability = "suitability"
	SectionDeclaration = "declaration"
)

// Special keys inside collection items.
const (
	ItemIDKey     = "id"
	ItemDeleteKey = "DELETE"
)

// Payload is the raw, unvalidated form submission. One-to-one sections are
// field maps (nil when the section was not posted); collections are lists of
// field maps, each optionally carrying "id" and "DELETE".
type Payload struct {
	Action         string `json:"action"`
	Section        int    `json:"section"`
	AdultsInHome   *bool  `json:"adults_in_home,omitempty"`
	ChildrenInHome *bool  `json:"children_in_home,omitempty"`

	Personal    map[string]interface{} `json:"personal,omitempty"`
	Premises    map[string]interface{} `json:"premises,omitempty"`
	Service     map[string]interface{} `json:"service,omitempty"`
	Training    map[string]interface{} `json:"training,omitempty"`
	Suitability map[string]interface{} `json:"suitability,omitempty"`
	Declaration map[string]interface{} `json:"declaration,omitempty"`

	Addresses  []map[string]interface{} `json:"addresses,omitempty"`
	Employment []map[string]interface{} `json:"employment,omitempty"`
	Household  []map[string]interface{} `json:"household,omitempty"`
	References []map[string]interface{} `json:"references,omitempty"`
}

// Changeset is the validated write model produced from a Payload. Nil
// one-to-one children are left untouched; collection items with ID 0 are new.
type Changeset struct {
	Status         Status
	Section        int
	AdultsInHome   *bool
	ChildrenInHome *bool

	Personal    *PersonalDetails
	Premises    *Premises
	Service     *ChildcareService
	Training    *Training
	Suitability *Suitability
	Declaration *Declaration

	Addresses  []AddressEntry
	Employment []EmploymentEntry
	Household  []HouseholdMember
	References []Reference

	// Deleted maps a collection section key to the ids flagged for removal.
	Deleted map[string][]int64
}

// Empty reports whether the changeset would write no child rows.
func (c *Changeset) Empty() bool {
	if c == nil {
		return true
	}
	return c.Personal == nil && c.Premises == nil && c.Service == nil &&
		c.Training == nil && c.Suitability == nil && c.Declaration == nil &&
		len(c.Addresses) == 0 && len(c.Employment) == 0 &&
		len(c.Household) == 0 && len(c.References) == 0 && len(c.Deleted) == 0
}
