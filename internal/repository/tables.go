// internal/repository/tables.go
package repository

import (
	"fmt"
	"reflect"
	"strings"

	"childcare-registration/internal/models"

	"github.com/google/uuid"
)

// childTable describes how one child entity maps onto its table. fields
// returns pointers to the entity's columns in the same order as columns.
type childTable[T any] struct {
	name    string
	section string
	columns []string
	orderBy string
	id      func(*T) *int64
	appID   func(*T) *uuid.UUID
	fields  func(*T) []interface{}
	// notEmpty is the SQL predicate for a row holding at least one non-default value.
	notEmpty string
}

func (t childTable[T]) selectColumns() string {
	return "id, application_id, " + strings.Join(t.columns, ", ")
}

func (t childTable[T]) selectByApplication() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE application_id = $1 ORDER BY %s",
		t.selectColumns(), t.name, t.orderBy)
}

func (t childTable[T]) selectByApplications() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE application_id = ANY($1::uuid[]) ORDER BY application_id, %s",
		t.selectColumns(), t.name, t.orderBy)
}

func (t childTable[T]) insert() string {
	return fmt.Sprintf("INSERT INTO %s (application_id, %s) VALUES (%s) RETURNING id",
		t.name, strings.Join(t.columns, ", "), placeholders(1, len(t.columns)+1))
}

// upsert writes a one-to-one child in place, keyed by its application.
func (t childTable[T]) upsert() string {
	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}
	return fmt.Sprintf("%s ON CONFLICT (application_id) DO UPDATE SET %s RETURNING id",
		strings.TrimSuffix(t.insert(), " RETURNING id"), strings.Join(sets, ", "))
}

// update never touches application_id and is scoped to the owning application.
func (t childTable[T]) update() string {
	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+3)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND application_id = $2",
		t.name, strings.Join(sets, ", "))
}

func (t childTable[T]) deleteByIDs() string {
	return fmt.Sprintf("DELETE FROM %s WHERE application_id = $1 AND id = ANY($2)", t.name)
}

func (t childTable[T]) emptyDraftRows() string {
	return fmt.Sprintf("FROM %s c WHERE c.application_id IN (SELECT id FROM applications WHERE status = 'DRAFT') AND NOT (%s)",
		t.name, t.notEmpty)
}

func (t childTable[T]) scanDest(item *T) []interface{} {
	return append([]interface{}{t.id(item), t.appID(item)}, t.fields(item)...)
}

// values dereferences the field pointers into query arguments.
func (t childTable[T]) values(item *T) []interface{} {
	ptrs := t.fields(item)
	out := make([]interface{}, len(ptrs))
	for i, p := range ptrs {
		out[i] = reflect.ValueOf(p).Elem().Interface()
	}
	return out
}

// key renders the column values so two items with equal content compare equal.
func (t childTable[T]) key(item *T) string {
	vals := t.values(item)
	parts := make([]string, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case *models.Date:
			if x == nil {
				parts[i] = "<nil>"
			} else {
				parts[i] = x.String()
			}
		case *int:
			if x == nil {
				parts[i] = "<nil>"
			} else {
				parts[i] = fmt.Sprint(*x)
			}
		default:
			parts[i] = fmt.Sprint(x)
		}
	}
	return strings.Join(parts, "\x1f")
}

func placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ph, ", ")
}

var personalTable = childTable[models.PersonalDetails]{
	name:    "personal_details",
	section: models.SectionPersonal,
	columns: []string{
		"title", "first_name", "middle_names", "last_name", "dob", "gender",
		"known_by_other_names", "email", "phone", "ni_number", "right_to_work_status",
		"lived_outside_uk", "military_base_abroad",
	},
	orderBy: "id",
	id:      func(p *models.PersonalDetails) *int64 { return &p.ID },
	appID:   func(p *models.PersonalDetails) *uuid.UUID { return &p.ApplicationID },
	fields: func(p *models.PersonalDetails) []interface{} {
		return []interface{}{
			&p.Title, &p.FirstName, &p.MiddleNames, &p.LastName, &p.DOB, &p.Gender,
			&p.KnownByOtherNames, &p.Email, &p.Phone, &p.NINumber, &p.RightToWorkStatus,
			&p.LivedOutsideUK, &p.MilitaryBaseAbroad,
		}
	},
}

var premisesTable = childTable[models.Premises]{
	name:    "premises",
	section: models.SectionPremises,
	columns: []string{
		"local_authority", "premises_type", "is_own_home", "has_outdoor_space", "has_pets", "pets_details",
	},
	orderBy: "id",
	id:      func(p *models.Premises) *int64 { return &p.ID },
	appID:   func(p *models.Premises) *uuid.UUID { return &p.ApplicationID },
	fields: func(p *models.Premises) []interface{} {
		return []interface{}{
			&p.LocalAuthority, &p.PremisesType, &p.IsOwnHome, &p.HasOutdoorSpace, &p.HasPets, &p.PetsDetails,
		}
	},
	notEmpty: "c.local_authority <> '' OR c.premises_type <> '' OR c.is_own_home OR c.has_outdoor_space OR c.has_pets OR c.pets_details <> ''",
}

var serviceTable = childTable[models.ChildcareService]{
	name:    "childcare_services",
	section: models.SectionService,
	columns: []string{
		"care_age_0_5", "care_age_5_8", "care_age_8_plus", "work_with_assistants", "number_of_assistants",
	},
	orderBy: "id",
	id:      func(s *models.ChildcareService) *int64 { return &s.ID },
	appID:   func(s *models.ChildcareService) *uuid.UUID { return &s.ApplicationID },
	fields: func(s *models.ChildcareService) []interface{} {
		return []interface{}{
			&s.CareAge0To5, &s.CareAge5To8, &s.CareAge8Plus, &s.WorkWithAssistants, &s.NumberOfAssistants,
		}
	},
	notEmpty: "c.care_age_0_5 OR c.care_age_5_8 OR c.care_age_8_plus OR c.work_with_assistants OR c.number_of_assistants > 0",
}

var trainingTable = childTable[models.Training]{
	name:    "training",
	section: models.SectionTraining,
	columns: []string{
		"first_aid_completed", "first_aid_date", "first_aid_org",
		"safeguarding_completed", "safeguarding_date", "safeguarding_org",
		"eyfs_completed", "eyfs_date", "eyfs_org",
		"level2_qual_completed", "level2_qual_date", "level2_qual_org",
		"food_hygiene_completed", "food_hygiene_date", "food_hygiene_org",
	},
	orderBy: "id",
	id:      func(t *models.Training) *int64 { return &t.ID },
	appID:   func(t *models.Training) *uuid.UUID { return &t.ApplicationID },
	fields: func(t *models.Training) []interface{} {
		return []interface{}{
			&t.FirstAidCompleted, &t.FirstAidDate, &t.FirstAidOrg,
			&t.SafeguardingCompleted, &t.SafeguardingDate, &t.SafeguardingOrg,
			&t.EYFSCompleted, &t.EYFSDate, &t.EYFSOrg,
			&t.Level2QualCompleted, &t.Level2QualDate, &t.Level2QualOrg,
			&t.FoodHygieneCompleted, &t.FoodHygieneDate, &t.FoodHygieneOrg,
		}
	},
	notEmpty: "c.first_aid_completed OR c.first_aid_date IS NOT NULL OR c.first_aid_org <> '' OR " +
		"c.safeguarding_completed OR c.safeguarding_date IS NOT NULL OR c.safeguarding_org <> '' OR " +
		"c.eyfs_completed OR c.eyfs_date IS NOT NULL OR c.eyfs_org <> '' OR " +
		"c.level2_qual_completed OR c.level2_qual_date IS NOT NULL OR c.level2_qual_org <> '' OR " +
		"c.food_hygiene_completed OR c.food_hygiene_date IS NOT NULL OR c.food_hygiene_org <> ''",
}

var suitabilityTable = childTable[models.Suitability]{
	name:    "suitability",
	section: models.SectionSuitability,
	columns: []string{
		"has_medical_condition", "medical_condition_details", "is_disqualified",
		"social_services_involved", "social_services_details", "has_dbs", "dbs_number",
	},
	orderBy: "id",
	id:      func(s *models.Suitability) *int64 { return &s.ID },
	appID:   func(s *models.Suitability) *uuid.UUID { return &s.ApplicationID },
	fields: func(s *models.Suitability) []interface{} {
		return []interface{}{
			&s.HasMedicalCondition, &s.MedicalConditionDetails, &s.IsDisqualified,
			&s.SocialServicesInvolved, &s.SocialServicesDetails, &s.HasDBS, &s.DBSNumber,
		}
	},
	notEmpty: "c.has_medical_condition OR c.medical_condition_details <> '' OR c.is_disqualified OR " +
		"c.social_services_involved OR c.social_services_details <> '' OR c.has_dbs OR c.dbs_number <> ''",
}

var declarationTable = childTable[models.Declaration]{
	name:    "declarations",
	section: models.SectionDeclaration,
	columns: []string{
		"consent_auth_contact", "consent_auth_share", "consent_understand_usage",
		"consent_understand_gdpr", "consent_truth", "signature", "print_name", "date_signed",
	},
	orderBy: "id",
	id:      func(d *models.Declaration) *int64 { return &d.ID },
	appID:   func(d *models.Declaration) *uuid.UUID { return &d.ApplicationID },
	fields: func(d *models.Declaration) []interface{} {
		return []interface{}{
			&d.ConsentAuthContact, &d.ConsentAuthShare, &d.ConsentUnderstandUsage,
			&d.ConsentUnderstandGDPR, &d.ConsentTruth, &d.Signature, &d.PrintName, &d.DateSigned,
		}
	},
	notEmpty: "c.consent_auth_contact OR c.consent_auth_share OR c.consent_understand_usage OR " +
		"c.consent_understand_gdpr OR c.consent_truth OR c.signature <> '' OR c.print_name <> '' OR c.date_signed IS NOT NULL",
}

var addressTable = childTable[models.AddressEntry]{
	name:    "address_entries",
	section: models.SectionAddresses,
	columns: []string{"line1", "line2", "town", "postcode", "move_in_date", "move_out_date", "is_current"},
	orderBy: "move_in_date DESC NULLS LAST, id",
	id:      func(a *models.AddressEntry) *int64 { return &a.ID },
	appID:   func(a *models.AddressEntry) *uuid.UUID { return &a.ApplicationID },
	fields: func(a *models.AddressEntry) []interface{} {
		return []interface{}{&a.Line1, &a.Line2, &a.Town, &a.Postcode, &a.MoveInDate, &a.MoveOutDate, &a.IsCurrent}
	},
}

var employmentTable = childTable[models.EmploymentEntry]{
	name:    "employment_entries",
	section: models.SectionEmployment,
	columns: []string{"employer_name", "role", "start_date", "end_date", "is_current"},
	orderBy: "start_date DESC NULLS LAST, id",
	id:      func(e *models.EmploymentEntry) *int64 { return &e.ID },
	appID:   func(e *models.EmploymentEntry) *uuid.UUID { return &e.ApplicationID },
	fields: func(e *models.EmploymentEntry) []interface{} {
		return []interface{}{&e.EmployerName, &e.Role, &e.StartDate, &e.EndDate, &e.IsCurrent}
	},
}

var householdTable = childTable[models.HouseholdMember]{
	name:    "household_members",
	section: models.SectionHousehold,
	columns: []string{"first_name", "last_name", "dob", "relationship", "is_adult"},
	orderBy: "id",
	id:      func(h *models.HouseholdMember) *int64 { return &h.ID },
	appID:   func(h *models.HouseholdMember) *uuid.UUID { return &h.ApplicationID },
	fields: func(h *models.HouseholdMember) []interface{} {
		return []interface{}{&h.FirstName, &h.LastName, &h.DOB, &h.Relationship, &h.IsAdult}
	},
}

var referenceTable = childTable[models.Reference]{
	name:    "applicant_references",
	section: models.SectionReferences,
	columns: []string{"full_name", "email", "phone", "relationship", "years_known"},
	orderBy: "id",
	id:      func(r *models.Reference) *int64 { return &r.ID },
	appID:   func(r *models.Reference) *uuid.UUID { return &r.ApplicationID },
	fields: func(r *models.Reference) []interface{} {
		return []interface{}{&r.FullName, &r.Email, &r.Phone, &r.Relationship, &r.YearsKnown}
	},
}
