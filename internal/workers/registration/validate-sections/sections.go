// internal/workers/registration/validate-sections/sections.go
package validatesections

import (
	"childcare-registration/internal/common/validation"
	"childcare-registration/internal/models"
)

const (
	maxName     = 100
	maxText     = 255
	maxPostcode = 10
	maxDBS      = 12
)

func (v *Validator) personal(r *fieldReader) *models.PersonalDetails {
	return &models.PersonalDetails{
		Title:              r.text("title", true, 10),
		FirstName:          r.text("first_name", true, maxName),
		MiddleNames:        r.text("middle_names", false, maxName),
		LastName:           r.text("last_name", true, maxName),
		DOB:                r.date("dob", true),
		Gender:             r.text("gender", true, 20),
		KnownByOtherNames:  r.boolean("known_by_other_names"),
		Email:              r.email("email", true),
		Phone:              r.phone("phone", true),
		NINumber:           r.niNumber("ni_number", true),
		RightToWorkStatus:  r.text("right_to_work_status", true, maxName),
		LivedOutsideUK:     r.boolean("lived_outside_uk"),
		MilitaryBaseAbroad: r.boolean("military_base_abroad"),
	}
}

func (v *Validator) premises(r *fieldReader) *models.Premises {
	return &models.Premises{
		LocalAuthority:  r.text("local_authority", true, maxName),
		PremisesType:    r.choice("premises_type", true, models.PremisesDomestic, models.PremisesNonDomestic),
		IsOwnHome:       r.boolean("is_own_home"),
		HasOutdoorSpace: r.boolean("has_outdoor_space"),
		HasPets:         r.boolean("has_pets"),
		PetsDetails:     r.text("pets_details", false, 0),
	}
}

func (v *Validator) service(r *fieldReader) *models.ChildcareService {
	s := &models.ChildcareService{
		CareAge0To5:        r.boolean("care_age_0_5"),
		CareAge5To8:        r.boolean("care_age_5_8"),
		CareAge8Plus:       r.boolean("care_age_8_plus"),
		WorkWithAssistants: r.boolean("work_with_assistants"),
	}
	if n := r.integer("number_of_assistants", false, 0); n != nil {
		s.NumberOfAssistants = *n
	}
	if r.mode.Strict() && !s.CareAge0To5 && !s.CareAge5To8 && !s.CareAge8Plus {
		r.fail("care_age_0_5", validation.CodeRuleViolation, "Select at least one age group you will care for.")
	}
	return s
}

func (v *Validator) training(r *fieldReader) *models.Training {
	return &models.Training{
		FirstAidCompleted:     r.boolean("first_aid_completed"),
		FirstAidDate:          r.date("first_aid_date", false),
		FirstAidOrg:           r.text("first_aid_org", false, maxText),
		SafeguardingCompleted: r.boolean("safeguarding_completed"),
		SafeguardingDate:      r.date("safeguarding_date", false),
		SafeguardingOrg:       r.text("safeguarding_org", false, maxText),
		EYFSCompleted:         r.boolean("eyfs_completed"),
		EYFSDate:              r.date("eyfs_date", false),
		EYFSOrg:               r.text("eyfs_org", false, maxText),
		Level2QualCompleted:   r.boolean("level2_qual_completed"),
		Level2QualDate:        r.date("level2_qual_date", false),
		Level2QualOrg:         r.text("level2_qual_org", false, maxText),
		FoodHygieneCompleted:  r.boolean("food_hygiene_completed"),
		FoodHygieneDate:       r.date("food_hygiene_date", false),
		FoodHygieneOrg:        r.text("food_hygiene_org", false, maxText),
	}
}

func (v *Validator) suitability(r *fieldReader) *models.Suitability {
	s := &models.Suitability{
		HasMedicalCondition:     r.boolean("has_medical_condition"),
		MedicalConditionDetails: r.text("medical_condition_details", false, 0),
		IsDisqualified:          r.boolean("is_disqualified"),
		SocialServicesInvolved:  r.boolean("social_services_involved"),
		SocialServicesDetails:   r.text("social_services_details", false, 0),
		HasDBS:                  r.boolean("has_dbs"),
	}
	s.DBSNumber = r.text("dbs_number", s.HasDBS, maxDBS)
	return s
}

var consentFields = []string{
	"consent_auth_contact",
	"consent_auth_share",
	"consent_understand_usage",
	"consent_understand_gdpr",
	"consent_truth",
}

func (v *Validator) declaration(r *fieldReader) *models.Declaration {
	d := &models.Declaration{
		ConsentAuthContact:     r.boolean("consent_auth_contact"),
		ConsentAuthShare:       r.boolean("consent_auth_share"),
		ConsentUnderstandUsage: r.boolean("consent_understand_usage"),
		ConsentUnderstandGDPR:  r.boolean("consent_understand_gdpr"),
		ConsentTruth:           r.boolean("consent_truth"),
		Signature:              r.text("signature", true, maxText),
		PrintName:              r.text("print_name", true, maxText),
		DateSigned:             r.date("date_signed", true),
	}
	if r.mode.Strict() {
		given := []bool{d.ConsentAuthContact, d.ConsentAuthShare, d.ConsentUnderstandUsage, d.ConsentUnderstandGDPR, d.ConsentTruth}
		for i, ok := range given {
			if !ok {
				r.fail(consentFields[i], validation.CodeRuleViolation, "You must agree to this statement to submit.")
			}
		}
	}
	return d
}

func (v *Validator) address(r *fieldReader, id int64) *models.AddressEntry {
	a := &models.AddressEntry{
		ID:          id,
		Line1:       r.text("line1", true, maxText),
		Line2:       r.text("line2", false, maxText),
		Town:        r.text("town", true, maxName),
		Postcode:    r.text("postcode", true, maxPostcode),
		MoveInDate:  r.date("move_in_date", true),
		MoveOutDate: r.date("move_out_date", false),
		IsCurrent:   r.boolean("is_current"),
	}
	if r.mode.Strict() && a.MoveOutDate.Before(a.MoveInDate) {
		r.fail("move_out_date", validation.CodeRuleViolation, "Move-out date cannot be before the move-in date.")
	}
	return a
}

func (v *Validator) employment(r *fieldReader, id int64) *models.EmploymentEntry {
	e := &models.EmploymentEntry{
		ID:           id,
		EmployerName: r.text("employer_name", true, maxText),
		Role:         r.text("role", true, maxText),
		StartDate:    r.date("start_date", true),
		EndDate:      r.date("end_date", false),
		IsCurrent:    r.boolean("is_current"),
	}
	if r.mode.Strict() && e.EndDate.Before(e.StartDate) {
		r.fail("end_date", validation.CodeRuleViolation, "End date cannot be before the start date.")
	}
	return e
}

// household derives is_adult from the date of birth when the flag was not posted.
func (v *Validator) household(r *fieldReader, id int64) *models.HouseholdMember {
	m := &models.HouseholdMember{
		ID:           id,
		FirstName:    r.text("first_name", true, maxName),
		LastName:     r.text("last_name", true, maxName),
		DOB:          r.date("dob", true),
		Relationship: r.text("relationship", true, maxName),
		IsAdult:      true,
	}
	switch {
	case r.has("is_adult"):
		m.IsAdult = r.boolean("is_adult")
	case m.DOB != nil:
		m.IsAdult = m.DOB.YearsSince(v.clock.Now()) >= v.config.AdultAge
	}
	return m
}

func (v *Validator) reference(r *fieldReader, id int64) *models.Reference {
	return &models.Reference{
		ID:           id,
		FullName:     r.text("full_name", true, maxText),
		Email:        r.email("email", true),
		Phone:        r.phone("phone", true),
		Relationship: r.text("relationship", true, maxName),
		YearsKnown:   r.integer("years_known", true, 0),
	}
}
