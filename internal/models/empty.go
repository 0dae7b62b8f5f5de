// internal/models/empty.go
package models

// The Empty methods report whether a one-to-one child carries nothing but
// default values. The cleanup job removes such rows from draft applications.

func (p *Premises) Empty() bool {
	return p == nil || (p.LocalAuthority == "" && p.PremisesType == "" && !p.IsOwnHome &&
		!p.HasOutdoorSpace && !p.HasPets && p.PetsDetails == "")
}

func (s *ChildcareService) Empty() bool {
	return s == nil || (!s.CareAge0To5 && !s.CareAge5To8 && !s.CareAge8Plus &&
		!s.WorkWithAssistants && s.NumberOfAssistants == 0)
}

func (t *Training) Empty() bool {
	return t == nil || (!t.FirstAidCompleted && t.FirstAidDate == nil && t.FirstAidOrg == "" &&
		!t.SafeguardingCompleted && t.SafeguardingDate == nil && t.SafeguardingOrg == "" &&
		!t.EYFSCompleted && t.EYFSDate == nil && t.EYFSOrg == "" &&
		!t.Level2QualCompleted && t.Level2QualDate == nil && t.Level2QualOrg == "" &&
		!t.FoodHygieneCompleted && t.FoodHygieneDate == nil && t.FoodHygieneOrg == "")
}

func (s *Suitability) Empty() bool {
	return s == nil || (!s.HasMedicalCondition && s.MedicalConditionDetails == "" &&
		!s.IsDisqualified && !s.SocialServicesInvolved && s.SocialServicesDetails == "" &&
		!s.HasDBS && s.DBSNumber == "")
}

func (d *Declaration) Empty() bool {
	return d == nil || (!d.ConsentAuthContact && !d.ConsentAuthShare && !d.ConsentUnderstandUsage &&
		!d.ConsentUnderstandGDPR && !d.ConsentTruth && d.Signature == "" && d.PrintName == "" &&
		d.DateSigned == nil)
}
