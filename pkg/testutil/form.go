// pkg/testutil/form.go
package testutil

import "net/url"

// CompleteForm is CompletePayload as a browser posts it: prefixed fields,
// TOTAL_FORMS counters, "on" checkboxes and split reference names. With no
// action field it is a submission.
func CompleteForm() url.Values {
	return url.Values{
		"section":        {"10"},
		"adults_in_home": {"on"},

		"personal-title":                {"Mrs"},
		"personal-first_name":           {"Jane"},
		"personal-last_name":            {"Smith"},
		"personal-dob":                  {"1985-05-20"},
		"personal-gender":               {"Female"},
		"personal-email":                {"jane@example.com"},
		"personal-phone":                {"07987654321"},
		"personal-ni_number":            {"AB123456C"},
		"personal-right_to_work_status": {"British Citizen"},

		"premises-local_authority": {"Leeds"},
		"premises-premises_type":   {"Domestic"},
		"premises-is_own_home":     {"on"},

		"service-care_age_0_5":         {"on"},
		"service-number_of_assistants": {"0"},

		"declaration-consent_auth_contact":     {"on"},
		"declaration-consent_auth_share":       {"on"},
		"declaration-consent_understand_usage": {"on"},
		"declaration-consent_understand_gdpr":  {"on"},
		"declaration-consent_truth":            {"on"},
		"declaration-signature":                {"Jane Smith"},
		"declaration-print_name":               {"Jane Do Smith"},
		"declaration-date_signed":              {"2025-03-10"},

		"address-TOTAL_FORMS":    {"1"},
		"address-INITIAL_FORMS":  {"0"},
		"address-0-line1":        {"123 Fake St"},
		"address-0-town":         {"Leeds"},
		"address-0-postcode":     {"LS1 1AA"},
		"address-0-move_in_date": {"2020-01-01"},
		"address-0-is_current":   {"on"},

		"employment-TOTAL_FORMS":     {"1"},
		"employment-0-employer_name": {"Self"},
		"employment-0-role":          {"Nanny"},
		"employment-0-start_date":    {"2015-01-01"},

		"household-TOTAL_FORMS":    {"1"},
		"household-0-first_name":   {"Partner"},
		"household-0-last_name":    {"Smith"},
		"household-0-dob":          {"1980-01-01"},
		"household-0-relationship": {"Husband"},

		"reference-TOTAL_FORMS":    {"2"},
		"reference-0-first_name":   {"Ref1"},
		"reference-0-last_name":    {"Person"},
		"reference-0-email":        {"ref1@example.com"},
		"reference-0-phone":        {"0111111111"},
		"reference-0-relationship": {"Friend"},
		"reference-0-years_known":  {"5"},
		"reference-1-first_name":   {"Ref2"},
		"reference-1-last_name":    {"Person"},
		"reference-1-email":        {"ref2@example.com"},
		"reference-1-phone":        {"0222222222"},
		"reference-1-relationship": {"Colleague"},
		"reference-1-years_known":  {"3"},
	}
}
