package validatesections

import (
	"testing"
	"time"

	"childcare-registration/internal/common/validation"
	"childcare-registration/internal/models"
	"childcare-registration/pkg/registry"
	"childcare-registration/pkg/testutil"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestValidator() *Validator {
	return NewValidator(LoadConfig(), registry.Default(), clockwork.NewFakeClockAt(testNow))
}

func errorPaths(errs []validation.FieldError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Path()
	}
	return out
}

// ==========================
// Submit Mode
// ==========================

func TestValidate_Submit_CompletePayload(t *testing.T) {
	res := newTestValidator().Validate(validation.ModeSubmit, testutil.CompletePayload())

	require.True(t, res.Valid(), "unexpected errors: %v", errorPaths(res.Errors))
	cs := res.Changeset
	require.NotNil(t, cs.Personal)
	assert.Equal(t, "Jane", cs.Personal.FirstName)
	assert.Equal(t, "AB123456C", cs.Personal.NINumber)
	assert.Equal(t, "1985-05-20", cs.Personal.DOB.String())
	assert.Equal(t, models.PremisesDomestic, cs.Premises.PremisesType)
	assert.True(t, cs.Premises.IsOwnHome)
	assert.Len(t, cs.Addresses, 1)
	assert.Len(t, cs.Employment, 1)
	assert.Len(t, cs.Household, 1)
	assert.Len(t, cs.References, 2)
	assert.Equal(t, 5, *cs.References[0].YearsKnown)
	assert.True(t, cs.Declaration.AllConsentsGiven())
	assert.Equal(t, 10, cs.Section)

	for _, key := range []string{"personal", "premises", "service", "declaration", "address", "reference"} {
		assert.True(t, res.Sections[key], key)
	}
}

func TestValidate_Submit_EmptyPayloadReportsRequired(t *testing.T) {
	res := newTestValidator().Validate(validation.ModeSubmit, &models.Payload{Action: models.ActionSubmit})

	require.False(t, res.Valid())
	paths := errorPaths(res.Errors)
	for _, want := range []string{
		"personal.first_name", "personal.ni_number", "personal.dob",
		"premises.local_authority", "premises.premises_type",
		"service.care_age_0_5",
		"declaration.signature", "declaration.consent_truth",
		"reference",
	} {
		assert.Contains(t, paths, want)
	}
	assert.Nil(t, res.Changeset.Personal, "absent sections are never written")
	assert.False(t, res.Sections["personal"])
	assert.True(t, res.Sections["training"], "training has no required fields")
}

func TestValidate_Submit_CrossFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *models.Payload)
		path   string
		code   string
	}{
		{
			name:   "no age band",
			mutate: func(p *models.Payload) { p.Service = map[string]interface{}{"care_age_8_plus": false} },
			path:   "service.care_age_0_5",
			code:   validation.CodeRuleViolation,
		},
		{
			name:   "dbs number required with has_dbs",
			mutate: func(p *models.Payload) { p.Suitability = map[string]interface{}{"has_dbs": "on"} },
			path:   "suitability.dbs_number",
			code:   validation.CodeMissingRequired,
		},
		{
			name:   "one consent missing",
			mutate: func(p *models.Payload) { p.Declaration["consent_understand_gdpr"] = false },
			path:   "declaration.consent_understand_gdpr",
			code:   validation.CodeRuleViolation,
		},
		{
			name:   "move out before move in",
			mutate: func(p *models.Payload) { p.Addresses[0]["move_out_date"] = "2019-12-31" },
			path:   "address[0].move_out_date",
			code:   validation.CodeRuleViolation,
		},
		{
			name:   "employment ends before it starts",
			mutate: func(p *models.Payload) { p.Employment[0]["end_date"] = "2014-12-31" },
			path:   "employment[0].end_date",
			code:   validation.CodeRuleViolation,
		},
		{
			name:   "only one valid reference",
			mutate: func(p *models.Payload) { p.References[1]["email"] = "not-an-email" },
			path:   "reference",
			code:   validation.CodeTooFewItems,
		},
		{
			name:   "negative years known",
			mutate: func(p *models.Payload) { p.References[0]["years_known"] = "-1" },
			path:   "reference[0].years_known",
			code:   validation.CodeOutOfRange,
		},
		{
			name:   "premises type outside choices",
			mutate: func(p *models.Payload) { p.Premises["premises_type"] = "Boat" },
			path:   "premises.premises_type",
			code:   validation.CodeInvalidChoice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testutil.CompletePayload()
			tt.mutate(p)

			res := newTestValidator().Validate(validation.ModeSubmit, p)

			require.False(t, res.Valid())
			var found bool
			for _, e := range res.Errors {
				if e.Path() == tt.path {
					found = true
					assert.Equal(t, tt.code, e.Code)
				}
			}
			assert.True(t, found, "expected error at %s, got %v", tt.path, errorPaths(res.Errors))
		})
	}
}

func TestValidate_Submit_DBSNumberLength(t *testing.T) {
	p := testutil.CompletePayload()
	p.Suitability = map[string]interface{}{"has_dbs": true, "dbs_number": "0012345678901"}

	res := newTestValidator().Validate(validation.ModeSubmit, p)
	assert.True(t, validation.HasErrorFor(res.Errors, "suitability", "dbs_number"))

	p.Suitability["dbs_number"] = "001234567890"
	res = newTestValidator().Validate(validation.ModeSubmit, p)
	assert.True(t, res.Valid(), errorPaths(res.Errors))
	assert.Equal(t, "001234567890", res.Changeset.Suitability.DBSNumber)
}

// ==========================
// Draft Mode
// ==========================

func TestValidate_Draft_NothingRequired(t *testing.T) {
	res := newTestValidator().Validate(validation.ModeDraft, testutil.DraftPayload())

	require.True(t, res.Valid(), errorPaths(res.Errors))
	require.NotNil(t, res.Changeset.Personal)
	assert.Equal(t, "Smith", res.Changeset.Personal.LastName)
	assert.Nil(t, res.Changeset.Premises)
	assert.Equal(t, map[string]bool{"personal": true}, res.Sections)
}

func TestValidate_Draft_FormatsStillApply(t *testing.T) {
	p := &models.Payload{
		Section: 1,
		Personal: map[string]interface{}{
			"first_name": "Jane",
			"dob":        "20/05/1985",
			"email":      "jane@",
			"ni_number":  "BG123456A",
		},
		Premises: map[string]interface{}{"local_authority": "Leeds"},
	}

	res := newTestValidator().Validate(validation.ModeDraft, p)

	assert.ElementsMatch(t, []string{"personal.dob", "personal.email", "personal.ni_number"}, errorPaths(res.Errors))
	assert.Nil(t, res.Changeset.Personal, "an invalid entity is not written")
	require.NotNil(t, res.Changeset.Premises, "valid siblings are kept")
	assert.False(t, res.Sections["personal"])
	assert.True(t, res.Sections["premises"])
}

func TestValidate_Draft_SkipsCrossFieldRules(t *testing.T) {
	p := &models.Payload{
		Service:     map[string]interface{}{"number_of_assistants": "2"},
		Declaration: map[string]interface{}{"signature": "J"},
		Addresses: []map[string]interface{}{
			{"line1": "1 High St", "move_in_date": "2020-01-01", "move_out_date": "2019-01-01"},
		},
	}

	res := newTestValidator().Validate(validation.ModeDraft, p)

	require.True(t, res.Valid(), errorPaths(res.Errors))
	assert.Equal(t, 2, res.Changeset.Service.NumberOfAssistants)
	assert.Len(t, res.Changeset.Addresses, 1)
}

func TestValidate_NINumberNormalized(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ab 12 34 56 c", "AB123456C"},
		{"QQ-123456-C", "QQ123456C"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p := &models.Payload{Personal: map[string]interface{}{"ni_number": tt.in}}
			res := newTestValidator().Validate(validation.ModeDraft, p)
			require.True(t, res.Valid(), errorPaths(res.Errors))
			assert.Equal(t, tt.want, res.Changeset.Personal.NINumber)
		})
	}
}

// ==========================
// Collections
// ==========================

func TestValidate_Collections(t *testing.T) {
	p := &models.Payload{
		Addresses: []map[string]interface{}{
			{"id": float64(4), "line1": "1 High St", "town": "Leeds"},
			{"id": "7", "DELETE": "on", "line1": ""},
			{"DELETE": true, "line1": "never saved"},
			{"line1": "", "line2": "", "is_current": "off"},
			{"line1": "2 Low Rd", "move_in_date": "bad"},
			{"id": "x1", "line1": "3 Mid Ln"},
		},
	}

	res := newTestValidator().Validate(validation.ModeDraft, p)

	require.Len(t, res.Changeset.Addresses, 1)
	assert.Equal(t, int64(4), res.Changeset.Addresses[0].ID)
	assert.Equal(t, []int64{7}, res.Changeset.Deleted[models.SectionAddresses])
	assert.ElementsMatch(t, []string{"address[4].move_in_date", "address[5].id"}, errorPaths(res.Errors))
	assert.False(t, res.Sections["address"])
}

func TestValidate_HouseholdAdultDerivedFromDOB(t *testing.T) {
	p := &models.Payload{
		Household: []map[string]interface{}{
			{"first_name": "Teen", "dob": "2009-03-10"},
			{"first_name": "Child", "dob": "2009-03-11"},
			{"first_name": "Explicit", "dob": "2015-01-01", "is_adult": true},
			{"first_name": "Unknown"},
		},
	}

	res := newTestValidator().Validate(validation.ModeDraft, p)

	require.True(t, res.Valid(), errorPaths(res.Errors))
	require.Len(t, res.Changeset.Household, 4)
	assert.True(t, res.Changeset.Household[0].IsAdult, "sixteenth birthday today")
	assert.False(t, res.Changeset.Household[1].IsAdult, "sixteen tomorrow")
	assert.True(t, res.Changeset.Household[2].IsAdult)
	assert.True(t, res.Changeset.Household[3].IsAdult)
}

func TestValidate_SectionOutOfRange(t *testing.T) {
	res := newTestValidator().Validate(validation.ModeDraft, &models.Payload{Section: 11})

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "application.section", res.Errors[0].Path())
	assert.Zero(t, res.Changeset.Section)
}

func TestValidate_MinItemsFromRegistry(t *testing.T) {
	reg, err := registry.Parse([]byte(`{"version": "t", "sections": [
		{"index": 1, "key": "reference", "title": "References", "repeating": true, "minItems": 3}
	]}`))
	require.NoError(t, err)
	v := NewValidator(LoadConfig(), reg, clockwork.NewFakeClockAt(testNow))

	res := v.Validate(validation.ModeSubmit, &models.Payload{References: testutil.CompletePayload().References})

	assert.Contains(t, errorPaths(res.Errors), "reference")
	assert.Len(t, res.Changeset.References, 2)
}
