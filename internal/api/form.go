// internal/api/form.go
package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"childcare-registration/internal/models"
)

// maxFormItems bounds TOTAL_FORMS so a hostile post cannot allocate freely.
const maxFormItems = 50

var singleSectionPrefixes = []string{
	models.SectionPersonal,
	models.SectionPremises,
	models.SectionService,
	models.SectionTraining,
	models.SectionSuitability,
	models.SectionDeclaration,
}

// Collection form prefixes; they match the section keys.
var collectionPrefixes = []string{
	models.SectionAddresses,
	models.SectionEmployment,
	models.SectionHousehold,
	models.SectionReferences,
}

// formPost is a decoded prefixed form submission.
type formPost struct {
	Payload       *models.Payload
	ApplicationID string
}

// decodeForm maps fields such as "personal-first_name", "address-0-line1",
// "address-TOTAL_FORMS" and "address-0-DELETE" onto a Payload. A post
// without an action is a submission.
func decodeForm(values url.Values) (*formPost, error) {
	p := &models.Payload{Action: strings.TrimSpace(values.Get("action"))}
	if p.Action == "" {
		p.Action = models.ActionSubmit
	}

	if raw := strings.TrimSpace(values.Get("section")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("section %q is not a number", raw)
		}
		p.Section = n
	}
	if _, ok := values["adults_in_home"]; ok {
		v := formBool(last(values["adults_in_home"]))
		p.AdultsInHome = &v
	}
	if _, ok := values["children_in_home"]; ok {
		v := formBool(last(values["children_in_home"]))
		p.ChildrenInHome = &v
	}

	singles := make(map[string]map[string]interface{})
	items := make(map[string]map[int]map[string]interface{})
	totals := make(map[string]int)

	for key, vals := range values {
		prefix, rest, ok := strings.Cut(key, "-")
		if !ok || rest == "" {
			continue
		}
		if contains(singleSectionPrefixes, prefix) {
			if singles[prefix] == nil {
				singles[prefix] = map[string]interface{}{}
			}
			singles[prefix][rest] = last(vals)
			continue
		}
		if !contains(collectionPrefixes, prefix) {
			continue
		}

		indexPart, field, ok := strings.Cut(rest, "-")
		if !ok {
			if rest == "TOTAL_FORMS" {
				n, err := strconv.Atoi(strings.TrimSpace(last(vals)))
				if err != nil || n < 0 {
					return nil, fmt.Errorf("%s is not a valid count", key)
				}
				totals[prefix] = n
			}
			// INITIAL_FORMS, MIN_NUM_FORMS and MAX_NUM_FORMS carry nothing we use.
			continue
		}
		idx, err := strconv.Atoi(indexPart)
		if err != nil || idx < 0 || idx >= maxFormItems || field == "" {
			continue
		}
		if items[prefix] == nil {
			items[prefix] = map[int]map[string]interface{}{}
		}
		if items[prefix][idx] == nil {
			items[prefix][idx] = map[string]interface{}{}
		}
		items[prefix][idx][field] = last(vals)
	}

	p.Personal = singles[models.SectionPersonal]
	p.Premises = singles[models.SectionPremises]
	p.Service = singles[models.SectionService]
	p.Training = singles[models.SectionTraining]
	p.Suitability = singles[models.SectionSuitability]
	p.Declaration = singles[models.SectionDeclaration]

	p.Addresses = collect(items[models.SectionAddresses], totals, models.SectionAddresses)
	p.Employment = collect(items[models.SectionEmployment], totals, models.SectionEmployment)
	p.Household = collect(items[models.SectionHousehold], totals, models.SectionHousehold)
	p.References = collect(items[models.SectionReferences], totals, models.SectionReferences)
	for _, ref := range p.References {
		mergeReferenceName(ref)
	}

	return &formPost{
		Payload:       p,
		ApplicationID: strings.TrimSpace(values.Get("application_id")),
	}, nil
}

// collect orders items by index. With TOTAL_FORMS present only indexes
// below it count; without it every posted index does.
func collect(byIndex map[int]map[string]interface{}, totals map[string]int, prefix string) []map[string]interface{} {
	n, ok := totals[prefix]
	if !ok {
		for idx := range byIndex {
			if idx+1 > n {
				n = idx + 1
			}
		}
	}
	if n > maxFormItems {
		n = maxFormItems
	}
	if n == 0 {
		return nil
	}

	out := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		item := byIndex[i]
		if item == nil {
			item = map[string]interface{}{}
		}
		out = append(out, item)
	}
	return out
}

// mergeReferenceName folds the form's first_name/last_name pair into full_name.
func mergeReferenceName(ref map[string]interface{}) {
	first, _ := ref["first_name"].(string)
	lastName, _ := ref["last_name"].(string)
	delete(ref, "first_name")
	delete(ref, "last_name")
	if full, _ := ref["full_name"].(string); strings.TrimSpace(full) != "" {
		return
	}
	if name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(lastName)); name != "" {
		ref["full_name"] = name
	}
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// last returns the final value, so a checkbox overrides its hidden default.
func last(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[len(vals)-1]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// echoForm flattens a form post for the 422 response body.
func echoForm(values url.Values) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		out[k] = last(v)
	}
	return out
}
