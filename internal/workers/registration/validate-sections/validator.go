// internal/workers/registration/validate-sections/validator.go
package validatesections

import (
	"fmt"

	"childcare-registration/internal/common/metrics"
	"childcare-registration/internal/common/validation"
	"childcare-registration/internal/models"
	"childcare-registration/pkg/registry"

	"github.com/jonboulle/clockwork"
)

// Validator turns a raw Payload into a Changeset. It has no side effects
// beyond metrics, so the same payload always yields the same Result for a
// given clock reading.
type Validator struct {
	config   *Config
	registry *registry.SectionRegistry
	clock    clockwork.Clock
}

func NewValidator(config *Config, reg *registry.SectionRegistry, clock clockwork.Clock) *Validator {
	if config == nil {
		config = LoadConfig()
	}
	if reg == nil {
		reg = registry.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Validator{config: config, registry: reg, clock: clock}
}

func (v *Validator) Validate(mode validation.Mode, p *models.Payload) *Result {
	if p == nil {
		p = &models.Payload{}
	}
	res := &Result{
		Mode: mode,
		Changeset: &models.Changeset{
			Section:        p.Section,
			AdultsInHome:   p.AdultsInHome,
			ChildrenInHome: p.ChildrenInHome,
			Deleted:        map[string][]int64{},
		},
		Sections: map[string]bool{},
	}

	if p.Section < 0 || p.Section > v.registry.Count() {
		res.Errors = append(res.Errors, validation.FieldError{
			Entity:  "application",
			Field:   "section",
			Code:    validation.CodeOutOfRange,
			Message: "Unknown form section.",
		})
		res.Changeset.Section = 0
	}

	cs := res.Changeset
	cs.Personal = validateOne(res, models.SectionPersonal, p.Personal, v.personal)
	cs.Premises = validateOne(res, models.SectionPremises, p.Premises, v.premises)
	cs.Service = validateOne(res, models.SectionService, p.Service, v.service)
	cs.Training = validateOne(res, models.SectionTraining, p.Training, v.training)
	cs.Suitability = validateOne(res, models.SectionSuitability, p.Suitability, v.suitability)
	cs.Declaration = validateOne(res, models.SectionDeclaration, p.Declaration, v.declaration)

	cs.Addresses = validateMany(res, models.SectionAddresses, p.Addresses, v.address)
	cs.Employment = validateMany(res, models.SectionEmployment, p.Employment, v.employment)
	cs.Household = validateMany(res, models.SectionHousehold, p.Household, v.household)
	cs.References = validateMany(res, models.SectionReferences, p.References, v.reference)

	if mode.Strict() {
		v.checkMinimums(res)
	}

	for _, e := range res.Errors {
		metrics.ValidationErrors.WithLabelValues(e.Entity, string(mode)).Inc()
	}
	return res
}

// checkMinimums enforces the registry's minimum item counts for repeating sections.
func (v *Validator) checkMinimums(res *Result) {
	counts := map[string]int{
		models.SectionAddresses:  len(res.Changeset.Addresses),
		models.SectionEmployment: len(res.Changeset.Employment),
		models.SectionHousehold:  len(res.Changeset.Household),
		models.SectionReferences: len(res.Changeset.References),
	}
	for _, s := range v.registry.Sections {
		n, ok := counts[s.Key]
		if !ok || !s.Repeating || n >= s.MinItems {
			continue
		}
		res.record(s.Key, []validation.FieldError{{
			Entity:  s.Key,
			Code:    validation.CodeTooFewItems,
			Message: tooFewMessage(s, n),
		}})
	}
}

func tooFewMessage(s registry.Section, n int) string {
	return fmt.Sprintf("Please provide at least %d entries for %s (%d given).", s.MinItems, s.Title, n)
}

// validateOne checks a one-to-one section. In draft mode an absent section
// is skipped; in submit mode it is checked as if posted empty but never
// written.
func validateOne[T any](res *Result, section string, data map[string]interface{}, parse func(*fieldReader) *T) *T {
	if data == nil && !res.Mode.Strict() {
		return nil
	}
	r := newReader(section, nil, res.Mode, data)
	item := parse(r)
	res.record(section, r.errs)
	if r.failed() || data == nil {
		return nil
	}
	return item
}

// validateMany checks collection items one by one. Items flagged for
// deletion are collected into Deleted without validation, and blank new
// items are ignored.
func validateMany[T any](res *Result, section string, items []map[string]interface{}, parse func(*fieldReader, int64) *T) []T {
	out := []T{}
	var errs []validation.FieldError

	for i, raw := range items {
		idx := i
		id, ok := itemID(raw)
		if !ok {
			errs = append(errs, validation.FieldError{
				Entity:  section,
				Index:   &idx,
				Field:   models.ItemIDKey,
				Code:    validation.CodeInvalidType,
				Message: "Invalid item id.",
			})
			continue
		}
		if markedForDeletion(raw) {
			if id > 0 {
				res.Changeset.Deleted[section] = append(res.Changeset.Deleted[section], id)
			}
			continue
		}
		if id == 0 && blankItem(raw) {
			continue
		}

		r := newReader(section, &idx, res.Mode, raw)
		item := parse(r, id)
		if r.failed() {
			errs = append(errs, r.errs...)
			continue
		}
		out = append(out, *item)
	}

	if len(items) > 0 || res.Mode.Strict() {
		res.record(section, errs)
	}
	return out
}

// SectionCount is the number of form sections in the registry.
func (v *Validator) SectionCount() int {
	return v.registry.Count()
}
