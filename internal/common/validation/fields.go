// internal/common/validation/fields.go
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode selects relaxed (draft) or strict (submit) validation.
type Mode string

const (
	ModeDraft  Mode = "draft"
	ModeSubmit Mode = "submit"
)

func (m Mode) Strict() bool {
	return m == ModeSubmit
}

const (
	CodeMissingRequired = "MISSING_REQUIRED"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeInvalidType     = "INVALID_TYPE"
	CodeInvalidChoice   = "INVALID_CHOICE"
	CodeTooLong         = "TOO_LONG"
	CodeOutOfRange      = "OUT_OF_RANGE"
	CodeRuleViolation   = "RULE_VIOLATION"
	CodeTooFewItems     = "TOO_FEW_ITEMS"
)

// FieldError is a user-correctable problem with one field of one entity.
// Index is set for items of repeating collections.
type FieldError struct {
	Entity  string `json:"entity"`
	Index   *int   `json:"index,omitempty"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Path renders the error location as entity[index].field.
func (e FieldError) Path() string {
	var b strings.Builder
	b.WriteString(e.Entity)
	if e.Index != nil {
		fmt.Fprintf(&b, "[%d]", *e.Index)
	}
	if e.Field != "" {
		b.WriteString(".")
		b.WriteString(e.Field)
	}
	return b.String()
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path(), e.Message)
}

// HasErrorFor reports whether errs contains an error for entity.field at any index.
func HasErrorFor(errs []FieldError, entity, field string) bool {
	for _, e := range errs {
		if e.Entity == entity && e.Field == field {
			return true
		}
	}
	return false
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,20}$`)

	// Two prefix letters, six digits, suffix A-D. Prefix letter rules are
	// checked separately so that the QQ example prefix is accepted.
	niPattern = regexp.MustCompile(`^([A-Z]{2})([0-9]{6})([A-D])$`)

	niSeparators = strings.NewReplacer(" ", "", "-", "", "\t", "")
)

const niExamplePrefix = "QQ"

var (
	niDisallowedFirst  = "DFIQUV"
	niDisallowedSecond = "DFIOQUV"
	niDisallowedPrefix = map[string]bool{
		"BG": true, "GB": true, "KN": true, "NK": true,
		"NT": true, "TN": true, "ZZ": true,
	}
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// NormalizeNINumber removes spaces and dashes and upper-cases the result.
// Applying it twice yields the same value.
func NormalizeNINumber(raw string) string {
	return strings.ToUpper(niSeparators.Replace(strings.TrimSpace(raw)))
}

// ValidateNINumber checks an already-normalized national insurance number.
func ValidateNINumber(ni string) bool {
	m := niPattern.FindStringSubmatch(ni)
	if m == nil {
		return false
	}
	prefix := m[1]
	if prefix == niExamplePrefix {
		return true
	}
	if niDisallowedPrefix[prefix] {
		return false
	}
	if strings.ContainsRune(niDisallowedFirst, rune(prefix[0])) {
		return false
	}
	if strings.ContainsRune(niDisallowedSecond, rune(prefix[1])) {
		return false
	}
	return true
}
