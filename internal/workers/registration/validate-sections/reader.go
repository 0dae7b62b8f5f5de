// internal/workers/registration/validate-sections/reader.go
package validatesections

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"childcare-registration/internal/common/validation"
	"childcare-registration/internal/models"
)

// fieldReader coerces the raw values of one posted entity and records
// problems against it. Required checks only apply in submit mode.
type fieldReader struct {
	entity string
	index  *int
	mode   validation.Mode
	data   map[string]interface{}
	errs   []validation.FieldError
}

func newReader(entity string, index *int, mode validation.Mode, data map[string]interface{}) *fieldReader {
	if data == nil {
		data = map[string]interface{}{}
	}
	return &fieldReader{entity: entity, index: index, mode: mode, data: data}
}

func (r *fieldReader) fail(field, code, format string, args ...interface{}) {
	r.errs = append(r.errs, validation.FieldError{
		Entity:  r.entity,
		Index:   r.index,
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *fieldReader) failed() bool {
	return len(r.errs) > 0
}

// has reports whether the field was posted with a non-empty value.
func (r *fieldReader) has(field string) bool {
	v, ok := r.data[field]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

func (r *fieldReader) missing(field string, required bool) bool {
	if r.has(field) {
		return false
	}
	if required && r.mode.Strict() {
		r.fail(field, validation.CodeMissingRequired, "This field is required.")
	}
	return true
}

func (r *fieldReader) raw(field string) (string, bool) {
	switch v := r.data[field].(type) {
	case string:
		return strings.TrimSpace(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		r.fail(field, validation.CodeInvalidType, "Expected a text value.")
		return "", false
	}
}

func (r *fieldReader) text(field string, required bool, maxLen int) string {
	if r.missing(field, required) {
		return ""
	}
	s, ok := r.raw(field)
	if !ok {
		return ""
	}
	if maxLen > 0 && len([]rune(s)) > maxLen {
		r.fail(field, validation.CodeTooLong, "Ensure this value has at most %d characters (it has %d).", maxLen, len([]rune(s)))
		return ""
	}
	return s
}

func (r *fieldReader) choice(field string, required bool, options ...string) string {
	s := r.text(field, required, 0)
	if s == "" {
		return ""
	}
	for _, o := range options {
		if s == o {
			return s
		}
	}
	r.fail(field, validation.CodeInvalidChoice, "Select a valid choice. %s is not one of the available choices.", s)
	return ""
}

func (r *fieldReader) email(field string, required bool) string {
	s := r.text(field, required, 254)
	if s != "" && !validation.ValidateEmail(s) {
		r.fail(field, validation.CodeInvalidFormat, "Enter a valid email address.")
		return ""
	}
	return s
}

func (r *fieldReader) phone(field string, required bool) string {
	s := r.text(field, required, 20)
	if s != "" && !validation.ValidatePhone(s) {
		r.fail(field, validation.CodeInvalidFormat, "Enter a valid phone number.")
		return ""
	}
	return s
}

// niNumber stores the normalized form of the identifier.
func (r *fieldReader) niNumber(field string, required bool) string {
	s := r.text(field, required, 0)
	if s == "" {
		return ""
	}
	ni := validation.NormalizeNINumber(s)
	if !validation.ValidateNINumber(ni) {
		r.fail(field, validation.CodeInvalidFormat, "Enter a valid National Insurance number, for example QQ123456C.")
		return ""
	}
	return ni
}

func (r *fieldReader) date(field string, required bool) *models.Date {
	if r.missing(field, required) {
		return nil
	}
	s, ok := r.raw(field)
	if !ok {
		return nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		r.fail(field, validation.CodeInvalidFormat, "Enter a valid date in the format YYYY-MM-DD.")
		return nil
	}
	return d
}

// boolean accepts JSON booleans and the values HTML checkboxes post. An
// absent field is false.
func (r *fieldReader) boolean(field string) bool {
	v, ok := r.data[field]
	if !ok || v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		if x == 0 || x == 1 {
			return x == 1
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "on", "true", "1", "yes", "y":
			return true
		case "", "off", "false", "0", "no", "n":
			return false
		}
	}
	r.fail(field, validation.CodeInvalidType, "Expected true or false.")
	return false
}

func (r *fieldReader) integer(field string, required bool, min int) *int {
	if r.missing(field, required) {
		return nil
	}
	var n int
	switch x := r.data[field].(type) {
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > math.MaxInt32 {
			r.fail(field, validation.CodeInvalidType, "Enter a whole number.")
			return nil
		}
		n = int(x)
	case int:
		n = x
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			r.fail(field, validation.CodeInvalidType, "Enter a whole number.")
			return nil
		}
		n = parsed
	default:
		r.fail(field, validation.CodeInvalidType, "Enter a whole number.")
		return nil
	}
	if n < min {
		r.fail(field, validation.CodeOutOfRange, "Ensure this value is greater than or equal to %d.", min)
		return nil
	}
	return &n
}

// itemID reads the stored id of a collection item; zero means new.
func itemID(item map[string]interface{}) (int64, bool) {
	switch v := item[models.ItemIDKey].(type) {
	case nil:
		return 0, true
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int64:
		return v, v >= 0
	case int:
		return int64(v), v >= 0
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, true
		}
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || id < 0 {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

func markedForDeletion(item map[string]interface{}) bool {
	r := newReader("", nil, validation.ModeDraft, item)
	return r.boolean(models.ItemDeleteKey) && !r.failed()
}

// blankItem reports whether a collection item carries no user input at all.
func blankItem(item map[string]interface{}) bool {
	for k, v := range item {
		if k == models.ItemIDKey || k == models.ItemDeleteKey {
			continue
		}
		switch x := v.(type) {
		case nil:
		case string:
			s := strings.ToLower(strings.TrimSpace(x))
			if s != "" && s != "off" && s != "false" {
				return false
			}
		case bool:
			if x {
				return false
			}
		default:
			return false
		}
	}
	return true
}
