// Package schema validates semi-structured field values against registered,
// versioned shapes before any entity accepts them. Validation is pure: the
// caller decides what to do with a rejection, nothing is ever half-applied.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// SchemaError reports why a candidate value failed its declared shape.
type SchemaError struct {
	FieldKind string
	Key       string // offending key, empty when the value as a whole is wrong
	Reason    string
}

func (e *SchemaError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("schema %s: key %q: %s", e.FieldKind, e.Key, e.Reason)
	}
	return fmt.Sprintf("schema %s: %s", e.FieldKind, e.Reason)
}

// ValidateFunc checks one candidate value against a field kind's shape.
type ValidateFunc func(value any) error

var registry = map[string]ValidateFunc{}

// Register adds a field kind under a version identifier. Shapes are
// versioned contracts: changing an existing kind is not allowed, a new shape
// gets a new identifier.
func Register(fieldKind string, fn ValidateFunc) {
	if _, exists := registry[fieldKind]; exists {
		panic(fmt.Sprintf("schema: field kind %q registered twice", fieldKind))
	}
	registry[fieldKind] = fn
}

// Validate checks value against the shape registered for fieldKind.
func Validate(fieldKind string, value any) error {
	fn, ok := registry[fieldKind]
	if !ok {
		return &SchemaError{FieldKind: fieldKind, Reason: "unregistered field kind"}
	}
	return fn(value)
}

func init() {
	Register(FieldKindDayRules, validateDayRules)
	Register(FieldKindTags, validateTags)
}

// Weekdays are the legacy weekday identifiers in week order, Monday first.
// The legacy system is Spanish-language; identifiers are matched
// case-insensitively and with accents folded.
var Weekdays = [7]string{"lunes", "martes", "miercoles", "jueves", "viernes", "sabado", "domingo"}

var weekdayFold = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u")

// CanonicalWeekday normalizes a weekday identifier and returns its offset
// from Monday. ok is false for anything outside the seven known names.
func CanonicalWeekday(name string) (canonical string, offset int, ok bool) {
	n := weekdayFold.Replace(strings.ToLower(strings.TrimSpace(name)))
	for i, d := range Weekdays {
		if n == d {
			return d, i, true
		}
	}
	return "", 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
