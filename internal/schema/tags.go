package schema

import "fmt"

// FieldKindTags is the registered shape for equipment tag sets.
const FieldKindTags = "tags_v1"

// TagType declares the value type a tag accepts, drawn from a closed set.
type TagType struct {
	Kind string   // "boolean", "string", "enumerated", "integer-range"
	Enum []string // for enumerated
	Min  int      // for integer-range
	Max  int
}

// tagDeclarations is the closed tag vocabulary of tags_v1. New tags mean a
// new field kind version, never an edit here.
var tagDeclarations = map[string]TagType{
	"critical":           {Kind: "boolean"},
	"calibration_due":    {Kind: "boolean"},
	"risk_class":         {Kind: "enumerated", Enum: []string{"low", "medium", "high"}},
	"service_life_years": {Kind: "integer-range", Min: 0, Max: 50},
	"maintainer":         {Kind: "string"},
}

func validateTags(value any) error {
	m, ok := value.(map[string]any)
	if !ok {
		return &SchemaError{FieldKind: FieldKindTags, Reason: "value must be a mapping of tag name to value"}
	}
	for _, name := range sortedKeys(m) {
		decl, ok := tagDeclarations[name]
		if !ok {
			return &SchemaError{FieldKind: FieldKindTags, Key: name, Reason: "unknown tag"}
		}
		if err := checkTagValue(name, decl, m[name]); err != nil {
			return err
		}
	}
	return nil
}

func checkTagValue(name string, decl TagType, v any) error {
	switch decl.Kind {
	case "boolean":
		if _, ok := v.(bool); !ok {
			return &SchemaError{FieldKind: FieldKindTags, Key: name, Reason: "expected a boolean"}
		}
	case "string":
		if _, ok := v.(string); !ok {
			return &SchemaError{FieldKind: FieldKindTags, Key: name, Reason: "expected a string"}
		}
	case "enumerated":
		s, ok := v.(string)
		if !ok {
			return &SchemaError{FieldKind: FieldKindTags, Key: name, Reason: fmt.Sprintf("expected one of %v", decl.Enum)}
		}
		for _, allowed := range decl.Enum {
			if s == allowed {
				return nil
			}
		}
		return &SchemaError{FieldKind: FieldKindTags, Key: name, Reason: fmt.Sprintf("value %q not in %v", s, decl.Enum)}
	case "integer-range":
		n, ok := asInt(v)
		if !ok {
			return &SchemaError{FieldKind: FieldKindTags, Key: name, Reason: "expected an integer"}
		}
		if n < decl.Min || n > decl.Max {
			return &SchemaError{FieldKind: FieldKindTags, Key: name,
				Reason: fmt.Sprintf("value %d outside range [%d,%d]", n, decl.Min, decl.Max)}
		}
	}
	return nil
}

// asInt accepts the integer encodings a tag value arrives in: native ints
// from Go callers, float64 from decoded JSON (only when integral).
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
