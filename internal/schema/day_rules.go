package schema

// FieldKindDayRules is the registered shape for a service's per-weekday
// scheduling rules.
const FieldKindDayRules = "day_rules_v1"

// DayRule is the normalized form of one weekday's rule object.
type DayRule struct {
	Enabled  bool     `json:"enabled"`
	Services []string `json:"services,omitempty"`
}

// ParseDayRules validates a candidate day_rules_v1 value and returns it in
// normalized form with optional keys defaulted (enabled=true, services
// empty). Keys must be weekday identifiers; values are rule objects with
// recognized keys only, or a bare boolean as legacy shorthand for
// {"enabled": v}.
func ParseDayRules(value any) (map[string]DayRule, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, &SchemaError{FieldKind: FieldKindDayRules, Reason: "value must be a mapping of weekday to rule object"}
	}
	out := make(map[string]DayRule, len(m))
	for _, key := range sortedKeys(m) {
		day, _, ok := CanonicalWeekday(key)
		if !ok {
			return nil, &SchemaError{FieldKind: FieldKindDayRules, Key: key, Reason: "unknown weekday identifier"}
		}
		rule, err := parseDayRule(key, m[key])
		if err != nil {
			return nil, err
		}
		out[day] = rule
	}
	return out, nil
}

func parseDayRule(day string, v any) (DayRule, error) {
	rule := DayRule{Enabled: true}
	switch val := v.(type) {
	case bool:
		rule.Enabled = val
		return rule, nil
	case map[string]any:
		for _, opt := range sortedKeys(val) {
			switch opt {
			case "enabled":
				b, ok := val[opt].(bool)
				if !ok {
					return rule, &SchemaError{FieldKind: FieldKindDayRules, Key: day + "." + opt, Reason: "expected a boolean"}
				}
				rule.Enabled = b
			case "services":
				names, err := stringList(val[opt])
				if err != nil {
					return rule, &SchemaError{FieldKind: FieldKindDayRules, Key: day + "." + opt, Reason: "expected a list of strings"}
				}
				rule.Services = names
			default:
				return rule, &SchemaError{FieldKind: FieldKindDayRules, Key: day + "." + opt, Reason: "unrecognized rule option"}
			}
		}
		return rule, nil
	default:
		return rule, &SchemaError{FieldKind: FieldKindDayRules, Key: day, Reason: "expected a rule object or boolean"}
	}
}

func stringList(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, &SchemaError{FieldKind: FieldKindDayRules, Reason: "expected a list of strings"}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, &SchemaError{FieldKind: FieldKindDayRules, Reason: "expected a list of strings"}
	}
}

func validateDayRules(value any) error {
	_, err := ParseDayRules(value)
	return err
}
