package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_UnregisteredKind(t *testing.T) {
	err := Validate("day_rules_v99", map[string]any{})
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "day_rules_v99", schemaErr.FieldKind)
}

func TestValidateDayRules(t *testing.T) {
	testCases := []struct {
		name         string
		value        any
		expectErr    bool
		offendingKey string
	}{
		{
			name: "full week of rule objects",
			value: map[string]any{
				"lunes":     map[string]any{"enabled": true, "services": []any{"Urgencias", "Salud Mental"}},
				"martes":    map[string]any{"enabled": false},
				"miercoles": map[string]any{"services": []any{"Oncología"}},
				"jueves":    map[string]any{},
				"viernes":   map[string]any{"enabled": true},
				"sabado":    map[string]any{"enabled": false},
				"domingo":   map[string]any{"enabled": false},
			},
		},
		{
			name: "accented weekday identifiers accepted",
			value: map[string]any{
				"Miércoles": map[string]any{"enabled": true},
				"Sábado":    map[string]any{"enabled": false},
			},
		},
		{
			name: "legacy boolean shorthand",
			value: map[string]any{
				"lunes":  true,
				"martes": false,
			},
		},
		{
			name:         "unknown weekday rejected",
			value:        map[string]any{"lunedi": map[string]any{"enabled": true}},
			expectErr:    true,
			offendingKey: "lunedi",
		},
		{
			name:         "unrecognized option key rejected",
			value:        map[string]any{"lunes": map[string]any{"enabled": true, "color": "red"}},
			expectErr:    true,
			offendingKey: "lunes.color",
		},
		{
			name:         "wrong-typed enabled rejected",
			value:        map[string]any{"lunes": map[string]any{"enabled": "yes"}},
			expectErr:    true,
			offendingKey: "lunes.enabled",
		},
		{
			name:         "wrong-typed services rejected",
			value:        map[string]any{"lunes": map[string]any{"services": []any{"ok", 3}}},
			expectErr:    true,
			offendingKey: "lunes.services",
		},
		{
			name:      "non-mapping value rejected",
			value:     []any{"lunes"},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(FieldKindDayRules, tc.value)
			if !tc.expectErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			if tc.offendingKey != "" {
				assert.Equal(t, tc.offendingKey, schemaErr.Key, "error should name the offending key")
			}
		})
	}
}

func TestParseDayRules_Defaults(t *testing.T) {
	rules, err := ParseDayRules(map[string]any{
		"Lunes":  map[string]any{},
		"martes": map[string]any{"services": []any{"LC - QUÍMICA"}},
	})
	require.NoError(t, err)

	require.Contains(t, rules, "lunes")
	assert.True(t, rules["lunes"].Enabled, "enabled should default to true")
	assert.Empty(t, rules["lunes"].Services)
	assert.Equal(t, []string{"LC - QUÍMICA"}, rules["martes"].Services)
}

func TestValidateTags(t *testing.T) {
	testCases := []struct {
		name         string
		value        any
		expectErr    bool
		offendingKey string
	}{
		{
			name: "all declared tag types",
			value: map[string]any{
				"critical":           true,
				"calibration_due":    false,
				"risk_class":         "high",
				"service_life_years": 12,
				"maintainer":         "GE Healthcare",
			},
		},
		{
			name:  "json-decoded integer accepted",
			value: map[string]any{"service_life_years": float64(7)},
		},
		{
			name:         "unknown tag rejected",
			value:        map[string]any{"fancy": true},
			expectErr:    true,
			offendingKey: "fancy",
		},
		{
			name:         "boolean tag with string value rejected",
			value:        map[string]any{"critical": "yes"},
			expectErr:    true,
			offendingKey: "critical",
		},
		{
			name:         "enumerated value outside set rejected",
			value:        map[string]any{"risk_class": "extreme"},
			expectErr:    true,
			offendingKey: "risk_class",
		},
		{
			name:         "integer outside range rejected",
			value:        map[string]any{"service_life_years": 51},
			expectErr:    true,
			offendingKey: "service_life_years",
		},
		{
			name:         "fractional number rejected for integer range",
			value:        map[string]any{"service_life_years": 3.5},
			expectErr:    true,
			offendingKey: "service_life_years",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(FieldKindTags, tc.value)
			if !tc.expectErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tc.offendingKey, schemaErr.Key)
		})
	}
}

func TestCanonicalWeekday(t *testing.T) {
	day, offset, ok := CanonicalWeekday("Miércoles")
	require.True(t, ok)
	assert.Equal(t, "miercoles", day)
	assert.Equal(t, 2, offset)

	_, _, ok = CanonicalWeekday("lunedi")
	assert.False(t, ok)
}
