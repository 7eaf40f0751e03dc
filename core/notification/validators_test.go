package notification

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
)

func TestNewRule_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	tests := []struct {
		name       string
		data       string
		wantFields map[string]string
	}{
		{
			name: "valid reminder",
			data: `{"name": "Day before", "type": "reminder", "minutes_before": 1440, "send_to_students": true}`,
		},
		{
			name: "valid followup at completion",
			data: `{"name": "Thanks", "type": "Followup", "minutes_after": 0, "send_to_teacher": true}`,
		},
		{
			name:       "blank name",
			data:       `{"name": "   ", "type": "reminder", "minutes_before": 60, "send_to_students": true}`,
			wantFields: map[string]string{"name": "this field is required"},
		},
		{
			name:       "unknown type",
			data:       `{"name": "lol", "type": "digest", "send_to_students": true}`,
			wantFields: map[string]string{"type": ruleTypeText},
		},
		{
			name:       "reminder without offset",
			data:       `{"name": "lol", "type": "reminder", "send_to_students": true}`,
			wantFields: map[string]string{"minutes_before": minutesBeforeText},
		},
		{
			name:       "reminder with zero offset",
			data:       `{"name": "lol", "type": "reminder", "minutes_before": 0, "send_to_students": true}`,
			wantFields: map[string]string{"minutes_before": minutesBeforeText},
		},
		{
			name:       "reminder with both offsets",
			data:       `{"name": "lol", "type": "reminder", "minutes_before": 30, "minutes_after": 30, "send_to_students": true}`,
			wantFields: map[string]string{"minutes_before": minutesBeforeText},
		},
		{
			name:       "followup with negative offset",
			data:       `{"name": "lol", "type": "followup", "minutes_after": -5, "send_to_students": true}`,
			wantFields: map[string]string{"minutes_after": minutesAfterText},
		},
		{
			name:       "followup with minutes_before",
			data:       `{"name": "lol", "type": "followup", "minutes_before": 5, "send_to_students": true}`,
			wantFields: map[string]string{"minutes_after": minutesAfterText},
		},
		{
			name:       "nobody to notify",
			data:       `{"name": "lol", "type": "reminder", "minutes_before": 60}`,
			wantFields: map[string]string{"send_to_students": audienceText},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var nr NewRule
			if err := json.Unmarshal([]byte(tc.data), &nr); err != nil {
				t.Fatalf("json.Unmarshal() failed: %v", err)
			}

			err := nr.Validate(validate)
			if tc.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			fields, ok := core.TranslateValidationErrors(err, translator)
			assert.True(t, ok)
			assert.Equal(t, tc.wantFields, fields)
		})
	}
}

func TestRule_FireAt(t *testing.T) {
	start := mustTime("2025-03-10T09:00:00Z")
	tests := []struct {
		name string
		rule Rule
		want string
	}{
		{"reminder", Rule{Type: RuleReminder, MinutesBefore: nullInt(1440)}, "2025-03-09T09:00:00Z"},
		{"followup", Rule{Type: RuleFollowup, MinutesAfter: nullInt(90)}, "2025-03-10T10:30:00Z"},
		{"unknown type", Rule{Type: "lol", MinutesBefore: nullInt(10)}, "2025-03-10T09:00:00Z"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, mustTime(tc.want), tc.rule.FireAt(start))
		})
	}
}
