package intent

import (
	"testing"

	"github.com/BTreeMap/LineSchedule/internal/models"
)

func TestClassify(t *testing.T) {
	c := NewClassifier("", "")
	tests := []struct {
		name string
		text string
		want models.Intent
	}{
		{"query trigger", DefaultQueryTrigger, models.Intent{Kind: models.IntentQueryDay}},
		{"report trigger", DefaultReportTrigger, models.Intent{Kind: models.IntentGenerateReport}},
		{"trigger with surrounding space", "  " + DefaultQueryTrigger + "\n", models.Intent{Kind: models.IntentQueryDay}},
		{"plain text", "Dentist", models.Intent{Kind: models.IntentCreateSchedule, Payload: "Dentist"}},
		{"trigger as substring", DefaultQueryTrigger + "して", models.Intent{Kind: models.IntentCreateSchedule, Payload: DefaultQueryTrigger + "して"}},
		{"text with delimiters", "a&b=c", models.Intent{Kind: models.IntentCreateSchedule, Payload: "a&b=c"}},
		{"whitespace only", "   ", models.Intent{Kind: models.IntentCreateSchedule, Payload: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestNewClassifierCustomTriggers(t *testing.T) {
	c := NewClassifier(" today ", "report")
	if got := c.Classify("today"); got.Kind != models.IntentQueryDay {
		t.Errorf("expected query intent, got %+v", got)
	}
	if got := c.Classify("report"); got.Kind != models.IntentGenerateReport {
		t.Errorf("expected report intent, got %+v", got)
	}
	if got := c.Classify(DefaultQueryTrigger); got.Kind != models.IntentCreateSchedule {
		t.Errorf("expected default trigger to be ordinary text once overridden, got %+v", got)
	}
}
