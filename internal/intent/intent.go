// Package intent maps inbound chat text to one of the three supported intents.
package intent

import (
	"strings"

	"github.com/BTreeMap/LineSchedule/internal/models"
)

const (
	// DefaultQueryTrigger lists the entries of a picked day.
	DefaultQueryTrigger = "予定確認"
	// DefaultReportTrigger generates a report for a picked day.
	DefaultReportTrigger = "日報作成"
)

// Classifier dispatches on exact trigger phrases. Any other text is a new entry.
type Classifier struct {
	QueryTrigger  string
	ReportTrigger string
}

// NewClassifier returns a Classifier, falling back to the default phrases for empty triggers.
func NewClassifier(queryTrigger, reportTrigger string) *Classifier {
	if strings.TrimSpace(queryTrigger) == "" {
		queryTrigger = DefaultQueryTrigger
	}
	if strings.TrimSpace(reportTrigger) == "" {
		reportTrigger = DefaultReportTrigger
	}
	return &Classifier{
		QueryTrigger:  strings.TrimSpace(queryTrigger),
		ReportTrigger: strings.TrimSpace(reportTrigger),
	}
}

// Classify trims text and matches it against the trigger phrases.
// Empty text still classifies as a create intent with an empty payload;
// rejecting it is left to the caller.
func (c *Classifier) Classify(text string) models.Intent {
	text = strings.TrimSpace(text)
	switch text {
	case c.QueryTrigger:
		return models.Intent{Kind: models.IntentQueryDay}
	case c.ReportTrigger:
		return models.Intent{Kind: models.IntentGenerateReport}
	default:
		return models.Intent{Kind: models.IntentCreateSchedule, Payload: text}
	}
}
