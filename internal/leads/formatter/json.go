package formatter

import (
	"encoding/json"

	"github.com/treadwise/agent/internal/leads"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatLeads(records []leads.LeadRecord) (string, error) {
	return marshalJSON(records)
}

func (f *JSONFormatter) FormatFeedback(records []leads.FeedbackRecord) (string, error) {
	return marshalJSON(records)
}

func marshalJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
