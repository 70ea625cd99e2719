package formatter

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/treadwise/agent/internal/leads"
)

type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatLeads(records []leads.LeadRecord) (string, error) {
	return marshalYAML(records)
}

func (f *YAMLFormatter) FormatFeedback(records []leads.FeedbackRecord) (string, error) {
	return marshalYAML(records)
}

func marshalYAML(v interface{}) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
