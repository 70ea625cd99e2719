package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	twErrors "github.com/treadwise/agent/internal/errors"
	"github.com/treadwise/agent/internal/tool"
)

//go:embed templates/system.tmpl
var systemTemplate string

var systemTmpl = template.Must(template.New("system").Parse(systemTemplate))

// Data is interpolated into the system prompt.
type Data struct {
	BusinessName string
	Profile      string
	LeadTool     string
	FeedbackTool string
}

// LoadProfile reads the business profile once at startup.
func LoadProfile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", twErrors.InvalidInput("business profile path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", twErrors.NotFound(fmt.Sprintf("business profile %s", path))
		}
		return "", fmt.Errorf("read business profile: %w", err)
	}
	return string(raw), nil
}

// BuildSystem renders the system prompt for a business. An empty name
// falls back to TreadWise.
func BuildSystem(businessName, profile string) (string, error) {
	name := strings.TrimSpace(businessName)
	if name == "" {
		name = "TreadWise Tire Co."
	}
	data := Data{
		BusinessName: name,
		Profile:      profile,
		LeadTool:     tool.RecordCustomerInterestName,
		FeedbackTool: tool.RecordFeedbackName,
	}

	var buf bytes.Buffer
	if err := systemTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return buf.String(), nil
}
