package tool

import (
	"context"
	"strings"

	"github.com/treadwise/agent/internal/model/contract"
)

// Tool names exposed to the model.
const (
	RecordCustomerInterestName = "record_customer_interest"
	RecordFeedbackName         = "record_feedback"
)

// Handlers performs the side effects behind the tools. leads.Logger is the
// production implementation.
type Handlers interface {
	RecordCustomerInterest(ctx context.Context, email, name, message string) (string, error)
	RecordFeedback(ctx context.Context, question string) (string, error)
}

// Descriptor is the immutable description of one tool.
type Descriptor struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

func (d Descriptor) Definition() contract.ToolDef {
	return contract.ToolDef{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  d.Parameters,
	}
}

// Registry maps tool names to descriptors and dispatches decoded calls. It
// holds no state beyond its handlers.
type Registry struct {
	handlers    Handlers
	descriptors []Descriptor
	byName      map[string]Descriptor
}

func NewRegistry(handlers Handlers) *Registry {
	descriptors := []Descriptor{
		recordCustomerInterestDescriptor(),
		recordFeedbackDescriptor(),
	}
	byName := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name] = d
	}
	return &Registry{
		handlers:    handlers,
		descriptors: descriptors,
		byName:      byName,
	}
}

// Descriptors returns the registered tools in a stable order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Definitions returns the tool definitions sent with a completion request.
func (r *Registry) Definitions() []contract.ToolDef {
	defs := make([]contract.ToolDef, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		defs = append(defs, d.Definition())
	}
	return defs
}

func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.byName[NormalizeToolName(name)]
	return d, ok
}

func NormalizeToolName(name string) string {
	return strings.TrimSpace(name)
}

func recordCustomerInterestDescriptor() Descriptor {
	return Descriptor{
		Name:        RecordCustomerInterestName,
		Description: "Record customer contact information when they want to learn more, schedule service, get a quote, or express interest in TreadWise services.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"email": map[string]interface{}{
					"type":        "string",
					"description": "Customer's email address",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Customer's full name",
				},
				"message": map[string]interface{}{
					"type":        "string",
					"description": "Customer's inquiry, request, or message",
				},
			},
			"required": []string{"email", "name", "message"},
		},
	}
}

func recordFeedbackDescriptor() Descriptor {
	return Descriptor{
		Name:        RecordFeedbackName,
		Description: "Log questions that you cannot answer or topics outside your knowledge base for team review.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question or topic you cannot answer",
				},
			},
			"required": []string{"question"},
		},
	}
}
