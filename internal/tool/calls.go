package tool

import (
	"encoding/json"
	"strings"

	twErrors "github.com/treadwise/agent/internal/errors"
)

// Call is a decoded, schema-checked tool invocation. The set of
// implementations is closed; Dispatch switches over all of them.
type Call interface {
	ToolName() string
	isCall()
}

type RecordCustomerInterestCall struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (RecordCustomerInterestCall) ToolName() string { return RecordCustomerInterestName }
func (RecordCustomerInterestCall) isCall()          {}

type RecordFeedbackCall struct {
	Question string `json:"question"`
}

func (RecordFeedbackCall) ToolName() string { return RecordFeedbackName }
func (RecordFeedbackCall) isCall()          {}

// Decode turns a model-issued tool name and raw JSON arguments into a Call.
// Nothing is invoked: unknown names fail with ErrUnknownTool and schema
// violations with ErrInvalidArguments.
func (r *Registry) Decode(name string, rawArgs string) (Call, error) {
	desc, ok := r.Get(name)
	if !ok {
		return nil, twErrors.UnknownTool(name)
	}

	input := json.RawMessage(strings.TrimSpace(rawArgs))
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	if err := ValidateInput(desc.Parameters, input); err != nil {
		return nil, twErrors.InvalidArguments(desc.Name, err)
	}

	switch desc.Name {
	case RecordCustomerInterestName:
		var call RecordCustomerInterestCall
		if err := json.Unmarshal(input, &call); err != nil {
			return nil, twErrors.InvalidArguments(desc.Name, err)
		}
		return call, nil
	case RecordFeedbackName:
		var call RecordFeedbackCall
		if err := json.Unmarshal(input, &call); err != nil {
			return nil, twErrors.InvalidArguments(desc.Name, err)
		}
		return call, nil
	default:
		return nil, twErrors.UnknownTool(name)
	}
}
