package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/treadwise/agent/internal/model/contract"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

type Provider struct {
	client anthropic.Client
	model  string
}

func New(apiKey, baseURL, model string, timeout time.Duration) *Provider {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	client := anthropic.NewClient(opts...)
	return &Provider{client: client, model: model}
}

func (p *Provider) Name() string {
	return "anthropic"
}

func (p *Provider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	system, rest := contract.SplitSystem(req.Messages)
	// The API rejects tool_use/tool_result blocks when no tools are defined.
	if len(req.Tools) == 0 {
		rest = contract.FlattenToolHistory(rest)
	}

	var messages []anthropic.MessageParam
	for _, m := range rest {
		switch m.Role {
		case contract.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, rawInput(tc.Input), tc.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		case contract.RoleTool:
			block := anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)
			// Consecutive tool results belong in one user turn.
			if n := len(messages); n > 0 && messages[n-1].Role == anthropic.MessageParamRoleUser && isToolResultTurn(messages[n-1]) {
				messages[n-1].Content = append(messages[n-1].Content, block)
				continue
			}
			messages = append(messages, anthropic.NewUserMessage(block))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	var tools []anthropic.ToolUnionParam
	for _, t := range req.Tools {
		tool := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{Properties: map[string]interface{}{}},
		}
		if t.Parameters != nil {
			if props, ok := t.Parameters["properties"].(map[string]interface{}); ok {
				tool.InputSchema.Properties = props
			}
			if required, ok := t.Parameters["required"].([]string); ok {
				tool.InputSchema.Required = required
			}
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}

	modelName := req.Model
	if modelName == "" {
		modelName = p.model
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: defaultMaxTokens,
		Messages:  messages,
		Tools:     tools,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 && req.ToolChoice == contract.ToolChoiceAuto {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	resp := &contract.CompletionResponse{}
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content += b.Text
		case anthropic.ToolUseBlock:
			inputJSON, _ := json.Marshal(b.Input)
			resp.ToolCalls = append(resp.ToolCalls, &contract.ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: string(inputJSON),
			})
		}
	}

	return resp, nil
}

func isToolResultTurn(m anthropic.MessageParam) bool {
	for _, block := range m.Content {
		if block.OfToolResult == nil {
			return false
		}
	}
	return len(m.Content) > 0
}

func rawInput(input string) json.RawMessage {
	if !json.Valid([]byte(input)) {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(input)
}
