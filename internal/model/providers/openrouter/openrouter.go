package openrouter

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/treadwise/agent/internal/model/contract"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	SiteURL  string
	SiteName string
	Timeout  time.Duration
}

type Provider struct {
	client openaisdk.Client
	model  string
}

func New(cfg Config) *Provider {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts = append(opts, option.WithBaseURL(baseURL))

	// OpenRouter attribution headers
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Provider{client: openaisdk.NewClient(opts...), model: cfg.Model}
}

func (p *Provider) Name() string {
	return "openrouter"
}

func (p *Provider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case contract.RoleSystem:
			messages = append(messages, openaisdk.SystemMessage(m.Content))
		case contract.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openaisdk.AssistantMessage(m.Content))
				continue
			}
			assistant := openaisdk.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openaisdk.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openaisdk.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Input,
					},
				})
			}
			messages = append(messages, openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case contract.RoleTool:
			messages = append(messages, openaisdk.ToolMessage(m.Content, m.ToolCallID))
		default:
			messages = append(messages, openaisdk.UserMessage(m.Content))
		}
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(model),
		Messages: messages,
	}
	for _, t := range req.Tools {
		fn := openaisdk.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openaisdk.String(t.Description),
		}
		if t.Parameters != nil {
			fn.Parameters = openaisdk.FunctionParameters(t.Parameters)
		}
		params.Tools = append(params.Tools, openaisdk.ChatCompletionToolParam{Function: fn})
	}
	if len(params.Tools) > 0 && req.ToolChoice != "" {
		params.ToolChoice = openaisdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openaisdk.String(req.ToolChoice)}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openrouter request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	msg := resp.Choices[0].Message
	out := &contract.CompletionResponse{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", len(out.ToolCalls)+1)
		}
		out.ToolCalls = append(out.ToolCalls, &contract.ToolCall{
			ID:    id,
			Name:  tc.Function.Name,
			Input: tc.Function.Arguments,
		})
	}

	return out, nil
}
