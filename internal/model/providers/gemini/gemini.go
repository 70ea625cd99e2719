package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/treadwise/agent/internal/model/contract"

	"google.golang.org/genai"
)

type Provider struct {
	client *genai.Client
	model  string
}

func New(apiKey, baseURL, model string, timeout time.Duration) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return &Provider{client: client, model: model}, nil
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	system, rest := contract.SplitSystem(req.Messages)
	// Function calls in the history must be backed by declarations.
	if len(req.Tools) == 0 {
		rest = contract.FlattenToolHistory(rest)
	}

	var contents []*genai.Content
	for _, m := range rest {
		switch m.Role {
		case contract.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     m.Name,
				Response: map[string]any{"output": m.Content},
			}}
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{part}})
		case contract.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Input), &args)
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args}})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}

	genCfg := &genai.GenerateContentConfig{}
	if system != "" {
		genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if len(req.Tools) > 0 {
		var decls []*genai.FunctionDeclaration
		for _, t := range req.Tools {
			b, _ := json.Marshal(t.Parameters)
			var schema genai.Schema
			_ = json.Unmarshal(b, &schema)
			decls = append(decls, &genai.FunctionDeclaration{Name: t.Name, Description: t.Description, Parameters: &schema})
		}
		genCfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		if req.ToolChoice == contract.ToolChoiceAuto {
			genCfg.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto}}
		}
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	out := &contract.CompletionResponse{}
	if resp == nil {
		return out, nil
	}

	for _, fc := range resp.FunctionCalls() {
		argsJSON, _ := json.Marshal(fc.Args)
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", len(out.ToolCalls)+1)
		}
		out.ToolCalls = append(out.ToolCalls, &contract.ToolCall{ID: id, Name: fc.Name, Input: string(argsJSON)})
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				out.Content += part.Text
			}
		}
	}

	return out, nil
}
