package conformance_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treadwise/agent/internal/model/contract"
	"github.com/treadwise/agent/internal/model/providers/anthropic"
	"github.com/treadwise/agent/internal/model/providers/gemini"
	"github.com/treadwise/agent/internal/model/providers/openai"
	"github.com/treadwise/agent/internal/model/providers/openrouter"
)

const feedbackResult = "Question logged for review by our team."

type generator interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

type providerCase struct {
	name     string
	path     string
	response string
	// flattens reports whether tool history becomes plain text once the
	// request carries no tool definitions.
	flattens bool
	build    func(t *testing.T, url string) generator
	callIDs  func(body map[string]interface{}) []string
	result   func(body map[string]interface{}) []string
}

const chatCompletion = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "m",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"logprobs": null,
		"message": {"role": "assistant", "content": "done", "refusal": null}
	}]
}`

func providerCases() []providerCase {
	return []providerCase{
		{
			name:     "openai",
			path:     "/chat/completions",
			response: chatCompletion,
			build: func(t *testing.T, url string) generator {
				return openai.New("sk-test", url+"/", "gpt-4o-mini", 0)
			},
			callIDs: chatCallIDs,
			result:  chatResultIDs,
		},
		{
			name:     "openrouter",
			path:     "/chat/completions",
			response: chatCompletion,
			build: func(t *testing.T, url string) generator {
				return openrouter.New(openrouter.Config{APIKey: "or-key", BaseURL: url, Model: "openai/gpt-4o-mini"})
			},
			callIDs: chatCallIDs,
			result:  chatResultIDs,
		},
		{
			name: "anthropic",
			path: "/v1/messages",
			response: `{
				"id": "msg_1",
				"type": "message",
				"role": "assistant",
				"model": "claude-3-5-haiku-latest",
				"content": [{"type": "text", "text": "done"}],
				"stop_reason": "end_turn",
				"usage": {"input_tokens": 1, "output_tokens": 1}
			}`,
			flattens: true,
			build: func(t *testing.T, url string) generator {
				return anthropic.New("ak-test", url, "claude-3-5-haiku-latest", 0)
			},
			callIDs: func(body map[string]interface{}) []string {
				return anthropicBlockField(body, "tool_use", "id")
			},
			result: func(body map[string]interface{}) []string {
				return anthropicBlockField(body, "tool_result", "tool_use_id")
			},
		},
		{
			name: "gemini",
			path: ":generateContent",
			response: `{
				"candidates": [{
					"content": {"role": "model", "parts": [{"text": "done"}]},
					"finishReason": "STOP"
				}]
			}`,
			flattens: true,
			build: func(t *testing.T, url string) generator {
				p, err := gemini.New("gk-test", url, "gemini-2.0-flash", 0)
				require.NoError(t, err)
				return p
			},
			callIDs: func(body map[string]interface{}) []string {
				return geminiPartField(body, "functionCall")
			},
			result: func(body map[string]interface{}) []string {
				return geminiPartField(body, "functionResponse")
			},
		},
	}
}

// feedbackTurn is a turn where the model asked to log a question and the
// tool answered.
func feedbackTurn() []contract.Message {
	return []contract.Message{
		{Role: contract.RoleSystem, Content: "You are the TreadWise assistant."},
		{Role: contract.RoleUser, Content: "Do you sell bike tires?"},
		{Role: contract.RoleAssistant, ToolCalls: []*contract.ToolCall{{
			ID:    "call_1",
			Name:  "record_feedback",
			Input: `{"question":"Do you sell bike tires?"}`,
		}}},
		{Role: contract.RoleTool, ToolCallID: "call_1", Name: "record_feedback", Content: feedbackResult},
	}
}

func feedbackTool() contract.ToolDef {
	return contract.ToolDef{
		Name:        "record_feedback",
		Description: "Log questions the assistant could not answer",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"question": map[string]interface{}{"type": "string"}},
			"required":   []string{"question"},
		},
	}
}

func capture(t *testing.T, pc providerCase, req contract.CompletionRequest) (map[string]interface{}, string) {
	t.Helper()

	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, pc.path), "path %s", r.URL.Path)
		var err error
		raw, err = io.ReadAll(r.Body)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pc.response))
	}))
	defer srv.Close()

	resp, err := pc.build(t, srv.URL).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)
	assert.Empty(t, resp.ToolCalls)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body, string(raw)
}

func TestToolResultCarriesRequestedCallID(t *testing.T) {
	for _, pc := range providerCases() {
		t.Run(pc.name, func(t *testing.T) {
			body, _ := capture(t, pc, contract.CompletionRequest{
				Messages:   feedbackTurn(),
				Tools:      []contract.ToolDef{feedbackTool()},
				ToolChoice: contract.ToolChoiceAuto,
			})

			assert.Equal(t, []string{"call_1"}, pc.callIDs(body))
			assert.Equal(t, []string{"call_1"}, pc.result(body))
			assert.NotEmpty(t, body["tools"])
		})
	}
}

func TestFinalCallWithoutToolsKeepsToolOutput(t *testing.T) {
	for _, pc := range providerCases() {
		t.Run(pc.name, func(t *testing.T) {
			body, raw := capture(t, pc, contract.CompletionRequest{Messages: feedbackTurn()})

			assert.Empty(t, body["tools"])
			assert.Contains(t, raw, feedbackResult)
			if pc.flattens {
				assert.Empty(t, pc.callIDs(body))
				assert.Empty(t, pc.result(body))
				return
			}
			assert.Equal(t, []string{"call_1"}, pc.result(body))
		})
	}
}

func chatCallIDs(body map[string]interface{}) []string {
	var ids []string
	for _, m := range list(body["messages"]) {
		for _, tc := range list(m["tool_calls"]) {
			ids = append(ids, str(tc["id"]))
		}
	}
	return ids
}

func chatResultIDs(body map[string]interface{}) []string {
	var ids []string
	for _, m := range list(body["messages"]) {
		if m["role"] == "tool" {
			ids = append(ids, str(m["tool_call_id"]))
		}
	}
	return ids
}

func anthropicBlockField(body map[string]interface{}, blockType, field string) []string {
	var ids []string
	for _, m := range list(body["messages"]) {
		for _, block := range list(m["content"]) {
			if block["type"] == blockType {
				ids = append(ids, str(block[field]))
			}
		}
	}
	return ids
}

func geminiPartField(body map[string]interface{}, kind string) []string {
	var ids []string
	for _, c := range list(body["contents"]) {
		for _, part := range list(c["parts"]) {
			if fn, ok := part[kind].(map[string]interface{}); ok {
				ids = append(ids, str(fn["id"]))
			}
		}
	}
	return ids
}

func list(v interface{}) []map[string]interface{} {
	items, _ := v.([]interface{})
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
