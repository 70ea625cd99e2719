package runtime

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/model/contract"
)

// feedbackCompleter logs every question as unanswered, then apologises.
type feedbackCompleter struct{}

func (feedbackCompleter) Route(_ context.Context, _ string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	if len(req.Tools) > 0 {
		last := req.Messages[len(req.Messages)-1]
		return &contract.CompletionResponse{ToolCalls: []*contract.ToolCall{{
			ID:    "call_fb",
			Name:  "record_feedback",
			Input: `{"question":` + quote(last.Content) + `}`,
		}}}, nil
	}
	return &contract.CompletionResponse{Content: "I'm not sure, I've passed your question to the team."}, nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.txt")
	require.NoError(t, os.WriteFile(profile, []byte("TreadWise sells smart tires."), 0644))
	return &config.Config{
		Models:   config.ModelsConfig{Default: "test-model"},
		Business: config.BusinessConfig{ProfilePath: profile},
		Chat:     config.ChatConfig{Title: "TreadWise Test", Examples: []string{"Do you rotate tires?"}},
		Store: config.StoreConfig{
			DataDir:      filepath.Join(dir, "data"),
			LeadsFile:    config.DefaultStoreLeadsFile,
			FeedbackFile: config.DefaultStoreFeedbackFile,
		},
	}
}

func TestNewRuntimeBuilder(t *testing.T) {
	builder := NewRuntimeBuilder()
	if builder == nil {
		t.Error("NewRuntimeBuilder() returned nil")
	}
}

func TestBuilder_WithMethods(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	var out bytes.Buffer

	builder := NewRuntimeBuilder().
		WithContext(ctx).
		WithConfig(cfg).
		WithSession("kiosk").
		WithIO(strings.NewReader(""), &out)

	impl, ok := builder.(*DefaultRuntimeBuilder)
	if !ok {
		t.Fatal("Builder is not DefaultRuntimeBuilder")
	}

	if impl.ctx != ctx {
		t.Error("WithContext did not set context")
	}
	if impl.cfg != cfg {
		t.Error("WithConfig did not set config")
	}
	if impl.sessionID != "kiosk" {
		t.Error("WithSession did not set session")
	}
	if impl.out != &out {
		t.Error("WithIO did not set output")
	}
}

func TestBuilder_Build_MissingConfig(t *testing.T) {
	_, err := NewRuntimeBuilder().WithContext(context.Background()).Build()
	if err == nil {
		t.Error("Build() should return error when config is missing")
	}
}

func TestBuilder_Build_MissingProfile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Business.ProfilePath = filepath.Join(t.TempDir(), "absent.txt")

	_, err := NewRuntimeBuilder().WithConfig(cfg).WithCompleter(feedbackCompleter{}).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init sessions")
}

func TestRuntime_ChatLogsFeedback(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	rc, err := NewRuntimeBuilder().
		WithConfig(cfg).
		WithCompleter(feedbackCompleter{}).
		WithIO(strings.NewReader("Do you sell bicycle tires?\n/exit\n"), &out).
		Build()
	require.NoError(t, err)
	defer rc.Stop()

	require.NoError(t, rc.Run())

	assert.Contains(t, out.String(), "TreadWise Test")
	assert.Contains(t, out.String(), "passed your question to the team")
	assert.Contains(t, out.String(), "Goodbye!")

	raw, err := os.ReadFile(filepath.Join(cfg.Store.DataDir, cfg.Store.FeedbackFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"question":"Do you sell bicycle tires?"`)

	conv, err := rc.Sessions.Get(rc.CLI.SessionID())
	require.NoError(t, err)
	assert.Equal(t, 5, conv.Len())
	assert.Equal(t, "cli:local", rc.CLI.SessionID())
}
