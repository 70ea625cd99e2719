package adapter

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIAdapter_ReplLoop(t *testing.T) {
	replier := &echoReplier{}
	in := strings.NewReader("How does mobile installation work?\n\n/exit\nnever read\n")
	var out bytes.Buffer

	cli := NewCLIAdapter(replier, in, &out, CLIOptions{Title: "TreadWise", Examples: []string{"Tell me about the Smart Tread platform"}})
	require.NoError(t, cli.Start(context.Background()))

	text := out.String()
	assert.Contains(t, text, "TreadWise")
	assert.Contains(t, text, "Tell me about the Smart Tread platform")
	assert.Contains(t, text, "echo: How does mobile installation work?")
	assert.Contains(t, text, "Goodbye!")
	assert.NotContains(t, text, "never read")
	assert.Equal(t, []string{"cli:local"}, replier.sessions)
	assert.False(t, cli.IsRunning())
}

func TestCLIAdapter_StopsOnEOF(t *testing.T) {
	replier := &echoReplier{}
	var out bytes.Buffer

	cli := NewCLIAdapter(replier, strings.NewReader("hi"), &out, CLIOptions{SessionID: "dana"})
	require.NoError(t, cli.Start(context.Background()))

	assert.Contains(t, out.String(), "echo: hi")
	assert.Equal(t, "cli:dana", cli.SessionID())
}
