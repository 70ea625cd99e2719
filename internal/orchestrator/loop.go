package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	twErrors "github.com/treadwise/agent/internal/errors"
	"github.com/treadwise/agent/internal/logger"
	"github.com/treadwise/agent/internal/model/contract"
	"github.com/treadwise/agent/internal/orchestrator/session"
)

// Completer issues one completion request. model.ModelRouter satisfies it.
type Completer interface {
	Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

// ToolExecutor decodes and runs model-issued tool calls. tool.Registry
// satisfies it.
type ToolExecutor interface {
	Definitions() []contract.ToolDef
	Execute(ctx context.Context, name string, rawArgs string) (string, error)
}

// TurnState names the phases of a single turn.
type TurnState string

const (
	StateAwaitingFirstResponse TurnState = "awaiting_first_response"
	StateDispatchingTools      TurnState = "dispatching_tools"
	StateAwaitingFinalResponse TurnState = "awaiting_final_response"
	StateDone                  TurnState = "done"
)

// Loop runs conversation turns: at most one round of tool calls between
// two completion requests.
type Loop struct {
	completer Completer
	tools     ToolExecutor
	sessions  *session.Manager
	model     string
}

func NewLoop(completer Completer, tools ToolExecutor, sessions *session.Manager, model string) (*Loop, error) {
	if completer == nil {
		return nil, twErrors.InvalidInput("completer is nil")
	}
	if tools == nil {
		return nil, twErrors.InvalidInput("tool executor is nil")
	}
	if sessions == nil {
		return nil, twErrors.InvalidInput("session manager is nil")
	}
	return &Loop{
		completer: completer,
		tools:     tools,
		sessions:  sessions,
		model:     strings.TrimSpace(model),
	}, nil
}

// turn collects the messages of one turn until they are committed to the
// session in a single batch.
type turn struct {
	conv   *session.Conversation
	staged []contract.Message
	state  TurnState
	log    *slog.Logger
}

func (t *turn) stage(msgs ...contract.Message) {
	t.staged = append(t.staged, msgs...)
}

func (t *turn) request() []contract.Message {
	return append(t.conv.Messages(), t.staged...)
}

func (t *turn) enter(state TurnState) {
	t.log.Debug("Turn state", "from", t.state, "to", state)
	t.state = state
}

func (t *turn) commit() error {
	if err := t.conv.Append(t.staged...); err != nil {
		return twErrors.Wrap(err, "commit turn")
	}
	return nil
}

// RunTurn sends userText on behalf of sessionID and returns the assistant's
// answer. Turns of one session run strictly one after another.
//
// A failed first completion leaves the session untouched. A failed final
// completion commits the turn with an apology as the assistant message,
// since tool side effects have already happened; the error is still
// returned.
func (l *Loop) RunTurn(ctx context.Context, sessionID, userText string) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", twErrors.InvalidInput("message is empty")
	}

	ctx, _ = logger.WithNewTraceID(ctx)
	ctx = logger.WithSessionID(ctx, strings.TrimSpace(sessionID))
	log := logger.FromContext(ctx)

	conv, end, err := l.sessions.BeginTurn(ctx, sessionID)
	if err != nil {
		return "", twErrors.Wrap(err, "begin session turn")
	}
	defer end()

	start := time.Now()
	t := &turn{conv: conv, log: log}
	t.stage(contract.Message{Role: contract.RoleUser, Content: userText})

	t.enter(StateAwaitingFirstResponse)
	first, err := l.complete(ctx, contract.CompletionRequest{
		Messages:   t.request(),
		Tools:      l.tools.Definitions(),
		ToolChoice: contract.ToolChoiceAuto,
	})
	if err != nil {
		log.Error("First completion failed", "error", err)
		return "", err
	}

	if len(first.ToolCalls) == 0 {
		answer := answerOrApology(first.Content)
		t.stage(contract.Message{Role: contract.RoleAssistant, Content: answer})
		if err := t.commit(); err != nil {
			return "", err
		}
		t.enter(StateDone)
		log.Info("Turn completed", "tool_calls", 0, "duration", time.Since(start))
		return answer, nil
	}

	t.enter(StateDispatchingTools)
	calls := normalizeCalls(first.ToolCalls)
	t.stage(contract.Message{
		Role:      contract.RoleAssistant,
		Content:   first.Content,
		ToolCalls: calls,
	})
	for _, call := range calls {
		t.stage(l.dispatch(ctx, call))
	}

	t.enter(StateAwaitingFinalResponse)
	final, err := l.complete(ctx, contract.CompletionRequest{
		Messages: t.request(),
	})
	if err != nil {
		log.Error("Final completion failed", "error", err, "tool_calls", len(calls))
		t.stage(contract.Message{Role: contract.RoleAssistant, Content: Apology(err)})
		if commitErr := t.commit(); commitErr != nil {
			log.Error("Failed to commit turn", "error", commitErr)
		}
		return "", err
	}
	if len(final.ToolCalls) > 0 {
		names := make([]string, 0, len(final.ToolCalls))
		for _, c := range final.ToolCalls {
			if c != nil {
				names = append(names, c.Name)
			}
		}
		log.Warn("Ignoring tool calls in final response", "tools", names)
	}

	answer := answerOrApology(final.Content)
	t.stage(contract.Message{Role: contract.RoleAssistant, Content: answer})
	if err := t.commit(); err != nil {
		return "", err
	}
	t.enter(StateDone)
	log.Info("Turn completed", "tool_calls", len(calls), "duration", time.Since(start))
	return answer, nil
}

func (l *Loop) complete(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	req.Model = l.model
	resp, err := l.completer.Route(ctx, l.model, req)
	if err != nil {
		return nil, twErrors.CompletionFailed(err)
	}
	if resp == nil {
		return nil, twErrors.CompletionFailed(twErrors.ErrInvalidModelOutput)
	}
	return resp, nil
}

// dispatch runs one tool call. Failures become the tool result so the
// model can explain them; they never abort the turn.
func (l *Loop) dispatch(ctx context.Context, call *contract.ToolCall) contract.Message {
	msg := contract.Message{
		Role:       contract.RoleTool,
		ToolCallID: call.ID,
		Name:       call.Name,
	}

	result, err := l.tools.Execute(ctx, call.Name, call.Input)
	if err != nil {
		msg.Content = fmt.Sprintf("Error: %v", err)
		return msg
	}
	msg.Content = result
	return msg
}

// normalizeCalls drops nil entries and fills in missing call ids so every
// tool result can reference its request.
func normalizeCalls(calls []*contract.ToolCall) []*contract.ToolCall {
	out := make([]*contract.ToolCall, 0, len(calls))
	for _, c := range calls {
		if c == nil {
			continue
		}
		cp := *c
		if strings.TrimSpace(cp.ID) == "" {
			cp.ID = "call_" + strings.ToLower(ulid.Make().String())
		}
		out = append(out, &cp)
	}
	return out
}
