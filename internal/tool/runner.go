package tool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	twErrors "github.com/treadwise/agent/internal/errors"
	"github.com/treadwise/agent/internal/logger"
)

// Dispatch invokes the handler bound to call. Handler failures are wrapped
// as ErrToolExecutionFailed.
func (r *Registry) Dispatch(ctx context.Context, call Call) (string, error) {
	var (
		result string
		err    error
	)

	switch c := call.(type) {
	case RecordCustomerInterestCall:
		result, err = r.handlers.RecordCustomerInterest(ctx, c.Email, c.Name, c.Message)
	case RecordFeedbackCall:
		result, err = r.handlers.RecordFeedback(ctx, c.Question)
	default:
		return "", twErrors.UnknownTool(fmt.Sprintf("%T", call))
	}

	if err != nil {
		return "", twErrors.ToolFailed(call.ToolName(), err)
	}
	return result, nil
}

// Execute handles the full lifecycle: Decode -> Dispatch -> Return Result
func (r *Registry) Execute(ctx context.Context, name string, rawArgs string) (string, error) {
	traceID := logger.GetTraceID(ctx)

	call, err := r.Decode(name, rawArgs)
	if err != nil {
		slog.Warn("Tool call rejected", "tool", NormalizeToolName(name), "error", err, "trace_id", traceID)
		return "", err
	}

	start := time.Now()
	slog.Info("Executing tool", "tool", call.ToolName(), "trace_id", traceID)

	result, err := r.Dispatch(ctx, call)

	duration := time.Since(start)
	if err != nil {
		slog.Error("Tool execution failed", "tool", call.ToolName(), "error", err, "duration", duration, "trace_id", traceID)
		return "", err
	}

	slog.Info("Tool execution success", "tool", call.ToolName(), "duration", duration, "trace_id", traceID)
	return result, nil
}
