package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrDuplicateEvent - duplicate inbound event (Slack/Telegram redelivery), dropped silently
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrPermissionDenied - provider rejected credentials
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput - invalid input (empty message, bad request body)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - resource not found (unknown model, missing profile file)
	ErrNotFound = errors.New("not found")

	// ErrConflict - conflict (append lock held by another process)
	ErrConflict = errors.New("conflict")

	// ErrTransient - transient error (rate limit, timeout, network)
	ErrTransient = errors.New("transient error")

	// ErrInvalidModelOutput - model returned a response without usable choices
	ErrInvalidModelOutput = errors.New("invalid model output")

	// ErrInternal - internal error
	ErrInternal = errors.New("internal error")
)

// Chat turn failures. Every one of these ends as a plain-text reply, never a crash.
var (
	// ErrCompletionRequestFailed - the completion API call failed (network, auth, quota, malformed response)
	ErrCompletionRequestFailed = errors.New("completion request failed")

	// ErrUnknownTool - the model named a tool that is not registered
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments - tool arguments are not valid JSON or do not match the schema
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrToolExecutionFailed - the tool handler returned an error (e.g. log file not writable)
	ErrToolExecutionFailed = errors.New("tool execution failed")
)
