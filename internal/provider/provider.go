// Package provider streams chat completions from the upstream model as a
// lazy sequence of typed events.
package provider

import (
	"context"

	"github.com/tandemlabs/tandem/internal/message"
	"github.com/tandemlabs/tandem/internal/tools"
)

type EventType string

const (
	EventContentDelta EventType = "content_delta"
	EventComplete     EventType = "complete"
	EventError        EventType = "error"
)

type FinishReason string

const (
	FinishReasonEndTurn   FinishReason = "end_turn"
	FinishReasonMaxTokens FinishReason = "max_tokens"
	FinishReasonToolUse   FinishReason = "tool_use"
	FinishReasonUnknown   FinishReason = "unknown"
)

// TokenUsage is the model-reported accounting for one generation step.
// Zero-valued when the model reports nothing.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	CachedTokens int64
	TotalTokens  int64
}

// Response is the fully accumulated outcome of one generation step.
type Response struct {
	Content      string
	ToolCalls    []message.ToolCall
	Usage        TokenUsage
	FinishReason FinishReason
}

// Event is one update from the streaming model: a raw text fragment, the
// final accumulated response, or a stream-level error.
type Event struct {
	Type     EventType
	Content  string
	Response *Response
	Error    error
}

// Client produces a stream of events for a message history plus tool
// definitions. The stream observes ctx cancellation and always terminates
// with either an EventComplete or an EventError before closing.
type Client interface {
	Stream(ctx context.Context, messages []message.Message, tools []tools.BaseTool) <-chan Event
}
