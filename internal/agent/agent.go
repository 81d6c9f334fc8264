// Package agent orchestrates a chat turn: it drives the model stream
// through the reasoning splitter onto the wire, collects tool calls for
// approval, and resolves approved calls on the follow-up pass.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/tandemlabs/tandem/internal/message"
	"github.com/tandemlabs/tandem/internal/provider"
	"github.com/tandemlabs/tandem/internal/session"
	"github.com/tandemlabs/tandem/internal/stream"
	"github.com/tandemlabs/tandem/internal/think"
	"github.com/tandemlabs/tandem/internal/tools"
)

const declinedResult = "The user declined to run this tool."

type Agent struct {
	provider provider.Client
	registry *tools.Registry
	sessions *session.Store
}

func New(client provider.Client, registry *tools.Registry, sessions *session.Store) *Agent {
	return &Agent{
		provider: client,
		registry: registry,
		sessions: sessions,
	}
}

// HandleTurn runs one request against the session. A request either carries
// a fresh user message (first pass) or approval decisions for tool calls
// announced by the previous pass (second pass); the two are distinguished
// by the presence of approval responses.
//
// The writer must already have its headers set. HandleTurn does not emit
// the terminal sentinel; the caller finishes the stream on success so a
// mid-turn failure leaves the stream visibly truncated.
func (a *Agent) HandleTurn(ctx context.Context, sess *session.Session, req *message.ChatRequest, w *stream.Writer) error {
	approvals := req.ToolApprovals()
	if len(approvals) > 0 {
		if err := a.resolveApprovals(ctx, sess, approvals, w); err != nil {
			return err
		}
	} else if text := req.LatestUserText(); text != "" {
		a.sessions.AppendMessage(sess.ID, message.User, text)
		if sess.Summary().Title == "New Chat" && sess.UserMessageCount() <= 1 {
			sess.SetTitle(session.DeriveTitle(text))
		}
	}
	return a.generate(ctx, sess, w)
}

// generate runs one model generation step: stream deltas to the client,
// then either announce tool calls and stop, or persist the assistant text.
// Nothing is persisted unless the stream drains to a complete response, so
// a canceled or failed stream leaves the session untouched.
func (a *Agent) generate(ctx context.Context, sess *session.Session, w *stream.Writer) error {
	splitter := think.NewSplitter(a.sessions.Thinking())

	var resp *provider.Response
	for event := range a.provider.Stream(ctx, sess.Messages(), a.registry.All()) {
		switch event.Type {
		case provider.EventContentDelta:
			if err := writeDeltas(w, splitter.Feed(event.Content)); err != nil {
				return err
			}
		case provider.EventComplete:
			resp = event.Response
		case provider.EventError:
			return event.Error
		}
	}
	if resp == nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		return errors.New("model stream ended without a response")
	}
	if err := writeDeltas(w, splitter.Flush()); err != nil {
		return err
	}

	parts := []message.ContentPart{}
	if text := think.StripTags(resp.Content); text != "" {
		parts = append(parts, message.TextContent{Text: text})
	}
	for _, call := range resp.ToolCalls {
		parts = append(parts, call)
	}
	persisted := len(parts) > 0
	if persisted {
		a.sessions.AppendParts(sess.ID, message.Assistant, parts)
	}

	for _, call := range resp.ToolCalls {
		if err := w.WriteToolCall(call.ID, call.Name, json.RawMessage(call.Input)); err != nil {
			return err
		}
		if _, err := w.WriteApprovalRequest(call.ID); err != nil {
			return err
		}
	}

	return a.recordUsage(sess, resp.Usage, persisted, w)
}

// resolveApprovals executes or declines the pending tool calls in approval
// order and appends a single tool-role message carrying every result.
func (a *Agent) resolveApprovals(ctx context.Context, sess *session.Session, approvals []message.ToolApproval, w *stream.Writer) error {
	var results []message.ContentPart
	for _, approval := range approvals {
		if !approval.Approved {
			if err := w.WriteToolDenied(approval.ToolCallID); err != nil {
				return err
			}
			results = append(results, message.ToolResult{
				ToolCallID: approval.ToolCallID,
				Name:       approval.ToolName,
				Content:    declinedResult,
			})
			continue
		}

		tool, ok := a.registry.Get(approval.ToolName)
		if !ok {
			slog.Warn("Approval references unknown tool, skipping",
				"tool", approval.ToolName, "tool_call_id", approval.ToolCallID)
			continue
		}

		content, isError := runTool(ctx, tool, approval)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.WriteToolResult(approval.ToolCallID, content); err != nil {
			return err
		}
		results = append(results, message.ToolResult{
			ToolCallID: approval.ToolCallID,
			Name:       approval.ToolName,
			Content:    content,
			IsError:    isError,
		})
	}
	if len(results) > 0 {
		a.sessions.AppendParts(sess.ID, message.Tool, results)
	}
	return nil
}

// runTool invokes the tool, stringifying any failure as the result so the
// model can recover instead of the turn aborting.
func runTool(ctx context.Context, tool tools.BaseTool, approval message.ToolApproval) (content string, isError bool) {
	call := tools.ToolCall{
		ID:    approval.ToolCallID,
		Name:  approval.ToolName,
		Input: string(approval.Input),
	}
	resp, err := tool.Run(ctx, call)
	if err != nil {
		slog.Error("Tool execution failed", "tool", call.Name, "error", err)
		return "Error: " + err.Error(), true
	}
	return resp.Content, resp.IsError
}

// UsageMetadata is the client-facing shape of per-message token usage,
// carried by message-metadata frames and message history alike.
type UsageMetadata struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	CachedTokens int64 `json:"cachedTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

// MetadataFor converts stored usage to its wire shape.
func MetadataFor(u session.Usage) UsageMetadata {
	return UsageMetadata{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		CachedTokens: u.CachedTokens,
		TotalTokens:  u.TotalTokens,
	}
}

// recordUsage attaches the reported usage to the assistant message the
// generation step just appended and mirrors it onto the wire. Steps without
// reported usage record nothing; steps that persisted no assistant message
// only mirror, so usage is never pinned to the preceding user message.
func (a *Agent) recordUsage(sess *session.Session, usage provider.TokenUsage, persisted bool, w *stream.Writer) error {
	if usage == (provider.TokenUsage{}) {
		return nil
	}
	stored := session.Usage{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CachedTokens: usage.CachedTokens,
		TotalTokens:  usage.InputTokens + usage.OutputTokens,
	}
	if persisted {
		a.sessions.RecordUsage(sess.ID, sess.MessageCount()-1, stored)
	}
	return w.WriteMessageMetadata(MetadataFor(stored))
}

func writeDeltas(w *stream.Writer, deltas []think.Delta) error {
	for _, d := range deltas {
		var err error
		if d.Channel == think.Reasoning {
			err = w.WriteReasoningDelta(d.Text)
		} else {
			err = w.WriteTextDelta(d.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
