package message

import "encoding/json"

// ChatRequest is the body of a streaming turn request: the client-visible
// message list, where the last user message carries the new prompt and
// assistant messages may carry approval responses for pending tool calls.
type ChatRequest struct {
	ID       string      `json:"id,omitempty"`
	Messages []UIMessage `json:"messages"`
}

// UIMessage is one client-facing message made of typed parts. Parts arrive
// as a union; they are validated here, at the boundary, instead of being
// probed field-by-field at each use site.
type UIMessage struct {
	ID       string   `json:"id,omitempty"`
	Role     string   `json:"role"`
	Parts    []UIPart `json:"parts,omitempty"`
	Metadata any      `json:"metadata,omitempty"`
}

// UIPart is the superset of part shapes the client sends. Type is "text" or
// "dynamic-tool"; the remaining fields are populated per type.
type UIPart struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// dynamic-tool
	State      string          `json:"state,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	Approval   *UIApproval     `json:"approval,omitempty"`

	// approval-requested (outbound only)
	ApprovalID string `json:"approvalId,omitempty"`
}

type UIApproval struct {
	ID       string `json:"id,omitempty"`
	Approved bool   `json:"approved"`
}

// ToolApproval is an approval decision extracted from a resubmitted request.
// It is consumed once per turn and never persisted.
type ToolApproval struct {
	ToolCallID string
	ToolName   string
	Approved   bool
	Input      json.RawMessage // optional client override of the call arguments
}

// Text concatenates the message's text parts, or returns "" if it has none.
func (m *UIMessage) Text() string {
	var text string
	for _, part := range m.Parts {
		if part.Type == "text" {
			text += part.Text
		}
	}
	return text
}

// LatestUserText returns the text of the last user-authored message.
func (r *ChatRequest) LatestUserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Text()
		}
	}
	return ""
}

// ToolApprovals extracts approval responses from all messages, in message
// and part order. A turn with no approvals is a first-pass generation; a
// turn with approvals resumes a paused tool cycle.
func (r *ChatRequest) ToolApprovals() []ToolApproval {
	var approvals []ToolApproval
	for _, msg := range r.Messages {
		for _, part := range msg.Parts {
			if part.Type != "dynamic-tool" || part.State != "approval-responded" {
				continue
			}
			// A responded part without a decision is malformed; dropping it
			// beats treating it as declined.
			if part.ToolCallID == "" || part.ToolName == "" || part.Approval == nil {
				continue
			}
			approvals = append(approvals, ToolApproval{
				ToolCallID: part.ToolCallID,
				ToolName:   part.ToolName,
				Approved:   part.Approval.Approved,
				Input:      part.Input,
			})
		}
	}
	return approvals
}
