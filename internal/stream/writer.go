// Package stream emits server-sent events in the Vercel AI UI message
// stream format (protocol version v1).
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Writer serializes UI message stream frames onto a single HTTP response.
// It is not safe for concurrent use; a response has exactly one writer.
//
// At most one text part and one reasoning part are open at a time.
// Writing a delta opens its part if needed and closes the other kind
// first, so interleaved answer and reasoning chunks render as separate
// parts in order.
type Writer struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	textID      string
	reasoningID string
}

func NewWriter(w http.ResponseWriter) *Writer {
	return &Writer{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// SetHeaders writes the SSE response headers. It must be called before
// the first frame.
func (s *Writer) SetHeaders() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Vercel-AI-UI-Message-Stream", "v1")
	s.w.WriteHeader(http.StatusOK)
}

func (s *Writer) WriteTextDelta(delta string) error {
	if delta == "" {
		return nil
	}
	if err := s.closeReasoning(); err != nil {
		return err
	}
	if s.textID == "" {
		s.textID = partID()
		if err := s.emit(map[string]any{"type": "text-start", "id": s.textID}); err != nil {
			return err
		}
	}
	return s.emit(map[string]any{"type": "text-delta", "id": s.textID, "delta": delta})
}

func (s *Writer) WriteReasoningDelta(delta string) error {
	if delta == "" {
		return nil
	}
	if err := s.closeText(); err != nil {
		return err
	}
	if s.reasoningID == "" {
		s.reasoningID = partID()
		if err := s.emit(map[string]any{"type": "reasoning-start", "id": s.reasoningID}); err != nil {
			return err
		}
	}
	return s.emit(map[string]any{"type": "reasoning-delta", "id": s.reasoningID, "delta": delta})
}

// WriteToolCall announces a tool invocation the model requested. The
// input is echoed back complete, so the start frame is immediately
// followed by the available frame.
func (s *Writer) WriteToolCall(toolCallID, toolName string, input json.RawMessage) error {
	if err := s.closeParts(); err != nil {
		return err
	}
	// The dynamic flag makes clients materialize these as dynamic-tool
	// parts; without it the approval round-trip never starts.
	if err := s.emit(map[string]any{
		"type":       "tool-input-start",
		"toolCallId": toolCallID,
		"toolName":   toolName,
		"dynamic":    true,
	}); err != nil {
		return err
	}
	return s.emit(map[string]any{
		"type":       "tool-input-available",
		"toolCallId": toolCallID,
		"toolName":   toolName,
		"input":      rawOrNull(input),
		"dynamic":    true,
	})
}

// WriteApprovalRequest asks the client to approve or decline a pending
// tool call. The approval id is synthesized per request.
func (s *Writer) WriteApprovalRequest(toolCallID string) (string, error) {
	if err := s.closeParts(); err != nil {
		return "", err
	}
	approvalID := "approval_" + toolCallID
	err := s.emit(map[string]any{
		"type":       "tool-approval-request",
		"toolCallId": toolCallID,
		"approvalId": approvalID,
	})
	return approvalID, err
}

func (s *Writer) WriteToolResult(toolCallID string, output string) error {
	if err := s.closeParts(); err != nil {
		return err
	}
	return s.emit(map[string]any{
		"type":       "tool-output-available",
		"toolCallId": toolCallID,
		"output":     output,
	})
}

// WriteToolDenied marks a tool call the user declined.
func (s *Writer) WriteToolDenied(toolCallID string) error {
	if err := s.closeParts(); err != nil {
		return err
	}
	return s.emit(map[string]any{
		"type":       "tool-output-denied",
		"toolCallId": toolCallID,
	})
}

// WriteMessageMetadata attaches metadata (token usage) to the message.
func (s *Writer) WriteMessageMetadata(metadata any) error {
	if err := s.closeParts(); err != nil {
		return err
	}
	return s.emit(map[string]any{
		"type":            "message-metadata",
		"messageMetadata": metadata,
	})
}

// Finish closes any open parts and writes the terminal sentinel. The
// stream must not be written to afterwards.
func (s *Writer) Finish() error {
	if err := s.closeParts(); err != nil {
		return err
	}
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *Writer) closeText() error {
	if s.textID == "" {
		return nil
	}
	id := s.textID
	s.textID = ""
	return s.emit(map[string]any{"type": "text-end", "id": id})
}

func (s *Writer) closeReasoning() error {
	if s.reasoningID == "" {
		return nil
	}
	id := s.reasoningID
	s.reasoningID = ""
	return s.emit(map[string]any{"type": "reasoning-end", "id": id})
}

func (s *Writer) closeParts() error {
	if err := s.closeText(); err != nil {
		return err
	}
	return s.closeReasoning()
}

func (s *Writer) emit(frame map[string]any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Error("Failed to marshal stream frame", "error", err)
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return s.rc.Flush()
}

func rawOrNull(input json.RawMessage) json.RawMessage {
	if len(input) == 0 {
		return json.RawMessage("null")
	}
	return input
}

func partID() string {
	return uuid.NewString()[:8]
}
