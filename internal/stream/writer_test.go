package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeFrames(t *testing.T, body string) []map[string]any {
	t.Helper()

	var frames []map[string]any
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			frames = append(frames, map[string]any{"type": "[DONE]"})
			continue
		}
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(payload), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func frameTypes(frames []map[string]any) []string {
	types := make([]string, len(frames))
	for i, f := range frames {
		types[i] = f["type"].(string)
	}
	return types
}

func TestWriterHeaders(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	w.SetHeaders()

	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	require.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	require.Equal(t, "v1", rec.Header().Get("X-Vercel-AI-UI-Message-Stream"))
}

func TestWriterTextLifecycle(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	require.NoError(t, w.WriteTextDelta("Hello"))
	require.NoError(t, w.WriteTextDelta(" world"))
	require.NoError(t, w.Finish())

	frames := decodeFrames(t, rec.Body.String())
	require.Equal(t, []string{"text-start", "text-delta", "text-delta", "text-end", "[DONE]"},
		frameTypes(frames))

	// All text frames share one part id.
	id := frames[0]["id"]
	require.NotEmpty(t, id)
	require.Equal(t, id, frames[1]["id"])
	require.Equal(t, id, frames[3]["id"])
	require.Equal(t, "Hello", frames[1]["delta"])
}

func TestWriterChannelSwitchClosesOtherPart(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	require.NoError(t, w.WriteReasoningDelta("thinking"))
	require.NoError(t, w.WriteTextDelta("answer"))
	require.NoError(t, w.WriteReasoningDelta("more thinking"))
	require.NoError(t, w.Finish())

	frames := decodeFrames(t, rec.Body.String())
	require.Equal(t, []string{
		"reasoning-start", "reasoning-delta",
		"reasoning-end", "text-start", "text-delta",
		"text-end", "reasoning-start", "reasoning-delta",
		"reasoning-end", "[DONE]",
	}, frameTypes(frames))

	// Reopening a channel gets a fresh part id.
	require.NotEqual(t, frames[0]["id"], frames[6]["id"])
}

func TestWriterEmptyDeltaOpensNothing(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	require.NoError(t, w.WriteTextDelta(""))
	require.NoError(t, w.Finish())

	require.Equal(t, []string{"[DONE]"}, frameTypes(decodeFrames(t, rec.Body.String())))
}

func TestWriterToolCallFrames(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	require.NoError(t, w.WriteTextDelta("Let me check."))
	require.NoError(t, w.WriteToolCall("call_1", "get_current_time", json.RawMessage(`{"tz":"UTC"}`)))
	approvalID, err := w.WriteApprovalRequest("call_1")
	require.NoError(t, err)
	require.NoError(t, w.Finish())

	frames := decodeFrames(t, rec.Body.String())
	require.Equal(t, []string{
		"text-start", "text-delta", "text-end",
		"tool-input-start", "tool-input-available",
		"tool-approval-request", "[DONE]",
	}, frameTypes(frames))

	require.Equal(t, "call_1", frames[3]["toolCallId"])
	require.Equal(t, "get_current_time", frames[4]["toolName"])
	require.Equal(t, map[string]any{"tz": "UTC"}, frames[4]["input"])

	// Clients only materialize dynamic-tool parts when the flag is set.
	require.Equal(t, true, frames[3]["dynamic"])
	require.Equal(t, true, frames[4]["dynamic"])
	require.Equal(t, approvalID, frames[5]["approvalId"])
	require.Equal(t, "call_1", frames[5]["toolCallId"])
}

func TestWriterToolCallEmptyInput(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	require.NoError(t, w.WriteToolCall("call_1", "get_painting", nil))

	frames := decodeFrames(t, rec.Body.String())
	require.Nil(t, frames[1]["input"])
}

func TestWriterToolResultAndDenied(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	require.NoError(t, w.WriteToolResult("call_1", "12:00 UTC"))
	require.NoError(t, w.WriteToolDenied("call_2"))

	frames := decodeFrames(t, rec.Body.String())
	require.Equal(t, []string{"tool-output-available", "tool-output-denied"}, frameTypes(frames))
	require.Equal(t, "12:00 UTC", frames[0]["output"])
	require.Equal(t, "call_2", frames[1]["toolCallId"])
}

func TestWriterMetadataClosesOpenPart(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	require.NoError(t, w.WriteTextDelta("done"))
	require.NoError(t, w.WriteMessageMetadata(map[string]int{"totalTokens": 165}))
	require.NoError(t, w.Finish())

	frames := decodeFrames(t, rec.Body.String())
	require.Equal(t, []string{
		"text-start", "text-delta", "text-end",
		"message-metadata", "[DONE]",
	}, frameTypes(frames))
	require.Equal(t, map[string]any{"totalTokens": float64(165)}, frames[3]["messageMetadata"])
}

func TestWriterFinishClosesOpenReasoning(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	require.NoError(t, w.WriteReasoningDelta("unfinished"))
	require.NoError(t, w.Finish())

	frames := decodeFrames(t, rec.Body.String())
	require.Equal(t, []string{"reasoning-start", "reasoning-delta", "reasoning-end", "[DONE]"},
		frameTypes(frames))
}
