package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"

	"github.com/tandemlabs/tandem/internal/agent"
	"github.com/tandemlabs/tandem/internal/message"
	"github.com/tandemlabs/tandem/internal/proto"
	"github.com/tandemlabs/tandem/internal/session"
	"github.com/tandemlabs/tandem/internal/stream"
	"github.com/tandemlabs/tandem/internal/version"
)

type controllerV1 struct {
	*Server
}

func (c *controllerV1) handleGetHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (c *controllerV1) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	jsonEncode(w, proto.VersionInfo{
		Version:   version.Version,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	})
}

func (c *controllerV1) handleGetSessions(w http.ResponseWriter, r *http.Request) {
	summaries := c.sessions.List()
	if summaries == nil {
		summaries = []session.Summary{}
	}
	jsonEncode(w, summaries)
}

func (c *controllerV1) handlePostSessions(w http.ResponseWriter, r *http.Request) {
	s := c.sessions.Create()
	w.Header().Set("Location", "/api/chat/sessions/"+s.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(proto.SessionCreated{ID: s.ID, Title: s.Summary().Title})
}

func (c *controllerV1) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s := c.sessions.Get(id)
	if s == nil {
		c.logError(r, "session not found", "id", id)
		jsonError(w, http.StatusNotFound, "session not found")
		return
	}
	jsonEncode(w, s.Summary())
}

func (c *controllerV1) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !c.sessions.Delete(id) {
		c.logError(r, "session not found", "id", id)
		jsonError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *controllerV1) handleGetSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s := c.sessions.Get(id)
	if s == nil {
		c.logError(r, "session not found", "id", id)
		jsonError(w, http.StatusNotFound, "session not found")
		return
	}
	jsonEncode(w, renderHistory(s))
}

func (c *controllerV1) handlePostSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s := c.sessions.Get(id)
	if s == nil {
		c.logError(r, "session not found", "id", id)
		jsonError(w, http.StatusNotFound, "session not found")
		return
	}

	var req message.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logError(r, "failed to decode request", "error", err)
		jsonError(w, http.StatusBadRequest, "failed to decode request")
		return
	}

	sw := stream.NewWriter(w)
	sw.SetHeaders()

	// A mid-turn failure ends the stream without the terminal sentinel so
	// the client sees the truncation instead of a clean finish.
	if err := c.agent.HandleTurn(r.Context(), s, &req, sw); err != nil {
		c.logError(r, "turn failed", "error", err, "session_id", id)
		return
	}
	if err := sw.Finish(); err != nil {
		c.logDebug(r, "failed to finish stream", "error", err)
	}
}

func (c *controllerV1) handleGetImage(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if filename != filepath.Base(filename) {
		c.logError(r, "invalid image filename", "filename", filename)
		jsonError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	http.ServeFile(w, r, filepath.Join(c.cfg.Options.DataDir, "images", filename))
}

// renderHistory projects stored messages into client-facing UI messages:
// system messages are hidden, and tool-role result messages are folded
// into the assistant tool-call parts they answer. A call with no result
// yet renders as a pending approval so a reloading client can resume the
// cycle.
func renderHistory(s *session.Session) []message.UIMessage {
	msgs := s.Messages()

	results := make(map[string]message.ToolResult)
	for _, m := range msgs {
		if m.Role != message.Tool {
			continue
		}
		for _, tr := range m.ToolResults() {
			results[tr.ToolCallID] = tr
		}
	}

	out := []message.UIMessage{}
	for i, m := range msgs {
		if m.Role == message.System || m.Role == message.Tool {
			continue
		}
		ui := message.UIMessage{
			ID:   uuid.NewString()[:8],
			Role: string(m.Role),
		}
		if usage, ok := s.Usage(i); ok {
			ui.Metadata = agent.MetadataFor(usage)
		}
		for _, part := range m.Parts {
			switch p := part.(type) {
			case message.TextContent:
				ui.Parts = append(ui.Parts, message.UIPart{Type: "text", Text: p.Text})
			case message.ToolCall:
				up := message.UIPart{
					Type:       "dynamic-tool",
					ToolCallID: p.ID,
					ToolName:   p.Name,
				}
				if p.Input != "" {
					up.Input = json.RawMessage(p.Input)
				}
				if tr, ok := results[p.ID]; ok {
					up.State = "output-available"
					output, _ := json.Marshal(tr.Content)
					up.Output = output
				} else {
					up.State = "approval-requested"
					up.Approval = &message.UIApproval{ID: "approval_" + p.ID}
				}
				ui.Parts = append(ui.Parts, up)
			}
		}
		out = append(out, ui)
	}
	return out
}

func jsonEncode(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(proto.Error{Message: message})
}
