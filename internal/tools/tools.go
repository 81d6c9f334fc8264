// Package tools exposes named, schema-described callables to the model and
// the orchestrator: built-in tools and tools discovered from MCP servers.
package tools

import (
	"context"
	"sort"

	"github.com/tandemlabs/tandem/internal/csync"
	"github.com/tandemlabs/tandem/internal/message"
)

type ToolInfo struct {
	Name        string
	Description string
	Parameters  map[string]any
	Required    []string
}

type ToolResponse struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

func NewTextResponse(content string) ToolResponse {
	return ToolResponse{Content: content}
}

func NewTextErrorResponse(content string) ToolResponse {
	return ToolResponse{Content: content, IsError: true}
}

type ToolCall = message.ToolCall

type BaseTool interface {
	Info() ToolInfo
	Name() string
	Run(ctx context.Context, call ToolCall) (ToolResponse, error)
}

// Registry holds the tools available to a process, keyed by name.
type Registry struct {
	byName *csync.Map[string, BaseTool]
}

func NewRegistry(tools ...BaseTool) *Registry {
	r := &Registry{byName: csync.NewMap[string, BaseTool]()}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t BaseTool) {
	r.byName.Set(t.Name(), t)
}

// Get returns the named tool, or false if no such tool is registered.
func (r *Registry) Get(name string) (BaseTool, bool) {
	return r.byName.Get(name)
}

// All returns every registered tool, sorted by name for stable prompts.
func (r *Registry) All() []BaseTool {
	var all []BaseTool
	for _, t := range r.byName.Seq2() {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}
