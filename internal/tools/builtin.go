package tools

import (
	"context"
	"fmt"
	"time"
)

const (
	CurrentTimeToolName = "get_current_time"
	PaintingToolName    = "get_painting"
)

type currentTimeTool struct{}

// NewCurrentTimeTool returns the built-in clock tool.
func NewCurrentTimeTool() BaseTool {
	return &currentTimeTool{}
}

func (t *currentTimeTool) Name() string {
	return CurrentTimeToolName
}

func (t *currentTimeTool) Info() ToolInfo {
	return ToolInfo{
		Name:        CurrentTimeToolName,
		Description: "Gets the current date and time in UTC and the server's local time zone.",
		Parameters:  map[string]any{},
	}
}

func (t *currentTimeTool) Run(ctx context.Context, call ToolCall) (ToolResponse, error) {
	now := time.Now()
	zone, _ := now.Zone()
	return NewTextResponse(fmt.Sprintf(
		"UTC: %s\nLocal (%s): %s",
		now.UTC().Format("2006-01-02 15:04:05 -07:00"),
		zone,
		now.Format("2006-01-02 15:04:05 -07:00"),
	)), nil
}

type paintingTool struct{}

// NewPaintingTool returns the built-in painting tool. The image itself is
// served by the HTTP layer; the tool hands the model a markdown pointer.
func NewPaintingTool() BaseTool {
	return &paintingTool{}
}

func (t *paintingTool) Name() string {
	return PaintingToolName
}

func (t *paintingTool) Info() ToolInfo {
	return ToolInfo{
		Name:        PaintingToolName,
		Description: "Returns a painting image. Use this when the user asks for a painting or wants to see the painting.",
		Parameters:  map[string]any{},
	}
}

func (t *paintingTool) Run(ctx context.Context, call ToolCall) (ToolResponse, error) {
	return NewTextResponse(
		"Here is the painting. Display it to the user by including this exact markdown in your response:\n\n" +
			"![Painting](/api/images/painting.png)",
	), nil
}
