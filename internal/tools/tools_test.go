package tools

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(NewCurrentTimeTool(), NewPaintingTool())

	tool, ok := reg.Get(CurrentTimeToolName)
	require.True(t, ok)
	require.Equal(t, CurrentTimeToolName, tool.Name())

	_, ok = reg.Get("unknown")
	require.False(t, ok)
}

func TestRegistryAllSorted(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(NewPaintingTool(), NewCurrentTimeTool())
	all := reg.All()
	require.Len(t, all, 2)
	require.Equal(t, CurrentTimeToolName, all[0].Name())
	require.Equal(t, PaintingToolName, all[1].Name())
}

func TestCurrentTimeTool(t *testing.T) {
	t.Parallel()

	resp, err := NewCurrentTimeTool().Run(t.Context(), ToolCall{Name: CurrentTimeToolName, Input: "{}"})
	require.NoError(t, err)
	require.False(t, resp.IsError)
	require.Contains(t, resp.Content, "UTC:")
	require.Contains(t, resp.Content, "Local")
}

func TestPaintingTool(t *testing.T) {
	t.Parallel()

	resp, err := NewPaintingTool().Run(t.Context(), ToolCall{Name: PaintingToolName, Input: "{}"})
	require.NoError(t, err)
	require.False(t, resp.IsError)
	require.Contains(t, resp.Content, "![Painting](/api/images/painting.png)")
}
