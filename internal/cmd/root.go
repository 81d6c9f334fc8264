// Package cmd wires the CLI: the serve command running the chat backend
// and the mcptime command exposing the built-in tools over MCP.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/tandemlabs/tandem/internal/version"
)

func init() {
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Working directory to load configuration from")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpTimeCmd)
}

var rootCmd = &cobra.Command{
	Use:   "tandem",
	Short: "Streaming LLM chat backend with tool approval",
	Long: `Tandem is a chat backend that streams model responses over SSE,
separates <think> reasoning from the visible answer, and pauses
model-requested tool calls for user approval before executing them.`,
	Example: `
# Start the server
tandem serve

# Start with debug logging on a custom address
tandem serve -d -a localhost:9090

# Run the built-in tools as a stdio MCP server
tandem mcptime
  `,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version.Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func resolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		if err := os.Chdir(cwd); err != nil {
			return "", fmt.Errorf("failed to change directory: %v", err)
		}
		return cwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}
	return cwd, nil
}
