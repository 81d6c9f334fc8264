package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log/v2"
	"github.com/spf13/cobra"

	"github.com/tandemlabs/tandem/internal/agent"
	"github.com/tandemlabs/tandem/internal/config"
	applog "github.com/tandemlabs/tandem/internal/log"
	"github.com/tandemlabs/tandem/internal/provider"
	"github.com/tandemlabs/tandem/internal/server"
	"github.com/tandemlabs/tandem/internal/session"
	"github.com/tandemlabs/tandem/internal/tools"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (host:port, tcp:// or unix://)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")

		cwd, err := resolveCwd(cmd)
		if err != nil {
			return err
		}

		cfg, err := config.Load(cwd, debug)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}

		if err := createDataDir(cfg.Options.DataDir); err != nil {
			return err
		}
		fileLogger := applog.Setup(cfg.Options.LogFile, cfg.Options.Debug)

		logger := log.New(os.Stderr)
		logger.SetReportTimestamp(true)
		slog.SetDefault(slog.New(logger))
		if debug {
			logger.SetLevel(log.DebugLevel)
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}

		registry := tools.NewRegistry(
			tools.NewCurrentTimeTool(),
			tools.NewPaintingTool(),
		)
		mcp := tools.ConnectMCP(cmd.Context(), cfg.MCP, registry)
		defer mcp.Close()

		sessions := session.NewStore(cfg.Thinking)
		ag := agent.New(provider.NewOpenAI(cfg.Provider), registry, sessions)

		srv, err := server.New(cfg, sessions, ag)
		if err != nil {
			return fmt.Errorf("invalid server address: %v", err)
		}
		// Request logs go to the rotating file; the console stays for
		// operator messages.
		srv.SetLogger(fileLogger)
		slog.Info("Starting tandem server...", "addr", cfg.Addr, "thinking", cfg.Thinking)

		errch := make(chan error, 1)
		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, addSignals([]os.Signal{os.Interrupt})...)

		go func() {
			errch <- srv.ListenAndServe()
		}()

		select {
		case <-sigch:
			slog.Info("Received interrupt signal...")
		case err = <-errch:
			if err != nil && !errors.Is(err, server.ErrServerClosed) {
				_ = srv.Close()
				slog.Error("Server error", "error", err)
				return fmt.Errorf("server error: %v", err)
			}
		}

		if errors.Is(err, server.ErrServerClosed) {
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		slog.Info("Shutting down...")

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown server", "error", err)
			return fmt.Errorf("failed to shutdown server: %v", err)
		}

		return nil
	},
}

func createDataDir(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "images"), 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %q %w", dir, err)
	}

	gitIgnorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitIgnorePath); os.IsNotExist(err) {
		if err := os.WriteFile(gitIgnorePath, []byte("*\n"), 0o644); err != nil {
			return fmt.Errorf("failed to create .gitignore file: %q %w", gitIgnorePath, err)
		}
	}

	return nil
}
