// Package main is the termscope command line client.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiranshivaraju/termscope/internal/backend"
	"github.com/kiranshivaraju/termscope/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs once the root has run.
type app struct {
	cfg    *config.Config
	client backend.Client
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var verbose bool

	root := &cobra.Command{
		Use:           "termscope",
		Short:         "Manage documents and explore term trends and topics",
		Long:          `termscope talks to the document-analysis backend named by TERMSCOPE_API_BASE_URL.`,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg
			a.client = backend.NewHTTPClient(cfg.API.BaseURL, cfg.API.Timeout,
				backend.NewLimiter(cfg.API.RateLimit, cfg.API.Burst))
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newUploadCmd(a),
		newTopicsCmd(a),
		newTrendsCmd(a),
		newDocsCmd(a),
	)
	return root
}
