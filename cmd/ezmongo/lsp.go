package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/logging"
	"github.com/nhath/ezmongo/internal/lsp"
	"github.com/nhath/ezmongo/internal/schema"
)

var (
	snapshotPath string
	noSnapshot   bool
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the query language server on stdin/stdout",
	Long: `Serves completion, diagnostics and hover for the command language over
JSON-RPC on stdin/stdout. Database and collection names come from the schema
snapshot the client writes after connecting.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLSP,
}

func init() {
	lspCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Schema snapshot to watch (default: $XDG_STATE_HOME/ezmongo/schema.json)")
	lspCmd.Flags().BoolVar(&noSnapshot, "no-snapshot", false, "Complete keywords only")
}

func runLSP(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(debug, "", "lsp")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var profiles []string
	if cfg, err := loadConfig(); err == nil {
		profiles = cfg.ListProfiles()
	} else {
		logger.Warn("config unavailable", zap.Error(err))
	}
	analyzer := lsp.NewAnalyzer(profiles...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !noSnapshot {
		path := snapshotPath
		if path == "" {
			if path, err = schema.DefaultPath(); err != nil {
				return fmt.Errorf("resolving snapshot path: %w", err)
			}
		}
		watcher, err := lsp.NewSnapshotWatcher(path, analyzer, logger.Named("snapshot"))
		if err != nil {
			return fmt.Errorf("watching snapshot: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("watching snapshot: %w", err)
		}
		defer watcher.Stop()
	}

	server := lsp.NewServer(analyzer, version, logger)
	err = server.Serve(ctx, lsp.NewStdio(os.Stdin, os.Stdout))
	if errors.Is(err, lsp.ErrExitWithoutShutdown) {
		// The protocol asks for exit code 1; main exits 1 on any error.
		logger.Info("exit without shutdown")
	}
	return err
}
