// cmd/ezmongo/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/config"
	"github.com/nhath/ezmongo/internal/connection"
	"github.com/nhath/ezmongo/internal/db"
	"github.com/nhath/ezmongo/internal/editor"
	"github.com/nhath/ezmongo/internal/executor"
	"github.com/nhath/ezmongo/internal/history"
	"github.com/nhath/ezmongo/internal/logging"
	"github.com/nhath/ezmongo/internal/lsp"
	"github.com/nhath/ezmongo/internal/schema"
	"github.com/nhath/ezmongo/internal/session"
	"github.com/nhath/ezmongo/internal/ui"
)

var version = "dev"

var (
	// Global flags
	debug      bool
	configFile string

	disableHistory bool
)

var rootCmd = &cobra.Command{
	Use:   "ezmongo [DATABASE_URI|PROFILE]",
	Short: "Modal terminal client for MongoDB",
	Long: `ezmongo is a keyboard driven MongoDB client.

Press : for the command prompt, e to write a query in $EDITOR and ? for help.
The argument is connected to on start: a mongodb:// URI or a profile name.`,
	Version:       version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runClient,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Write a debug log")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/ezmongo/config.toml)")
	rootCmd.Flags().BoolVar(&disableHistory, "disable-command-history", false, "Neither read nor write the command history file")

	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(profileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return config.ConfigPath()
}

func loadConfig() (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFrom(path, config.GetMasterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// connectionProfiles converts the configured profiles for the manager.
func connectionProfiles(cfg *config.Config) []connection.Profile {
	out := make([]connection.Profile, 0, len(cfg.Profiles))
	for i := range cfg.Profiles {
		p := &cfg.Profiles[i]
		out = append(out, connection.Profile{
			Name: p.Name,
			URI:  p.ConnectionURI(),
			SSH:  p.SSHConfig(cfg.ConnectTimeout()),
		})
	}
	return out
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(debug, "", "client")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var store *history.Store
	if !disableHistory {
		path, err := history.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolving history path: %w", err)
		}
		store = history.NewStore(path)
	}
	hist := history.NewIndex(store, logger.Named("history"))
	if err := hist.Load(cfg.HistoryLimit); err != nil {
		// A broken history file must not keep the client from starting.
		logger.Warn("loading history", zap.Error(err))
	}

	manager := connection.NewManager(db.MongoDialer{},
		connection.WithShell(cfg.Shell),
		connection.WithTimeout(cfg.ConnectTimeout()),
		connection.WithPageSize(cfg.PageSize),
		connection.WithProfiles(connectionProfiles(cfg)),
		connection.WithLogger(logger.Named("connection")),
	)

	deps := ui.Deps{
		Config:  cfg,
		Session: session.New(manager, hist),
		Executor: executor.New(
			executor.WithPageSize(cfg.PageSize),
			executor.WithTimeout(cfg.QueryTimeout()),
			executor.WithLogger(logger.Named("executor")),
		),
		Editor:   editor.New(cfg.Editor, editor.WithLogger(logger.Named("editor"))),
		Analyzer: lsp.NewAnalyzer(cfg.ListProfiles()...),
		Log:      logger,
		Context:  cmd.Context(),
	}
	if path, err := editor.DefaultDraftPath(); err == nil {
		deps.Draft = editor.NewDraft(path)
	} else {
		logger.Warn("resolving draft path", zap.Error(err))
	}
	if path, err := schema.DefaultPath(); err == nil {
		deps.SchemaPath = path
	} else {
		logger.Warn("resolving schema path", zap.Error(err))
	}

	deps.InitialURI = cfg.DefaultURI
	if len(args) == 1 {
		deps.InitialURI = args[0]
	}

	model := ui.NewModel(deps)
	p := tea.NewProgram(model, tea.WithAltScreen())
	final, runErr := p.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if m, ok := final.(ui.Model); ok {
		m.Close(ctx)
	}
	manager.Close(ctx)

	if runErr != nil {
		return fmt.Errorf("error running TUI: %w", runErr)
	}
	return nil
}
