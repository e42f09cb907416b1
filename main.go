package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/client"
	"github.com/sadopc/planr/internal/config"
	"github.com/sadopc/planr/internal/logging"
	"github.com/sadopc/planr/internal/store"
	"github.com/sadopc/planr/internal/tui"
	"github.com/sadopc/planr/internal/window"
)

var Version = "dev"

func main() {
	v := config.New()

	rootCmd := &cobra.Command{
		Use:     "planr",
		Short:   "planr - calendar and task planner for the terminal",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(v)
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("db", "", "path to the sqlite database")
	flags.String("remote", "", "base URL of a planr server to use instead of the local database")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("db_path", flags.Lookup("db"))
	_ = v.BindPFlag("client.base_url", flags.Lookup("remote"))
	_ = v.BindPFlag("logger.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(serveCmd(v))
	rootCmd.AddCommand(statsCmd(v))
	rootCmd.AddCommand(exportCmd(v))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// backend is what the non-server commands read and write through: the
// local store, or a remote server when client.base_url is set.
type backend interface {
	tui.Backend
	Close() error
}

type remote struct {
	*client.Client
}

func (remote) Close() error { return nil }

func openBackend(cfg *config.Config) (backend, error) {
	if cfg.Client.BaseURL != "" {
		c := client.New(cfg.Client.BaseURL, cfg.Client.Timeout)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Client.Timeout)
		defer cancel()
		if err := c.Ping(ctx); err != nil {
			return nil, fmt.Errorf("reach %s: %w", cfg.Client.BaseURL, err)
		}
		return remote{c}, nil
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func runTUI(v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	b, err := openBackend(cfg)
	if err != nil {
		logger.Errorw("Failed to open backend", "error", err)
		return err
	}
	defer b.Close()

	app := tui.NewApp(b, analytics.NewEngine(nil), logger)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// loadReport builds the report for the range flag on b's current tasks.
func loadReport(ctx context.Context, b backend, rangeFlag string) (analytics.Snapshot, analytics.Report, error) {
	var sel window.Selector
	var err error
	if rangeFlag == "" {
		sel, err = b.DefaultRange(ctx)
	} else {
		sel, err = window.Parse(rangeFlag)
	}
	if err != nil {
		return analytics.Snapshot{}, analytics.Report{}, fmt.Errorf("range: %w", err)
	}

	snap, err := b.Snapshot(ctx)
	if err != nil {
		return analytics.Snapshot{}, analytics.Report{}, err
	}
	return snap, analytics.NewEngine(nil).Report(snap, sel), nil
}
