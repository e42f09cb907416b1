package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sadopc/planr/internal/config"
	"github.com/sadopc/planr/internal/export"
	"github.com/sadopc/planr/internal/task"
)

func exportCmd(v *viper.Viper) *cobra.Command {
	var rangeFlag, format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks and the dashboard report",
		Long: `Export every task plus the report for a date range.

Formats: csv, json, yaml, svg (the created vs completed chart).
Without --output the file is written to the current directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			b, err := openBackend(cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Client.Timeout)
			defer cancel()
			snap, report, err := loadReport(ctx, b, rangeFlag)
			if err != nil {
				return err
			}
			duration, err := b.DefaultDuration(ctx)
			if err != nil || duration <= 0 {
				duration = task.DefaultDuration
			}

			now := time.Now()
			path := output
			if path == "" {
				path = filepath.Join(".", export.FileName(f, now))
			}
			doc := export.NewDocument(snap.Tasks, &report, now)
			if err := export.Write(f, doc, duration, path); err != nil {
				return fmt.Errorf("export %s: %w", f, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d task(s) to %s\n", len(snap.Tasks), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "export format (csv, json, yaml, svg)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "", "date range for the report")
	return cmd
}
