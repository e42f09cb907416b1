package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/config"
	"github.com/sadopc/planr/internal/task"
)

func statsCmd(v *viper.Viper) *cobra.Command {
	var rangeFlag, format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard statistics",
		Long: `Print the KPI, status distribution and daily series for a date range.

Ranges: all, 7d, 30d, week, custom:YYYY-MM-DD..YYYY-MM-DD.
Without --range the default range from settings is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			_, report, err := loadReport(ctx, b, rangeFlag)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), report, format)
		},
	}

	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "", "date range")
	cmd.Flags().StringVarP(&format, "output", "o", "text", "output format (text, json, yaml)")
	return cmd
}

func writeReport(w io.Writer, r analytics.Report, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		return writeReportText(w, r)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func writeReportText(w io.Writer, r analytics.Report) error {
	bounds := "all dates"
	if !r.Bounds.Unbounded {
		bounds = fmt.Sprintf("%s to %s", r.Bounds.Start, r.Bounds.End)
	}
	k := r.KPI

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s), today %s\n\n", r.Selector.Range.Label(), bounds, r.Today)
	fmt.Fprintf(&b, "  Total      %d\n", k.Total)
	fmt.Fprintf(&b, "  Completed  %d\n", k.ByStatus[task.StatusCompleted])
	fmt.Fprintf(&b, "  Overdue    %d\n", k.Overdue)
	fmt.Fprintf(&b, "  Due today  %d\n", k.DueToday)
	fmt.Fprintf(&b, "  This week  %d\n\n", k.ThisWeek)

	for _, seg := range r.Pie {
		fmt.Fprintf(&b, "  %-12s %5.1f%% (%d)\n", seg.Status, seg.Percent, seg.Value)
	}
	if len(r.Pie) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("  Day      Created  Completed\n")
	for _, p := range r.Series {
		fmt.Fprintf(&b, "  %-8s %7d  %9d\n", p.Label, p.Created, p.Completed)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
