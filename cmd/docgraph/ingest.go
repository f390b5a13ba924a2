package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agenthands/docgraph/internal/core"
)

func ingestCmd(g *globalFlags) *cobra.Command {
	var (
		workers int
		dryRun  bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a file or directory into the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Pipeline.Workers = workers
			}
			if dryRun {
				cfg.Pipeline.DryRun = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			report, err := a.pipeline.Run(ctx, args[0])
			if report != nil {
				if perr := printReport(cmd, report, asJSON); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}
			if n := report.Counts[core.OutcomeFailed]; n > 0 {
				return fmt.Errorf("%d document(s) failed", n)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Documents parsed, extracted and embedded concurrently")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Use an in-memory graph; nothing is committed")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run report as JSON")
	return cmd
}

func printReport(cmd *cobra.Command, report *core.Report, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	for _, d := range report.Documents {
		line := fmt.Sprintf("%-18s %-10s %s", d.Outcome, d.Stage, d.Path)
		if d.Error != "" {
			line += ": " + d.Error
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "\nrun %s: %d committed, %d already processed, %d skipped, %d failed in %s\n",
		report.RunID,
		report.Counts[core.OutcomeCommitted],
		report.Counts[core.OutcomeAlreadyProcessed],
		report.Counts[core.OutcomeSkipped],
		report.Counts[core.OutcomeFailed],
		report.Duration.Round(time.Millisecond))
	return nil
}
