package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"MaturityScanner/internal/app"
	"MaturityScanner/internal/config"
	"MaturityScanner/internal/logging"
)

var scoreFlags struct {
	org  string
	year int
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score every rubric theme for an organization and year",
	RunE:  runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreFlags.org, "org", "", "Organization identifier (required)")
	f.IntVar(&scoreFlags.year, "year", 0, "Reporting year (required)")

	_ = scoreCmd.MarkFlagRequired("org")
	_ = scoreCmd.MarkFlagRequired("year")
}

func runScore(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			logger.Warn("close application", "error", closeErr)
		}
	}()

	batch, err := application.ScoreBatch(cmd.Context(), scoreFlags.org, scoreFlags.year)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, res := range batch.Results {
		fmt.Fprintf(out, "%-24s stage %d  confidence %.2f  evidence %d  snapshot %s\n",
			res.Unit.Theme, res.Score.Stage, res.Score.Confidence, len(res.Score.EvidenceIDs), res.Score.SnapshotID)
		if res.Score.Audit != "" {
			fmt.Fprintf(out, "  audit: %s\n", res.Score.Audit)
		}
	}
	for _, skipped := range batch.Skipped {
		fmt.Fprintf(out, "%-24s skipped (already scored)\n", skipped.Theme)
	}
	for _, failure := range batch.Failures {
		fmt.Fprintf(out, "%-24s failed: %v\n", failure.Unit.Theme, failure.Err)
	}

	if len(batch.Failures) > 0 {
		return fmt.Errorf("%d of %d units failed", len(batch.Failures), len(batch.Results)+len(batch.Failures))
	}
	return nil
}
