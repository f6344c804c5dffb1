package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"MaturityScanner/internal/app"
	"MaturityScanner/internal/config"
	"MaturityScanner/internal/logging"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers in resolution order",
	RunE:  runProviders,
}

func runProviders(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer func() { _ = application.Close() }()

	out := cmd.OutOrStdout()
	for _, name := range application.ProviderNames() {
		fmt.Fprintln(out, name)
	}
	return nil
}
