package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "maturityscanner",
	Short: "Evidence-gated ESG maturity scoring",
	Long: "MaturityScanner resolves sustainability disclosures from tiered providers,\n" +
		"ranks their text with hybrid retrieval, and assigns rubric maturity stages\n" +
		"backed by verifiable evidence quotes.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
