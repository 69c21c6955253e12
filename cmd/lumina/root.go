package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/lumina/internal/api"
	"github.com/jackzampolin/lumina/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "lumina",
	Short: "Turn PDF books into narrated, translated chapter audio",
	Long: `Lumina turns an uploaded PDF book into per-chapter audio narration.

The pipeline includes:
  - PDF text extraction
  - LLM chapter identification with summaries
  - Per-chapter translation into the listener's language
  - Speech synthesis in 5000 character parts, saved as WAV
  - Playback position tracking per audio part`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.lumina/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "lumina home directory (default: ~/.lumina)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml, json or table",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
