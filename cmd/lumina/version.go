package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lumina/internal/api"
	"github.com/jackzampolin/lumina/version"
)

// versionInfo is the structured form printed with -o json.
type versionInfo struct {
	Release string `json:"release" yaml:"release"`
	Go      string `json:"go" yaml:"go"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat == "json" {
			return api.Output(versionInfo{
				Release: version.GitRelease,
				Go:      version.GoInfo,
				Commit:  version.GitCommit,
				Date:    version.GitCommitDate,
			})
		}
		fmt.Printf("lumina %s\n", version.GitRelease)
		fmt.Printf("  Go:     %s\n", version.GoInfo)
		fmt.Printf("  Commit: %s\n", version.GitCommit)
		fmt.Printf("  Date:   %s\n", version.GitCommitDate)
		return nil
	},
}
