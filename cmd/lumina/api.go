package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lumina/internal/api"
	"github.com/jackzampolin/lumina/internal/server/endpoints"
)

var (
	serverURL   string
	serverToken string
)

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	registry := api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{}) {
		registry.Register(ep)
	}
	apiCmd := registry.BuildCommands(getServerURL)

	// Persistent so all subcommands inherit them
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)
	apiCmd.PersistentFlags().StringVar(
		&serverToken, "token", os.Getenv("LUMINA_TOKEN"), "Session token (default: $LUMINA_TOKEN)",
	)
	apiCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
		api.SetToken(serverToken)
	}

	rootCmd.AddCommand(apiCmd)
}
