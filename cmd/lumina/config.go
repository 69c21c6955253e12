package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lumina/internal/api"
	"github.com/jackzampolin/lumina/internal/config"
	"github.com/jackzampolin/lumina/internal/home"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
	Long: `Inspect and initialize the Lumina configuration.

Configuration is read from --config, ./config.yaml or ~/.lumina/config.yaml.
Every setting can be overridden with a LUMINA_ environment variable
(see "lumina config defaults").`,
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			h, err := home.New(homeDir)
			if err != nil {
				return err
			}
			if err := h.EnsureExists(); err != nil {
				return err
			}
			path = h.ConfigPath()
		}

		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := loadConfig()
		if err != nil {
			return err
		}
		if f := cm.ConfigFile(); f != "" {
			fmt.Fprintf(os.Stderr, "# loaded from %s\n", f)
		}
		return api.Output(cm.Get())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := loadConfig()
		if err != nil {
			return err
		}
		value, err := cm.Value(args[0])
		if err != nil {
			return err
		}
		return api.Output(value)
	},
}

var configDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "List settings with their defaults and environment overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		type row struct {
			config.Entry `yaml:",inline"`
			Env          string `json:"env" yaml:"env"`
		}
		entries := config.DefaultEntries()
		rows := make([]row, len(entries))
		for i, e := range entries {
			rows[i] = row{Entry: e, Env: e.EnvName()}
		}
		return api.Output(rows)
	},
}

func loadConfig() (*config.Manager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	return config.NewManager(cfgFile, h.Path())
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configDefaultsCmd)
	rootCmd.AddCommand(configCmd)
}
