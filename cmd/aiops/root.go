package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rahul/aiops/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aiops",
	Short: "Plan, execute and verify operational tasks",
	Long: `aiops turns a free-text task into a verified, structured result.

A model decomposes the task into steps tagged with a tool (weather, github
or none), each step is executed against the tool registry with per-step
failure isolation, and a second model pass verifies the results and lists
the sources used.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./aiops.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
