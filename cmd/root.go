package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jayquinn/interview-scheduler/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "scheduler",
	Short:         "Interview day scheduling engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.AddCommand(scheduleCmd, validateCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
