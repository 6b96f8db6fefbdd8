package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jayquinn/interview-scheduler/core/batched"
	"github.com/jayquinn/interview-scheduler/core/request"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and a request without scheduling",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&requestPath, "request", "r", "", "scheduling request (yaml or json)")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if requestPath == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
		return nil
	}
	req, err := request.Load(requestPath)
	if err != nil {
		return err
	}
	g, err := req.Global(cfg.Scheduler)
	if err != nil {
		return err
	}
	if _, err := batched.NewStrategy(g.Strategy, g.StrategyConf); err != nil {
		return err
	}
	days, err := req.DateConfigs(g)
	if err != nil {
		return err
	}
	total := 0
	for _, d := range days {
		if err := d.Validate(g); err != nil {
			return fmt.Errorf("day %s: %w", d.Key(), err)
		}
		total += d.TotalCandidates()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "request ok: %d days, %d candidates, strategy %s\n", len(days), total, g.Strategy)
	return nil
}
