package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jayquinn/interview-scheduler/app"
	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/request"
	"github.com/jayquinn/interview-scheduler/infra/logger"
	"github.com/jayquinn/interview-scheduler/pkg/export"
)

var (
	requestPath string
	outPath     string
	outFormat   string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule every day of a request and write the result",
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVarP(&requestPath, "request", "r", "", "scheduling request (yaml or json)")
	scheduleCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file, stdout when empty")
	scheduleCmd.Flags().StringVarP(&outFormat, "format", "f", "json", "output format: json or csv")
	_ = scheduleCmd.MarkFlagRequired("request")
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format, err := export.ParseFormat(outFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	req, err := request.Load(requestPath)
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	svc.ServeMetrics(ctx)

	res, err := svc.Schedule(ctx, req)
	if err != nil {
		return err
	}
	var out io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := export.Write(out, format, res); err != nil {
		return err
	}
	if res.Status != model.StatusSuccess {
		return fmt.Errorf("schedule finished with status %s", res.Status)
	}
	return nil
}
