package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lherman-cs/go-rosbag2/internal/config"
	"github.com/lherman-cs/go-rosbag2/internal/extract"
	"github.com/lherman-cs/go-rosbag2/internal/trigger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every recording of the bags directory",
	Long: `Run processes the recordings of the bags directory in name order. Each one
ends up in <processed_dir>/<recording> with csv_files/, image_files/ and a
summary.yaml describing every channel.

A recording whose manifest lists a topic its database doesn't have is skipped
entirely. A channel that fails to decode is reported in the summary and the
other channels are still written.`,
	Example: `  # Process ./bags once
  rosbag2csv run

  # Keep watching for new recordings
  rosbag2csv run --watch

  # Re-scan every hour
  rosbag2csv run --schedule @hourly`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("watch", false, "keep running and process recordings as they appear")
	cmd.Flags().String("schedule", "", "cron expression to re-scan the bags directory on")
	cmd.Flags().Bool("metrics", false, "write metrics.prom next to every summary")
	cmd.Flags().Bool("image-dir-per-channel", false, "write each image channel to its own directory")
}

func bindRunFlags(cmd *cobra.Command) {
	viper.BindPFlag(config.KeyWatch, cmd.Flags().Lookup("watch"))
	viper.BindPFlag(config.KeySchedule, cmd.Flags().Lookup("schedule"))
	viper.BindPFlag(config.KeyMetricsEnabled, cmd.Flags().Lookup("metrics"))
	viper.BindPFlag(config.KeyImageDirPerChannel, cmd.Flags().Lookup("image-dir-per-channel"))
}

func runRun(cmd *cobra.Command, args []string) error {
	bindRunFlags(cmd)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg, err := newRegistry(cfg.MsgPaths)
	if err != nil {
		return err
	}

	extractor := extract.NewExtractor(reg, extract.Options{
		ImageDirPerChannel: cfg.ImageDirPerChannel,
		Metrics:            cfg.MetricsEnabled,
	}, logger)
	runner := extract.NewRunner(cfg.BagsDir, cfg.ProcessedDir, extractor, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOnce := func(ctx context.Context) error {
		results, err := runner.RunOnce(ctx)
		printResults(cmd.OutOrStdout(), results)
		return err
	}

	if err := runOnce(ctx); err != nil {
		return err
	}

	switch {
	case cfg.Watch:
		return trigger.Watch(ctx, cfg.BagsDir, trigger.DefaultDebounce, runOnce, logger)
	case cfg.Schedule != "":
		return trigger.Schedule(ctx, cfg.Schedule, runOnce, logger)
	}

	logger.Debug("Done", zap.String("processed_dir", cfg.ProcessedDir))
	return nil
}

func printResults(w io.Writer, results []extract.Result) {
	for _, result := range results {
		switch {
		case result.Err != nil:
			fmt.Fprintf(w, "%s: failed: %v\n", result.Recording, result.Err)
		case result.Summary.Failed() > 0:
			fmt.Fprintf(w, "%s: %d channels, %d failed\n", result.Recording, len(result.Summary.Channels), result.Summary.Failed())
		default:
			fmt.Fprintf(w, "%s: %d channels\n", result.Recording, len(result.Summary.Channels))
		}
	}
}
