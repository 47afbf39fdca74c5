package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/davidroman0O/nairaland-archiver/internal/archiver"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	monitorInterval  time.Duration
	maxDuration      time.Duration
	stopOnInactivity time.Duration
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <topic-url> [topic-url...]",
	Short: "Monitor and continuously archive one or more active topics",
	Long: `Monitor one or more Nairaland topics and archive new replies as they are posted.

The monitor will:
- Re-read the last N pages of each topic on every interval tick
- Save only posts whose permalink was not archived before
- Stop after --max-duration, after --stop-on-inactivity without new posts, or on Ctrl+C

Examples:
  nairaland-archiver monitor https://www.nairaland.com/1234567/some-topic
  nairaland-archiver monitor --interval 2m --pages 3 https://www.nairaland.com/1234567/some-topic
  nairaland-archiver monitor --stop-on-inactivity 2h https://www.nairaland.com/1234567/some-topic
  nairaland-archiver monitor --max-duration 6h --verbose https://www.nairaland.com/1234567/a https://www.nairaland.com/7654321/b`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 5*time.Minute,
		"How often to check for updates (e.g., 30s, 2m, 5m)")
	monitorCmd.Flags().DurationVar(&maxDuration, "max-duration", 0,
		"Maximum time to monitor (0 = unlimited, e.g., 1h, 6h, 24h)")
	monitorCmd.Flags().DurationVar(&stopOnInactivity, "stop-on-inactivity", 0,
		"Stop monitoring after no new posts for this duration (0 = never)")

	viper.BindPFlag("monitor.interval", monitorCmd.Flags().Lookup("interval"))
	viper.BindPFlag("monitor.max-duration", monitorCmd.Flags().Lookup("max-duration"))
	viper.BindPFlag("monitor.stop-on-inactivity", monitorCmd.Flags().Lookup("stop-on-inactivity"))
}

func runMonitor(cmd *cobra.Command, args []string) error {
	interval := viper.GetDuration("monitor.interval")
	if interval < archiver.MinMonitorInterval {
		return fmt.Errorf("monitoring interval must be at least %s to avoid rate limiting", archiver.MinMonitorInterval)
	}
	for _, topic := range args {
		if err := archiver.ValidateTopicURL(topic); err != nil {
			return err
		}
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	monitorConfig := &archiver.MonitorConfig{
		TopicURLs:   args,
		Interval:    interval,
		MaxDuration: viper.GetDuration("monitor.max-duration"),
		PageCount:   rt.config.PageCount,

		StopOnInactivity: viper.GetDuration("monitor.stop-on-inactivity"),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		fmt.Fprintf(out, "Starting to monitor %s\n", args[0])
	} else {
		fmt.Fprintf(out, "Starting to monitor %d topics\n", len(args))
	}
	fmt.Fprintf(out, "Check interval: %v\n", interval)
	if monitorConfig.MaxDuration > 0 {
		fmt.Fprintf(out, "Max duration: %v\n", monitorConfig.MaxDuration)
	}
	if monitorConfig.StopOnInactivity > 0 {
		fmt.Fprintf(out, "Stop after inactivity: %v\n", monitorConfig.StopOnInactivity)
	}
	fmt.Fprintf(out, "Output directory: %s\n", rt.config.OutputDir)
	fmt.Fprintf(out, "\nPress Ctrl+C to stop monitoring gracefully...\n\n")

	if err := rt.archiver.MonitorTopics(ctx, monitorConfig); err != nil {
		return fmt.Errorf("monitoring failed: %w", err)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		fmt.Fprintln(out, "\nMonitoring stopped gracefully")
	} else {
		fmt.Fprintln(out, "\nMonitoring completed")
	}
	return nil
}
