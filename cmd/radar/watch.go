package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/radarhq/radar/internal/report"
	"github.com/radarhq/radar/internal/schedule"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run discovery passes continuously",
	Long: `Run passes on a fixed cadence until interrupted. The next pass starts
one interval after the previous pass STARTED, so slow passes do not drift
the schedule.

Examples:
  # Scan every 30 minutes until Ctrl-C
  radar watch --interval 30m

  # Five passes, then stop
  radar watch --interval 10m --max-passes 5

  # Stop after two hours regardless
  radar watch --interval 15m --max-runtime 2h`,
	Run: func(cmd *cobra.Command, args []string) {
		interval, _ := cmd.Flags().GetDuration("interval")
		maxPasses, _ := cmd.Flags().GetInt("max-passes")
		maxRuntime, _ := cmd.Flags().GetDuration("max-runtime")
		writeReport, _ := cmd.Flags().GetBool("write-report")
		categories, _ := cmd.Flags().GetStringSlice("category")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("%s every %v (Ctrl-C to stop)\n", cyan("Watching"), interval)

		pass := func(ctx context.Context) error {
			result, err := runPass(ctx, false, categories)
			if err != nil {
				return err
			}

			fmt.Printf("\n[%s]\n", time.Now().Format(time.RFC3339))
			report.PrintResult(os.Stdout, result)

			if writeReport && len(result.NewOpportunities) > 0 {
				if err := writeReports(result, true, false); err != nil {
					return err
				}
			}
			if err := notifyResult(ctx, result); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: notification failed: %v\n", err)
			}
			return nil
		}

		scheduler := schedule.New(pass, nil)
		err := scheduler.Run(ctx, schedule.Config{
			Interval:   interval,
			MaxPasses:  maxPasses,
			MaxRuntime: maxRuntime,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Watch stopped")
	},
}

func init() {
	watchCmd.Flags().Duration("interval", 30*time.Minute, "time between pass starts")
	watchCmd.Flags().Int("max-passes", 0, "stop after this many passes (0 = unlimited)")
	watchCmd.Flags().Duration("max-runtime", 0, "stop after this much time (0 = unlimited)")
	watchCmd.Flags().Bool("write-report", false, "write a markdown report for each pass with new opportunities")
	watchCmd.Flags().StringSlice("category", nil, "limit passes to these categories")
	rootCmd.AddCommand(watchCmd)
}
