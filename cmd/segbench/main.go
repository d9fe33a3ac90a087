// Command segbench drives a segalloc allocator with a synthetic workload
// and reports success rates and latency percentiles for the run.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dveres/segalloc/internal/allocator"
	"github.com/dveres/segalloc/internal/workload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "segbench",
		Short: "Benchmark the segalloc allocator under a synthetic workload",
	}

	root.AddCommand(newRunCmd())

	return root
}

func newRunCmd() *cobra.Command {
	var (
		capacity       int64
		segments       int
		minSplit       int64
		largeThreshold int64
		waitTimeoutMs  int
		workers        int
		ops            int
		holdUs         int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one workload pass and print a summary report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if segments < 2 {
				return fmt.Errorf("segments must be at least 2, got %d", segments)
			}

			a := allocator.New(
				allocator.WithCapacity(uintptr(capacity)),
				allocator.WithSegments(segments),
				allocator.WithMinSplit(uintptr(minSplit)),
				allocator.WithLargeThreshold(uintptr(largeThreshold)),
				allocator.WithWaitTimeout(durationMs(waitTimeoutMs)),
			)

			cfg := workload.Config{
				Workers:     workers,
				Ops:         ops,
				Mix:         workload.DefaultMix(),
				HoldTime:    durationUs(holdUs),
				LargeCutoff: int(largeThreshold),
			}

			report := workload.Run(a, cfg, nil)

			printReport(cmd, report)

			return a.Teardown()
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&capacity, "capacity", int64(allocator.DefaultCapacity), "backing region size in bytes")
	flags.IntVar(&segments, "segments", allocator.DefaultSegments, "segment count (N-1 small plus one large)")
	flags.Int64Var(&minSplit, "min-split", int64(allocator.DefaultMinSplit), "minimum residual payload before a split is suppressed")
	flags.Int64Var(&largeThreshold, "large-threshold", int64(allocator.DefaultLargeThreshold), "requests above this many bytes route to the large segment")
	flags.IntVar(&waitTimeoutMs, "wait-timeout-ms", int(allocator.DefaultWaitTimeout.Milliseconds()), "bound, in milliseconds, on a single segment's timed wait")
	flags.IntVar(&workers, "workers", 16, "concurrent goroutines issuing requests")
	flags.IntVar(&ops, "ops", 100, "allocate/release pairs issued per worker")
	flags.IntVar(&holdUs, "hold-us", 1, "microseconds a successful block is held before release")

	return cmd
}

func durationMs(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

func durationUs(us int) time.Duration { return time.Duration(us) * time.Microsecond }

func printReport(cmd *cobra.Command, r workload.Report) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "total ops:        %d\n", r.TotalOps)
	fmt.Fprintf(out, "small succeeded:  %d\n", r.SmallSucceeded)
	fmt.Fprintf(out, "small failed:     %d\n", r.SmallFailed)
	fmt.Fprintf(out, "large succeeded:  %d\n", r.LargeSucceeded)
	fmt.Fprintf(out, "large failed:     %d\n", r.LargeFailed)
	fmt.Fprintf(out, "large success ratio: %.3f\n", r.LargeSuccessRatio())
	fmt.Fprintf(out, "latency p50/p90/p99: %s / %s / %s\n", r.LatencyP50, r.LatencyP90, r.LatencyP99)
}
