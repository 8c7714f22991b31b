package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts per state and worker pool status",
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := a.store.Status(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "--- Job Queue Status ---")
			if len(counts) == 0 {
				fmt.Fprintln(out, "no jobs in the queue")
			}
			for state, n := range counts {
				fmt.Fprintf(out, "%s: %d\n", state, n)
			}

			fmt.Fprintln(out, "\n--- Worker Pool ---")
			status, err := readWorkerStatus(a)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(out, "not running")
					return nil
				}
				return err
			}
			fmt.Fprintf(out, "running: %d worker(s), pid %d, started %s\n", status.Count, status.PID, status.StartedAt.Format("2006-01-02T15:04:05Z"))
			return nil
		},
	}
}

func newMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show throughput and latency metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.store.Metrics(context.Background())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total: %d\n", m.Total)
			fmt.Fprintf(out, "completed: %d\n", m.Completed)
			fmt.Fprintf(out, "success_rate: %.2f\n", m.SuccessRate)
			fmt.Fprintf(out, "avg_completion_latency: %s\n", m.AvgCompletionLatency)
			return nil
		},
	}
}
