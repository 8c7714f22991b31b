package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskq-dev/taskq/config"
	"github.com/taskq-dev/taskq/store"
)

func newEnqueueCmd(a *app) *cobra.Command {
	var (
		command     string
		id          string
		maxRetries  int
		priority    int
		timeoutMS   int64
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Enqueue a shell-command job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive {
				var err error
				command, id, priority, maxRetries, timeoutMS, err = promptForJob()
				if err != nil {
					return err
				}
			}
			return runEnqueue(cmd, a, store.EnqueueInput{
				ID:         id,
				Command:    command,
				Priority:   priority,
				MaxRetries: maxRetries,
				TimeoutMS:  timeoutMS,
			})
		},
	}

	cmd.Flags().StringVarP(&command, "command", "c", "", "shell command to run")
	cmd.Flags().StringVarP(&id, "id", "i", "", "job id (generated if omitted)")
	cmd.Flags().IntVarP(&maxRetries, "retries", "r", 0, "max retries before the job goes to the DLQ")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "priority 1 (highest) to 5 (lowest)")
	cmd.Flags().Int64VarP(&timeoutMS, "timeout", "t", 0, "per-attempt timeout in milliseconds")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "prompt for job fields instead of using flags")

	return cmd
}

// newAddCmd is the shorthand: `add CMD [-r N] [-p 1..5]`.
func newAddCmd(a *app) *cobra.Command {
	var (
		maxRetries int
		priority   int
	)

	cmd := &cobra.Command{
		Use:   "add CMD",
		Short: "Shorthand for enqueue -c CMD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnqueue(cmd, a, store.EnqueueInput{
				Command:    args[0],
				Priority:   priority,
				MaxRetries: maxRetries,
			})
		},
	}

	cmd.Flags().IntVarP(&maxRetries, "retries", "r", 0, "max retries before the job goes to the DLQ")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "priority 1 (highest) to 5 (lowest)")

	return cmd
}

// runEnqueue fills in.MaxRetries from the config store's max-retries
// tunable when the caller left it at zero, then delegates to
// Store.Enqueue. The config store, not the engine, owns this default:
// Store itself only falls back to job.DefaultMaxRetries for callers
// that embed it without a config layer.
func runEnqueue(cmd *cobra.Command, a *app, in store.EnqueueInput) error {
	if in.MaxRetries == 0 {
		if v, err := a.cfg.Get(config.KeyMaxRetries); err == nil {
			in.MaxRetries = int(v)
		}
	}
	j, err := a.store.Enqueue(context.Background(), in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "enqueued job %s (priority %d, max_retries %d)\n", j.ID, j.Priority, j.MaxRetries)
	return nil
}

// promptForJob reads job fields from stdin, one per line, for
// `enqueue --interactive`.
func promptForJob() (command, id string, priority, maxRetries int, timeoutMS int64, err error) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Print("command: ")
	command = readLine(scanner)

	fmt.Print("id (blank to generate): ")
	id = readLine(scanner)

	fmt.Print("priority (1-5, blank for default): ")
	if v := readLine(scanner); v != "" {
		priority, err = strconv.Atoi(v)
		if err != nil {
			return "", "", 0, 0, 0, fmt.Errorf("invalid priority: %w", err)
		}
	}

	fmt.Print("max retries (blank for default): ")
	if v := readLine(scanner); v != "" {
		maxRetries, err = strconv.Atoi(v)
		if err != nil {
			return "", "", 0, 0, 0, fmt.Errorf("invalid max retries: %w", err)
		}
	}

	fmt.Print("timeout ms (blank for default): ")
	if v := readLine(scanner); v != "" {
		timeoutMS, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return "", "", 0, 0, 0, fmt.Errorf("invalid timeout: %w", err)
		}
	}

	return command, id, priority, maxRetries, timeoutMS, nil
}

func readLine(scanner *bufio.Scanner) string {
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}
