package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "taskq:", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:   "taskq",
		Short: "A local, persistent background job queue",
	}

	root.AddCommand(
		newEnqueueCmd(a),
		newAddCmd(a),
		newWorkerCmd(a),
		newStatusCmd(a),
		newMetricsCmd(a),
		newListCmd(a),
		newCancelCmd(a),
		newDLQCmd(a),
		newConfigCmd(a),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
