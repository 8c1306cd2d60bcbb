package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vehicle-monitor",
		Short:         "Simulated vehicle telemetry with chained statistics and alerting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Emit readings and analyse them until the duration elapses or the process is stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.durationSet = cmd.Flags().Changed("duration")
			flags.intervalSet = cmd.Flags().Changed("interval")
			flags.serversSet = cmd.Flags().Changed("servers")
			return run(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.duration, "duration", "d", "", "run time in whole seconds (default: until interrupted)")
	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "tick interval, e.g. 5s")
	cmd.Flags().IntVar(&flags.servers, "servers", 0, "number of logistic servers")
	return cmd
}
