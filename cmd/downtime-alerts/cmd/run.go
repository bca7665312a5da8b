package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/downtime-alerts/internal/service/agent"
)

// silent disables the audible cue of the agent.
var silent bool

// runCmd starts the agent.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the downtime alert agent.",
	Long: `Starts polling the alert feed and serves the local control surface.

The agent keeps running until interrupted. When the backend is unreachable it
serves the alerts mirrored in the local cache and keeps retrying.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		return agent.Run(ctx, &agent.Options{
			ConfigPath:     configPath,
			ControlAddress: controlAddress,
			Silent:         silent,
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	runCmd.Flags().BoolVar(&silent, "silent", false, "never play the audible cue")

	rootCmd.AddCommand(runCmd)
}
