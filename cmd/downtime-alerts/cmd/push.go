package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	api "github.com/oshokin/downtime-alerts/internal/api/grpc/alerts"
	"github.com/oshokin/downtime-alerts/internal/config"
)

// errPushFailed is returned when the agent reports a failed push operation.
var errPushFailed = errors.New("push operation failed")

// employeeID overrides the configured employee for push subscribe.
var employeeID string

var (
	// pushCmd groups the push subscription commands.
	pushCmd = &cobra.Command{
		Use:   "push",
		Short: "Manage the push subscription of this device.",
	}

	pushSubscribeCmd = &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribe this device to push notifications.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			employee := employeeID
			if employee == "" {
				if settings, err := config.Load(configPath); err == nil {
					employee = settings.EmployeeID
				}
			}

			return withControl(func(ctx context.Context, c *api.Client) error {
				state, err := c.PushSubscribe(ctx, employee)
				if err != nil {
					return err
				}

				if !state.IsSubscribed || state.Subscription == nil {
					return fmt.Errorf("%w: %s", errPushFailed, state.Error)
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), "subscribed:", state.Subscription.Endpoint)

				return err
			})
		},
	}

	pushUnsubscribeCmd = &cobra.Command{
		Use:   "unsubscribe",
		Short: "Remove the push subscription of this device.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				ok, err := c.PushUnsubscribe(ctx)
				if err != nil {
					return err
				}

				if !ok {
					return fmt.Errorf("%w: not subscribed", errPushFailed)
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), "unsubscribed")

				return err
			})
		},
	}

	pushTestCmd = &cobra.Command{
		Use:   "test",
		Short: "Ask the backend to send a test push to this device.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				ok, err := c.PushTest(ctx)
				if err != nil {
					return err
				}

				if !ok {
					return fmt.Errorf("%w: test notification was not sent", errPushFailed)
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), "test notification sent")

				return err
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	pushSubscribeCmd.Flags().StringVar(&employeeID, "employee", "", "employee id (defaults to the configured one)")

	pushCmd.AddCommand(pushSubscribeCmd, pushUnsubscribeCmd, pushTestCmd)

	rootCmd.AddCommand(pushCmd)
}
