package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	api "github.com/oshokin/downtime-alerts/internal/api/grpc/alerts"
	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

var (
	// listView selects the alert view to print.
	listView string
	// listPriority narrows the printed alerts to one priority.
	listPriority string
	// declaration describes the stoppage of a locally created alert.
	declaration domain.Declaration
	// createPriority is the raw priority flag of a local alert.
	createPriority string
	// createType is the raw type flag of a local alert.
	createType string
	// technician is the technician named by a technician_assigned event.
	technician string

	// alertsCmd groups the alert commands.
	alertsCmd = &cobra.Command{
		Use:   "alerts",
		Short: "Inspect and manage the alerts of a running agent.",
	}

	alertsListCmd = &cobra.Command{
		Use:   "list",
		Short: "Print alerts, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				alerts, err := c.ListAlerts(ctx, listView, domain.Priority(listPriority))
				if err != nil {
					return err
				}

				return printAlerts(cmd.OutOrStdout(), alerts)
			})
		},
	}

	alertsReadCmd = &cobra.Command{
		Use:   "read <alert-id>",
		Short: "Mark one alert as read.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				return c.MarkAsRead(ctx, args[0])
			})
		},
	}

	alertsReadAllCmd = &cobra.Command{
		Use:   "read-all",
		Short: "Mark every unread alert as read.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				count, err := c.MarkAllAsRead(ctx)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "marked %d alert(s) as read\n", count)

				return err
			})
		},
	}

	alertsDismissCmd = &cobra.Command{
		Use:   "dismiss <alert-id>",
		Short: "Dismiss one alert.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				return c.DismissAlert(ctx, args[0])
			})
		},
	}

	alertsClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Drop dismissed alerts from the working set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				count, err := c.ClearDismissed(ctx)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "cleared %d dismissed alert(s)\n", count)

				return err
			})
		},
	}

	alertsStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print alert statistics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				stats, err := c.Statistics(ctx)
				if err != nil {
					return err
				}

				return printStatistics(cmd.OutOrStdout(), &stats)
			})
		},
	}

	alertsStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print connectivity, polling and push state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				status, err := c.Status(ctx)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(),
					"connected: %t\npolling: %t\nunread: %d\npush supported: %t\npush subscribed: %t\npermission: %s\n",
					status.Connected, status.Polling, status.Unread,
					status.Push.IsSupported, status.Push.IsSubscribed, status.Push.Permission)
				if err == nil && status.Push.Error != "" {
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "push error: %s\n", status.Push.Error)
				}

				return err
			})
		},
	}

	alertsRefreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Poll the alert feed now.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				return c.Refresh(ctx)
			})
		},
	}

	alertsWatchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print new alerts as they arrive.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				return c.WatchAlerts(ctx, func(a domain.Alert) error {
					return printAlerts(cmd.OutOrStdout(), []domain.Alert{a})
				})
			})
		},
	}

	alertsCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Raise a local downtime alert and forward it to the backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := declaration
			d.Priority = domain.Priority(createPriority)
			d.Type = domain.Type(createType)

			return withControl(func(ctx context.Context, c *api.Client) error {
				created, err := c.CreateAlert(ctx, &d)
				if err != nil {
					return err
				}

				return printAlerts(cmd.OutOrStdout(), []domain.Alert{created})
			})
		},
	}

	alertsUpdateCmd = &cobra.Command{
		Use:   "update <declaration-id> <event>",
		Short: "Apply a lifecycle event to the alerts of a declaration.",
		Long: fmt.Sprintf(`Applies a declaration lifecycle event to its local alerts.

Events: %s, %s, %s, %s.`,
			api.EventTechnicianAssigned, api.EventWorkStarted, api.EventResolved, api.EventEscalated),
		Args: cobra.ExactArgs(2), //nolint:mnd // Declaration id and event.
		RunE: func(cmd *cobra.Command, args []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				count, err := c.UpdateDeclaration(ctx, args[0], args[1], technician)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "updated %d alert(s)\n", count)

				return err
			})
		},
	}
)

// printAlerts writes one row per alert.
func printAlerts(w io.Writer, alerts []domain.Alert) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd // Column padding.

	for i := range alerts {
		a := &alerts[i]
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.CreatedAt.Local().Format(time.DateTime), a.Priority, a.Status, a.Title, a.Message)
	}

	return tw.Flush()
}

// printStatistics writes the statistics, types sorted by name.
func printStatistics(w io.Writer, stats *domain.Statistics) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd // Column padding.

	_, _ = fmt.Fprintf(tw, "total\t%d\n", stats.Total)
	_, _ = fmt.Fprintf(tw, "unread\t%d\n", stats.Unread)
	_, _ = fmt.Fprintf(tw, "critical\t%d\n", stats.Critical)
	_, _ = fmt.Fprintf(tw, "avg response (min)\t%d\n", stats.AvgResponseTime)

	types := make([]string, 0, len(stats.ByType))
	for t := range stats.ByType {
		types = append(types, string(t))
	}

	slices.Sort(types)

	for _, t := range types {
		_, _ = fmt.Fprintf(tw, "%s\t%d\n", t, stats.ByType[domain.Type(t)])
	}

	return tw.Flush()
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	alertsListCmd.Flags().StringVar(&listView, "view", api.ViewVisible, "alert view: all, visible or critical")
	alertsListCmd.Flags().StringVar(&listPriority, "priority", "", "only alerts of this priority")

	flags := alertsCreateCmd.Flags()
	flags.StringVar(&declaration.ID, "declaration", "", "declaration id")
	flags.StringVar(&declaration.TicketNumber, "ticket", "", "ticket number")
	flags.StringVar(&declaration.WorkstationName, "workstation", "", "stopped workstation")
	flags.StringVar(&declaration.LineName, "line", "", "production line")
	flags.StringVar(&declaration.MachineName, "machine", "", "stopped machine")
	flags.StringVar(&declaration.ZoneName, "zone", "", "factory zone")
	flags.StringVar(&declaration.DeclaredByName, "declared-by", "", "declaring operator")
	flags.StringVar(&createPriority, "priority", string(domain.PriorityMedium), "alert priority")
	flags.StringVar(&createType, "type", string(domain.TypeNewDowntime), "alert type")

	alertsUpdateCmd.Flags().StringVar(&technician, "technician", "", "technician name for technician_assigned")

	alertsCmd.AddCommand(
		alertsListCmd,
		alertsReadCmd,
		alertsReadAllCmd,
		alertsDismissCmd,
		alertsClearCmd,
		alertsStatsCmd,
		alertsStatusCmd,
		alertsRefreshCmd,
		alertsWatchCmd,
		alertsCreateCmd,
		alertsUpdateCmd,
	)

	rootCmd.AddCommand(alertsCmd)
}
