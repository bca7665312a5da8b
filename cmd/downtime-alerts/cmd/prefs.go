package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	api "github.com/oshokin/downtime-alerts/internal/api/grpc/alerts"
	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
)

// errBadAssignment is returned for a preference argument that is not key=value.
var errBadAssignment = errors.New("expected key=value")

// errUnknownPreference is returned for a preference name the agent does not know.
var errUnknownPreference = errors.New("unknown preference")

var (
	// prefsCmd groups the preference commands.
	prefsCmd = &cobra.Command{
		Use:   "prefs",
		Short: "Show or change notification preferences.",
	}

	prefsShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the current preferences.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(func(ctx context.Context, c *api.Client) error {
				prefs, err := c.Preferences(ctx)
				if err != nil {
					return err
				}

				return printPreferences(cmd.OutOrStdout(), &prefs)
			})
		},
	}

	prefsSetCmd = &cobra.Command{
		Use:   "set <key=value>...",
		Short: "Change preferences.",
		Long: `Changes the named preferences and leaves the others untouched.

Keys: enableSound, enableDesktop, enablePush, autoRefreshInterval (seconds),
showCriticalOnly, zoneFilter and lineFilter (comma-separated, empty to clear).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(args)
			if err != nil {
				return err
			}

			return withControl(func(ctx context.Context, c *api.Client) error {
				prefs, err := c.UpdatePreferences(ctx, fields)
				if err != nil {
					return err
				}

				return printPreferences(cmd.OutOrStdout(), &prefs)
			})
		},
	}
)

// parseAssignments converts key=value arguments into typed preference fields.
func parseAssignments(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q", errBadAssignment, arg)
		}

		switch key {
		case "enableSound", "enableDesktop", "enablePush", "showCriticalOnly":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", key, err)
			}

			fields[key] = b
		case "autoRefreshInterval":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", key, err)
			}

			fields[key] = n
		case "zoneFilter", "lineFilter":
			items := make([]any, 0)

			for item := range strings.SplitSeq(value, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}

			fields[key] = items
		default:
			return nil, fmt.Errorf("%w: %q", errUnknownPreference, key)
		}
	}

	return fields, nil
}

func printPreferences(w io.Writer, p *domain.Preferences) error {
	_, err := fmt.Fprintf(w,
		"enableSound: %t\nenableDesktop: %t\nenablePush: %t\nautoRefreshInterval: %d\n"+
			"showCriticalOnly: %t\nzoneFilter: %s\nlineFilter: %s\n",
		p.EnableSound, p.EnableDesktop, p.EnablePush, p.AutoRefreshInterval,
		p.ShowCriticalOnly, strings.Join(p.ZoneFilter, ","), strings.Join(p.LineFilter, ","))

	return err
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd)

	rootCmd.AddCommand(prefsCmd)
}
