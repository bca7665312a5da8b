package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshokin/downtime-alerts/internal/credential"
)

// errEmptyToken is returned when no token was provided.
var errEmptyToken = errors.New("token is empty")

var (
	// tokenCmd groups the keyring commands.
	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Manage the API token in the OS keyring.",
		Long: `Stores the API token in the OS keyring.

The agent reads it from there when use_keyring is enabled in the configuration.`,
	}

	tokenSetCmd = &cobra.Command{
		Use:   "set [token]",
		Short: "Store the API token, read from stdin when omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) > 0 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}

				token = line
			}

			token = strings.TrimSpace(token)
			if token == "" {
				return errEmptyToken
			}

			return credential.NewStore().SetToken(token)
		},
	}

	tokenClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove the API token from the OS keyring.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return credential.NewStore().DeleteToken()
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	tokenCmd.AddCommand(tokenSetCmd, tokenClearCmd)

	rootCmd.AddCommand(tokenCmd)
}
