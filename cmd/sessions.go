package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helmcode/arqv30-client/pkg/api"
	"github.com/helmcode/arqv30-client/pkg/formatter"
)

var sessionsClearYes bool

func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions saved on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sessions, err := a.client.ListSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			return formatter.DisplaySessions(cmd.OutOrStdout(), sessions, outputFormat)
		},
	}
	cmd.AddCommand(newSessionsDeleteCmd(), newSessionsClearCmd())
	return cmd
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete SESSION_ID",
		Short: "Remove a session saved on the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.client.DeleteSession(cmd.Context(), args[0])
			if errors.Is(err, api.ErrSessionNotFound) {
				return fmt.Errorf("session %s not found", args[0])
			}
			if err != nil {
				return err
			}
			// Forget it locally too if it was the one being followed.
			if err := a.store.ClearOngoingSession(cmd.Context(), args[0]); err != nil {
				a.logger.Warn("failed to clear ongoing session", "session_id", args[0], "error", err)
			}
			printSuccess(fmt.Sprintf("Sessão %s removida", args[0]))
			return nil
		},
	}
}

func newSessionsClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every session saved on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !sessionsClearYes {
				return fmt.Errorf("refusing to clear all sessions without --yes")
			}
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.client.ClearSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear sessions: %w", err)
			}
			printSuccess(fmt.Sprintf("%d sessões removidas", n))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&sessionsClearYes, "yes", "y", false, "Confirm removing every saved session")
	return cmd
}

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status SESSION_ID",
		Short: "Show the backend status of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.client.SessionStatus(cmd.Context(), args[0])
			if errors.Is(err, api.ErrSessionNotFound) {
				return fmt.Errorf("session %s not found", args[0])
			}
			if err != nil {
				return err
			}
			return formatter.DisplayStatus(cmd.OutOrStdout(), st, outputFormat)
		},
	}
}
