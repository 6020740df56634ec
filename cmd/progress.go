package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/helmcode/arqv30-client/pkg/api"
	"github.com/helmcode/arqv30-client/pkg/formatter"
	"github.com/helmcode/arqv30-client/pkg/model"
	"github.com/helmcode/arqv30-client/pkg/poller"
)

var progressWatch bool

func NewProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress SESSION_ID",
		Short: "Show the progress of an analysis session",
		Long: `Fetch the progress record of a session once, or keep polling it with --watch
until it completes or the backend no longer knows it.`,
		Args: cobra.ExactArgs(1),
		RunE: runProgress,
	}
	cmd.Flags().BoolVarP(&progressWatch, "watch", "w", false, "Keep polling until the session finishes")
	return cmd
}

func runProgress(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if !progressWatch {
		p, err := a.client.GetProgress(ctx, sessionID)
		if errors.Is(err, api.ErrSessionNotFound) {
			return fmt.Errorf("session %s not found", sessionID)
		}
		if err != nil {
			return err
		}
		return formatter.DisplayProgress(out, sessionID, *p, outputFormat)
	}

	var displayErr error
	p := poller.New(a.client, sessionID, poller.Options{
		Interval:               a.cfg.PollInterval,
		MaxConsecutiveFailures: a.cfg.MaxPollFailures,
		Logger:                 a.logger,
		OnProgress: func(pr model.Progress) {
			if err := formatter.DisplayProgress(out, sessionID, pr, outputFormat); err != nil && displayErr == nil {
				displayErr = err
			}
		},
	})
	if err := p.Start(ctx); err != nil {
		return err
	}
	state, err := p.Wait(ctx)
	p.Stop()
	if displayErr != nil {
		return displayErr
	}
	if err != nil {
		printInfo("Acompanhamento interrompido")
		return nil
	}

	switch state {
	case poller.StateAbandoned:
		return fmt.Errorf("session %s not found", sessionID)
	case poller.StateFailed:
		return fmt.Errorf("polling failed: %w", p.Err())
	}
	return nil
}
