package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/helmcode/arqv30-client/pkg/formatter"
	"github.com/helmcode/arqv30-client/pkg/model"
	"github.com/helmcode/arqv30-client/pkg/poller"
	"github.com/helmcode/arqv30-client/pkg/workflow"
)

var (
	resumeOutDir string
	resumeNoSave bool
)

func NewResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Follow an analysis left running by an interrupted run",
		Long: `Resume polling the progress of the analysis recorded as ongoing.

When the analysis completed on the backend its saved result is fetched,
shown and written as artifacts like a regular analyze run. The recorded
session is forgotten once it finishes, when the backend no longer knows it,
or after ARQV30_RECOVERY_TIMEOUT (60s by default).`,
		Args: cobra.NoArgs,
		RunE: runResume,
	}
	cmd.Flags().StringVar(&resumeOutDir, "out", "", "Directory for the HTML and JSON artifacts (overrides ARQV30_ARTIFACT_STORE)")
	cmd.Flags().BoolVar(&resumeNoSave, "no-save", false, "Do not write the HTML and JSON artifacts")
	return cmd
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	s := newSpinner(" Recuperando sessão...")
	session := workflow.New(a.client, a.store, workflow.Options{
		PollInterval:    a.cfg.PollInterval,
		MaxPollFailures: a.cfg.MaxPollFailures,
		RecoveryTimeout: a.cfg.RecoveryTimeout,
		Logger:          a.logger,
		OnResume: func(id string) {
			printInfo(fmt.Sprintf("Análise em andamento detectada (%s). Recuperando progresso...", id))
			s.Start()
		},
		OnProgress: func(p model.Progress) {
			setSuffix(s, " "+formatter.FormatProgress(p))
		},
	})

	outcome, err := session.Resume(ctx)
	s.Stop()
	if errors.Is(err, workflow.ErrNoOngoingSession) {
		printInfo("Nenhuma análise em andamento")
		return nil
	}
	if outcome == nil {
		return err
	}

	switch outcome.State {
	case poller.StateComplete:
		printSuccess("Análise concluída no servidor")
		if outcome.ResultErr != nil {
			printError(fmt.Sprintf("Resultado indisponível: %v", outcome.ResultErr))
			break
		}
		return a.keepResult(ctx, cmd.OutOrStdout(), outcome.Report, session.Result(), resumeOutDir, !resumeNoSave)
	case poller.StateAbandoned:
		printInfo("A sessão não existe mais no servidor")
	case poller.StateFailed:
		printError(fmt.Sprintf("Falha ao consultar o progresso: %v", outcome.LastErr))
	case poller.StateStopped:
		printInfo("Acompanhamento interrompido")
	}
	if outcome.Progress.CurrentMessage != "" || outcome.Progress.Percentage > 0 {
		if derr := formatter.DisplayProgress(cmd.OutOrStdout(), outcome.SessionID, outcome.Progress, outputFormat); derr != nil {
			return derr
		}
	}
	if ctx.Err() != nil {
		// Interrupted by the user.
		return nil
	}
	return err
}
