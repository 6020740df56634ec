package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/helmcode/arqv30-client/pkg/form"
	"github.com/helmcode/arqv30-client/pkg/formatter"
	"github.com/helmcode/arqv30-client/pkg/model"
	"github.com/helmcode/arqv30-client/pkg/workflow"
)

var (
	analyzeFields []string
	analyzeOutDir string
	analyzeNoSave bool
)

func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [flags]",
		Short: "Run a unified market analysis",
		Long: `Start a unified market analysis on the backend and follow its progress.

Fields are merged over the form saved by previous runs (see "arqv30 form").
segmento and produto are required.

Examples:
  # Analyze a product in a segment
  arqv30 analyze -f segmento="Educação online" -f produto="Curso de marketing digital"

  # Add context and save the artifacts to a directory
  arqv30 analyze -f publico_alvo="Empreendedores" --out ./reports

  # Machine-readable summary
  arqv30 analyze -o json`,
		Args: cobra.NoArgs,
		RunE: runAnalyze,
	}

	cmd.Flags().StringArrayVarP(&analyzeFields, "field", "f", nil, "Form field as key=value (repeatable, empty value removes the field)")
	cmd.Flags().StringVar(&analyzeOutDir, "out", "", "Directory for the HTML and JSON artifacts (overrides ARQV30_ARTIFACT_STORE)")
	cmd.Flags().BoolVar(&analyzeNoSave, "no-save", false, "Do not write the HTML and JSON artifacts")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	updates, err := form.ParseFields(analyzeFields)
	if err != nil {
		return err
	}
	saved, err := a.store.LoadForm(ctx)
	if err != nil {
		a.logger.Warn("ignoring unreadable saved form", "error", err)
		saved = model.Form{}
	}
	f := form.Merge(saved, updates)

	printHeader(f)

	s := newSpinner(" Iniciando análise...")
	session := workflow.New(a.client, a.store, workflow.Options{
		PollInterval:    a.cfg.PollInterval,
		MaxPollFailures: a.cfg.MaxPollFailures,
		RequestTimeout:  a.cfg.RequestTimeout,
		RecoveryTimeout: a.cfg.RecoveryTimeout,
		Logger:          a.logger,
		OnProgress: func(p model.Progress) {
			setSuffix(s, " "+formatter.FormatProgress(p))
		},
	})

	s.Start()
	report, err := session.Start(ctx, f)
	s.Stop()
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				printError(p)
			}
			return fmt.Errorf("form is not valid, analysis not started")
		}
		if ctx.Err() != nil {
			printInfo("Análise interrompida. Use \"arqv30 resume\" para acompanhar a sessão.")
			return ctx.Err()
		}
		return fmt.Errorf("analysis failed: %w", err)
	}
	printSuccess("Análise concluída")

	return a.keepResult(ctx, cmd.OutOrStdout(), report, session.Result(), analyzeOutDir, !analyzeNoSave)
}

func printHeader(f model.Form) {
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Fprintln(os.Stderr)
	cyan.Fprintln(os.Stderr, "🔍 ARQV30 Análise Unificada")
	fmt.Fprintf(os.Stderr, "📝 Segmento: %s\n", f[form.FieldSegmento])
	fmt.Fprintf(os.Stderr, "📦 Produto: %s\n", f[form.FieldProduto])

	var extra []string
	for _, k := range []string{form.FieldPublicoAlvo, form.FieldObjetivos, form.FieldContexto, form.FieldQuery, form.FieldPreco} {
		if f[k] != "" {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		fmt.Fprintf(os.Stderr, "📊 Campos adicionais: %s\n", strings.Join(extra, ", "))
	}
	fmt.Fprintln(os.Stderr)
}
