package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/helmcode/arqv30-client/pkg/api"
	"github.com/helmcode/arqv30-client/pkg/artifact"
	"github.com/helmcode/arqv30-client/pkg/config"
	"github.com/helmcode/arqv30-client/pkg/formatter"
	"github.com/helmcode/arqv30-client/pkg/model"
	"github.com/helmcode/arqv30-client/pkg/render"
	"github.com/helmcode/arqv30-client/pkg/store"
	"github.com/helmcode/arqv30-client/pkg/telemetry"
	"github.com/helmcode/arqv30-client/pkg/workflow"
)

// Version is reported in telemetry resources; main overwrites it.
var Version = "dev"

var (
	baseURL      string
	outputFormat string
	verbose      bool
)

// AddGlobalFlags registers the flags shared by every subcommand.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "Backend URL (overrides ARQV30_BASE_URL)")
	root.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatter.FormatHuman, "Output format (human, json, yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// app holds what a command needs to talk to the backend and the local store.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	client  *api.Client
	store   *store.Store
	closers []func()
}

func setup(ctx context.Context) (*app, error) {
	if !formatter.ValidFormat(outputFormat) {
		return nil, fmt.Errorf("unknown output format %q (want human, json or yaml)", outputFormat)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	a := &app{cfg: cfg}
	logger, closeLog, err := telemetry.InitLogger(telemetry.LoggerOptions{Dir: cfg.LogDir(), Verbose: verbose})
	if err != nil {
		return nil, err
	}
	a.logger = logger
	a.closers = append(a.closers, func() { _ = closeLog() })

	shutdown, err := telemetry.InitTelemetry(ctx, cfg.LogDir(), Version)
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
	} else {
		a.closers = append(a.closers, shutdown)
	}

	opts := []api.Option{api.WithLogger(logger)}
	if cfg.APIToken != "" {
		opts = append(opts, api.WithToken(cfg.APIToken))
	}
	a.client, err = api.New(cfg.BaseURL, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store, err = store.Open(cfg.DatabasePath())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open local store: %w", err)
	}
	a.closers = append(a.closers, func() { _ = a.store.Close() })

	logger.Debug("configuration loaded", "base_url", cfg.BaseURL, "state_dir", cfg.StateDir)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// sink returns where artifacts are written. outDir overrides the configured store.
// keepResult stores a finished analysis as the last result, writes its
// artifacts when save is set and prints the report.
func (a *app) keepResult(ctx context.Context, w io.Writer, report *render.Report, result *model.AnalysisResponse, outDir string, save bool) error {
	if err := a.store.SaveLastResult(ctx, report.SessionID, result.AnalysisResult); err != nil {
		a.logger.Warn("failed to keep last result", "error", err)
	}

	var locations []string
	if save {
		sink, err := a.sink(ctx, outDir)
		if err != nil {
			return err
		}
		locations, err = workflow.SaveArtifacts(ctx, sink, report)
		if err != nil {
			printError(err.Error())
		}
	}
	return formatter.DisplayReport(w, report, locations, outputFormat)
}

func (a *app) sink(ctx context.Context, outDir string) (artifact.Sink, error) {
	if outDir != "" {
		return artifact.NewLocal(outDir), nil
	}
	if a.cfg.ArtifactStore == config.StoreS3 {
		return artifact.NewS3(ctx, a.cfg.AWSRegion, a.cfg.S3Bucket, a.cfg.S3Prefix)
	}
	return artifact.NewLocal(a.cfg.ArtifactDir), nil
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	return s
}

func setSuffix(s *spinner.Spinner, suffix string) {
	s.Lock()
	s.Suffix = suffix
	s.Unlock()
}

func printSuccess(msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(os.Stderr, "✓ %s\n", msg)
}

func printError(msg string) {
	red := color.New(color.FgRed)
	red.Fprintf(os.Stderr, "✗ %s\n", msg)
}

func printInfo(msg string) {
	cyan := color.New(color.FgCyan)
	cyan.Fprintf(os.Stderr, "ℹ %s\n", msg)
}
