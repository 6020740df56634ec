package main

import (
	"fmt"
	"os"

	"github.com/helmcode/arqv30-client/cmd"
	"github.com/spf13/cobra"
)

var (
	version = "v0.1.0" // Overwritten at build time
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd.Version = version

	rootCmd := &cobra.Command{
		Use:   "arqv30",
		Short: "Command-line client for the ARQV30 market analysis backend",
		Long: `arqv30 starts unified market analyses on an ARQV30 backend, follows their
progress and saves the resulting HTML report and JSON analysis.`,
		SilenceUsage: true,
	}

	// Disable automatic 'completion' command added by cobra
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	cmd.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(
		cmd.NewAnalyzeCmd(),
		cmd.NewResumeCmd(),
		cmd.NewProgressCmd(),
		cmd.NewPrepitchCmd(),
		cmd.NewSessionsCmd(),
		cmd.NewStatusCmd(),
		cmd.NewFormCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("arqv30 version %s\n", version)
		},
	}
}
