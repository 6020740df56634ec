package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/helmcode/arqv30-client/pkg/form"
	"github.com/helmcode/arqv30-client/pkg/formatter"
	"github.com/helmcode/arqv30-client/pkg/model"
)

func NewFormCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Manage the saved analysis form",
		Long: `The form is saved locally and reused by "arqv30 analyze".

Examples:
  arqv30 form set segmento="Educação online" produto="Curso de marketing"
  arqv30 form set preco=    # removes preco
  arqv30 form show
  arqv30 form clear`,
	}
	cmd.AddCommand(newFormSetCmd(), newFormShowCmd(), newFormClearCmd())
	return cmd
}

func newFormSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY=VALUE...",
		Short: "Set form fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			updates, err := form.ParseFields(args)
			if err != nil {
				return err
			}
			saved, err := a.store.LoadForm(ctx)
			if err != nil {
				return err
			}
			merged := form.Merge(saved, updates)
			if err := a.store.SaveForm(ctx, merged); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Formulário salvo (%d campos)", len(merged)))
			reportValidation(merged)
			return nil
		},
	}
}

func newFormShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the saved form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := a.store.LoadForm(ctx)
			if err != nil {
				return err
			}
			if outputFormat != formatter.FormatHuman {
				return formatter.Encode(cmd.OutOrStdout(), f, outputFormat)
			}
			if len(f) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), color.HiBlackString("Formulário vazio"))
				return nil
			}
			keys := make([]string, 0, len(f))
			for k := range f {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", color.CyanString(k), f[k])
			}
			reportValidation(f)
			return nil
		},
	}
}

func newFormClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.ClearForm(cmd.Context()); err != nil {
				return err
			}
			printSuccess("Formulário apagado")
			return nil
		},
	}
}

func reportValidation(f model.Form) {
	var verr *form.ValidationError
	if err := form.Validate(f); errors.As(err, &verr) {
		for _, p := range verr.Problems {
			printError(p)
		}
	}
}
