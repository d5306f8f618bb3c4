package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"promptarch/llm"
)

func newModelsCmd(opts *globalOptions) *cobra.Command {
	var localOnly bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models installed on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.openEnv("", nil)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			if _, err := e.app.LoadModels(ctx); err != nil {
				return err
			}
			models := e.app.Models(localOnly || e.cfg.LocalModelsOnly)

			out := cmd.OutOrStdout()
			st := newStyles(e.app.Theme())
			if len(models) == 0 {
				fmt.Fprintln(out, st.muted.Render("no models installed; pull one with `ollama pull <model>`"))
				return nil
			}
			fmt.Fprintln(out, modelTable(models, st))
			return nil
		},
	}

	cmd.Flags().BoolVar(&localOnly, "local", false, "Hide cloud models")
	return cmd
}

func modelTable(models []llm.Model, st styles) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.muted).
		Headers("NAME", "SIZE", "FAMILY", "PARAMS", "QUANT", "WHERE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.label.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, m := range models {
		where := "local"
		if m.IsCloud() {
			where = "cloud"
		}
		size := "-"
		if m.Size > 0 {
			size = humanize.Bytes(uint64(m.Size))
		}
		t.Row(m.Name, size, orDash(m.Details.Family), orDash(m.Details.ParameterSize), orDash(m.Details.QuantizationLevel), where)
	}
	return t
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
