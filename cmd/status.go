package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the connection to the model server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.openEnv("", nil)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			out := cmd.OutOrStdout()
			st := newStyles(e.app.Theme())
			baseURL := e.app.Client().BaseURL()

			ok, err := e.app.Connect(ctx)
			if !ok {
				fmt.Fprintf(out, "%s %s\n", st.label.Render("server"), baseURL)
				fmt.Fprintf(out, "%s %s\n", st.label.Render("status"), st.failure.Render("disconnected"))
				return err
			}

			fmt.Fprintf(out, "%s %s\n", st.label.Render("server"), baseURL)
			fmt.Fprintf(out, "%s %s\n", st.label.Render("status"), st.success.Render("connected"))
			if err != nil {
				return err
			}

			models := e.app.Models(false)
			local := e.app.Models(true)
			fmt.Fprintf(out, "%s %d installed, %d local\n", st.label.Render("models"), len(models), len(local))

			model := e.app.Session().State().Model
			if model == "" {
				model = st.muted.Render("(none)")
			}
			fmt.Fprintf(out, "%s %s\n", st.label.Render("selected"), model)
			return nil
		},
	}
}
