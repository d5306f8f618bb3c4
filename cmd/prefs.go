package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptarch/app"
)

func newPrefsCmd(opts *globalOptions) *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change the theme and language preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.openEnv("", nil)
			if err != nil {
				return err
			}
			defer e.Close()

			st := newStyles(e.app.Theme())
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", st.label.Render("theme   "), e.app.Theme())
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", st.label.Render("language"), e.app.Language())
			return nil
		},
	}

	prefsCmd.AddCommand(&cobra.Command{
		Use:       "theme [dark|light|toggle]",
		Short:     "Set the theme",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(app.ThemeDark), string(app.ThemeLight), "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.openEnv("", nil)
			if err != nil {
				return err
			}
			defer e.Close()

			if args[0] == "toggle" {
				e.app.ToggleTheme()
			} else if err := e.app.SetTheme(app.Theme(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theme set to %s\n", e.app.Theme())
			return nil
		},
	})

	prefsCmd.AddCommand(&cobra.Command{
		Use:   "language [en|tr|de|fi]",
		Short: "Set the interface language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.openEnv("", nil)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.app.SetLanguage(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Language set to %s\n", e.app.Language())
			return nil
		},
	})

	return prefsCmd
}
