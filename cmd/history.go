package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past refinements, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.openEnv("", nil)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			st := newStyles(e.app.Theme())
			entries := e.app.Session().History().Entries()
			if len(entries) == 0 {
				fmt.Fprintln(out, st.muted.Render("no refinements yet"))
				return nil
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			for _, entry := range entries {
				fmt.Fprintf(out, "%s %s %s  %s\n",
					st.label.Render(shortID(entry.ID)),
					st.muted.Render(entry.Time().Format("2006-01-02 15:04")),
					st.muted.Render(fmt.Sprintf("[%s]", entry.Mode)),
					truncate(entry.Raw, 60))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n entries")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print the refined prompt of one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := strings.TrimSpace(args[0])
			if prefix == "" {
				return errEmptyID
			}

			e, err := opts.openEnv("", nil)
			if err != nil {
				return err
			}
			defer e.Close()

			for _, entry := range e.app.Session().History().Entries() {
				if strings.HasPrefix(entry.ID, prefix) {
					fmt.Fprintln(cmd.OutOrStdout(), entry.Refined)
					return nil
				}
			}
			return fmt.Errorf("no history entry with id %s", args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.openEnv("", nil)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.app.Session().ClearHistory(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	})
	return cmd
}

var errEmptyID = errors.New("history entry id must not be empty")

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate shortens s to max runes on a single line
func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
