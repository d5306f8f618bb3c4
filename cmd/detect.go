package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"promptarch/config"
	"promptarch/events"
	"promptarch/workspace"
)

func newDetectCmd(opts *globalOptions) *cobra.Command {
	var (
		watch   bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "detect [dir]",
		Short: "Show the languages and tech stack detected in a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}

			e, err := opts.openEnv(dir, func(cfg *config.Config) {
				cfg.Project.Watch = watch
			})
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			folder := dir
			if folder == "" {
				folder = e.workspace
			}

			out := cmd.OutOrStdout()
			st := newStyles(e.app.Theme())
			show := func(p *workspace.Project) {
				if jsonOut {
					_ = writeProjectJSON(out, p)
					return
				}
				writeProject(out, p, st)
			}

			project, err := e.app.OpenProject(ctx, folder)
			if err != nil {
				return err
			}
			show(project)

			if !watch {
				return nil
			}

			e.app.Bus().Subscribe(events.ProjectChanged, func(ev events.Event) {
				if p, ok := ev.Data.(*workspace.Project); ok && p != nil {
					show(p)
				}
			})
			fmt.Fprintln(cmd.ErrOrStderr(), st.muted.Render("watching for changes, Ctrl-C to stop"))
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and re-detect when files change")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

func writeProject(out io.Writer, p *workspace.Project, st styles) {
	fmt.Fprintln(out, st.title.Render(p.FolderPath))
	fmt.Fprintf(out, "%s %s\n", st.label.Render("languages "), listOrNone(p.Languages, st))
	fmt.Fprintf(out, "%s %s\n", st.label.Render("tech stack"), listOrNone(p.TechStack, st))
	fmt.Fprintf(out, "%s %d\n", st.label.Render("files     "), workspace.CountFiles(p.Tree))
	fmt.Fprintf(out, "%s %s\n", st.label.Render("configs   "), listOrNone(p.Configs.Names(), st))
}

func writeProjectJSON(out io.Writer, p *workspace.Project) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		FolderPath string   `json:"folderPath"`
		Languages  []string `json:"detectedLanguages"`
		TechStack  []string `json:"techStack"`
		Files      int      `json:"files"`
		Configs    []string `json:"configFiles"`
	}{
		FolderPath: p.FolderPath,
		Languages:  p.Languages,
		TechStack:  p.TechStack,
		Files:      workspace.CountFiles(p.Tree),
		Configs:    p.Configs.Names(),
	})
}

func listOrNone(items []string, st styles) string {
	if len(items) == 0 {
		return st.muted.Render("none")
	}
	return strings.Join(items, ", ")
}
