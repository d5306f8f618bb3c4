package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"promptarch/config"
	"promptarch/events"
	"promptarch/session"
)

type refineOptions struct {
	model     string
	mode      string
	dir       string
	noProject bool
	quiet     bool
}

// errNoPrompt is returned when neither arguments nor stdin carry a prompt
var errNoPrompt = errors.New("no prompt given: pass it as arguments or on stdin")

func runRefine(cmd *cobra.Command, opts *globalOptions, ro *refineOptions, args []string) error {
	raw, err := readPrompt(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	var mode session.Mode
	if ro.mode != "" {
		if mode, err = session.ParseMode(ro.mode); err != nil {
			return err
		}
	}

	e, err := opts.openEnv(ro.dir, func(cfg *config.Config) {
		if ro.noProject {
			cfg.Project.Watch = false
		}
	})
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := interruptContext(cmd.Context())
	defer stop()

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	st := newStyles(e.app.Theme())
	coordinator := e.app.Session()

	if _, err := e.app.Connect(ctx); err != nil {
		return fmt.Errorf("cannot reach the model server at %s: %w", e.app.Client().BaseURL(), err)
	}
	if ro.model != "" {
		if err := e.app.SelectModel(ro.model); err != nil {
			return err
		}
	}
	if mode != "" {
		if err := coordinator.SetMode(mode); err != nil {
			return err
		}
	}

	if !ro.noProject {
		folder := ro.dir
		if folder == "" {
			folder = e.workspace
		}
		project, err := e.app.OpenProject(ctx, folder)
		if err != nil {
			e.logger.Warn("continuing without project context", zap.String("folder", folder), zap.Error(err))
		} else if !ro.quiet {
			fmt.Fprintln(errOut, st.muted.Render(fmt.Sprintf("project %s %s", project.FolderPath, techStackLabel(project.TechStack))))
		}
	}

	var (
		streamed  bool
		cancelled bool
	)
	if !ro.quiet {
		e.app.Bus().Subscribe(events.GenerationFragment, func(ev events.Event) {
			streamed = true
			fmt.Fprint(out, ev.Data.(events.Generation).Fragment)
		})
	}
	e.app.Bus().Subscribe(events.GenerationCancelled, func(events.Event) { cancelled = true })

	state := coordinator.State()
	if !ro.quiet {
		fmt.Fprintln(errOut, st.muted.Render(fmt.Sprintf("refining with %s (%s mode, about %s)", state.Model, state.Mode, session.ProfileFor(state.Mode).Estimate)))
	}

	coordinator.SetRawPrompt(raw)
	if err := coordinator.StartGeneration(ctx); err != nil {
		if streamed {
			fmt.Fprintln(out)
		}
		return err
	}

	final := coordinator.State().Refined
	if cancelled {
		if streamed {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(errOut, st.failure.Render("stopped; the partial response was not saved"))
		return nil
	}

	if ro.quiet {
		fmt.Fprintln(out, final)
		return nil
	}
	if streamed {
		fmt.Fprint(out, "\n\n")
	}
	fmt.Fprintln(out, st.header.Render("Refined prompt"))
	fmt.Fprintln(out, st.prompt.Render(final))
	return nil
}

// readPrompt joins args, or reads all of in when there are none
func readPrompt(in io.Reader, args []string) (string, error) {
	raw := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
		}
		raw = string(data)
	}
	if strings.TrimSpace(raw) == "" {
		return "", errNoPrompt
	}
	return strings.TrimSpace(raw), nil
}

func techStackLabel(stack []string) string {
	if len(stack) == 0 {
		return "(no stack detected)"
	}
	return "[" + strings.Join(stack, ", ") + "]"
}
