package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bborn/codex-vault/internal/config"
	"github.com/bborn/codex-vault/internal/notes"
	"github.com/bborn/codex-vault/internal/taskflow"
	"github.com/bborn/codex-vault/internal/ui"
	"github.com/bborn/codex-vault/internal/vault"
)

// taskSummary is one row of `task list`.
type taskSummary struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Updated string `json:"updated,omitempty"`
	Path    string `json:"path"`
}

func newTaskCmd(a *app) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage backlog task notes",
	}
	taskCmd.AddCommand(
		newTaskCreateCmd(a),
		newTaskListCmd(a),
		newTaskShowCmd(a),
		newTaskStatusCmd(a),
		newTaskRefineCmd(a),
	)
	return taskCmd
}

func newTaskCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <slug|text>",
		Short: "Create a backlog note",
		Long: `Create a backlog note in ai/backlog/.

Without --mode a plain note is written with --description as its body. With
--mode the note is shaped by that creation mode (guided, refine, planThis).

Examples:
  codex-vault task create kpi-dashboard --description "Weekly KPI charts"
  codex-vault task create "Add weekly KPI charts for sales" --mode planThis
  codex-vault task create "Add weekly KPI charts" --mode refine --title "KPI Dashboard"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			modeFlag, _ := cmd.Flags().GetString("mode")
			slugFlag, _ := cmd.Flags().GetString("slug")
			input := joinArgs(args)

			e, err := a.open()
			if err != nil {
				return err
			}

			req := taskflow.Request{Title: title, Slug: firstNonEmpty(slugFlag, input)}
			var res taskflow.Result
			if modeFlag == "" {
				req.Text = description
				res, err = e.flow.CreatePlain(cmd.Context(), req)
			} else {
				mode, ok := config.ParseCreationMode(modeFlag)
				if !ok {
					return fmt.Errorf("%w: %q (want one of %s)", taskflow.ErrUnknownMode, modeFlag, joinModes())
				}
				req.Mode = mode
				req.Text = strings.TrimSpace(input + "\n\n" + description)
				res, err = e.flow.CreateTask(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			printCreated(cmd, res)
			return nil
		},
	}
	cmd.Flags().String("title", "", "Note title (default: derived from the slug)")
	cmd.Flags().StringP("description", "d", "", "Task description")
	cmd.Flags().StringP("mode", "m", "", "Creation mode: guided, refine or planThis")
	cmd.Flags().String("slug", "", "Slug to use instead of deriving one from the text")
	return cmd
}

func newTaskListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backlog notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("json")
			statusFilter, _ := cmd.Flags().GetString("status")

			e, err := a.open()
			if err != nil {
				return err
			}
			slugs, err := e.store.List()
			if err != nil {
				return err
			}

			tasks := []taskSummary{}
			for _, s := range slugs {
				meta, err := e.store.Meta(e.vault.BacklogPath(s))
				if err != nil {
					e.logger.Warn("Could not read note", "slug", s, "error", err)
					continue
				}
				if statusFilter != "" && meta.Status != statusFilter {
					continue
				}
				tasks = append(tasks, taskSummary{
					Slug:    s,
					Title:   firstNonEmpty(meta.Title, s),
					Status:  meta.Status,
					Updated: meta.Updated,
					Path:    vault.BacklogRel(s),
				})
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(tasks)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(out, ui.Dim.Render("No tasks found"))
				return nil
			}
			for _, t := range tasks {
				status := ui.StatusStyle(t.Status).Render(fmt.Sprintf("%-11s", firstNonEmpty(t.Status, "-")))
				fmt.Fprintf(out, "%s %s %s\n", status, ui.Bold.Render(t.Slug), ui.Dim.Render(t.Title))
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	cmd.Flags().String("status", "", "Only list notes with this status")
	return cmd
}

func newTaskShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Show a backlog note with its research and plan status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")
			taskSlug := args[0]

			e, err := a.open()
			if err != nil {
				return err
			}
			path := e.vault.BacklogPath(taskSlug)
			data, err := os.ReadFile(path)
			if err != nil {
				return &notes.MissingNoteError{
					Slug: taskSlug,
					Path: vault.BacklogRel(taskSlug),
					Hint: fmt.Sprintf("create it with `codex-vault task create %s`", taskSlug),
				}
			}

			out := cmd.OutOrStdout()
			if raw {
				fmt.Fprint(out, string(data))
				return nil
			}

			split := notes.SplitContent(string(data))
			meta := notes.ParseMeta(split.Frontmatter)
			fmt.Fprintf(out, "%s %s\n", ui.Bold.Render("Status:"), ui.StatusStyle(meta.Status).Render(firstNonEmpty(meta.Status, "-")))
			if meta.Updated != "" {
				fmt.Fprintf(out, "%s %s\n", ui.Bold.Render("Updated:"), meta.Updated)
			}
			for _, k := range []vault.Kind{vault.KindResearch, vault.KindImplPlan} {
				state := ui.Dim.Render("missing")
				if _, err := os.Stat(e.vault.OutputPath(k, taskSlug)); err == nil {
					state = ui.Success.Render(vault.OutputRel(k, taskSlug))
				}
				fmt.Fprintf(out, "%s %s\n", ui.Bold.Render(string(k)+":"), state)
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, ui.RenderMarkdown(split.Body, 0))
			return nil
		},
	}
	cmd.Flags().Bool("raw", false, "Print the note file unchanged")
	return cmd
}

func newTaskStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <slug> <status>",
		Short: "Set a note's status (" + strings.Join(notes.Statuses, ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.open()
			if err != nil {
				return err
			}
			res, err := e.flow.SetStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Check(fmt.Sprintf("%s is now %s", res.Slug, ui.StatusStyle(args[1]).Render(args[1]))))
			return nil
		},
	}
}

func newTaskRefineCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refine <slug>",
		Short: "Rewrite a note into the Goal / Definition of Done template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := cmd.Flags().GetString("text")
			planTodos, _ := cmd.Flags().GetBool("plan-todos")

			e, err := a.open()
			if err != nil {
				return err
			}
			res, err := e.flow.Refine(cmd.Context(), args[0], text, planTodos)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Check("Refined "+vault.BacklogRel(res.Slug)))
			return nil
		},
	}
	cmd.Flags().String("text", "", "Goal text (default: the note's current body)")
	cmd.Flags().Bool("plan-todos", false, "Add TODOs for the research and plan agents")
	return cmd
}

func printCreated(cmd *cobra.Command, res taskflow.Result) {
	out := cmd.OutOrStdout()
	verb := "Created"
	if res.Refined {
		verb = "Created and refined"
	}
	fmt.Fprintln(out, ui.Check(fmt.Sprintf("%s %s", verb, vault.BacklogRel(res.Slug))))
	fmt.Fprintln(out, ui.Dim.Render(fmt.Sprintf("Next: codex-vault pipeline %s", res.Slug)))
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func joinModes() string {
	names := make([]string, len(config.CreationModes))
	for i, m := range config.CreationModes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
