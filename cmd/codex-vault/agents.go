package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bborn/codex-vault/internal/executor"
	"github.com/bborn/codex-vault/internal/inbox"
	"github.com/bborn/codex-vault/internal/pipeline"
	"github.com/bborn/codex-vault/internal/runlog"
	"github.com/bborn/codex-vault/internal/taskflow"
	"github.com/bborn/codex-vault/internal/ui"
	"github.com/bborn/codex-vault/internal/vault"
)

func newRegistry(a *app) *executor.Registry {
	return executor.DefaultRegistry(a.logger.WithPrefix("executor"))
}

// newPipeline wires the executor, run ledger, hooks and spinner for agent
// commands. The returned cleanup closes the ledger.
func newPipeline(cmd *cobra.Command, a *app, e *env) (*pipeline.Pipeline, func(), error) {
	name, _ := cmd.Flags().GetString("executor")
	name = firstNonEmpty(name, e.cfg.Executor)
	timeout := e.cfg.ExecutorTimeout
	if cmd.Flags().Changed("timeout") {
		timeout, _ = cmd.Flags().GetDuration("timeout")
	}

	runner, ok := newRegistry(a).Resolve(name)
	if !ok {
		e.logger.Warn("Unknown executor, falling back", "executor", name, "using", runner.Name())
	}

	opts := []pipeline.Option{
		pipeline.WithHooks(e.hooks),
		pipeline.WithTimeout(timeout),
		pipeline.WithProgress(ui.RunWithSpinner[string]),
		pipeline.WithLogger(e.logger.WithPrefix("pipeline")),
	}
	cleanup := func() {}
	ledger, err := runlog.Open(e.vault.Root)
	if err != nil {
		e.logger.Warn("Run ledger unavailable, runs will not be recorded", "error", err)
	} else {
		opts = append(opts, pipeline.WithLedger(ledger))
		cleanup = func() { ledger.Close() }
	}
	return pipeline.New(e.store, runner, opts...), cleanup, nil
}

func addAgentFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("description", "d", "", "Task description (default: first line of the backlog note)")
	cmd.Flags().StringP("executor", "e", "", "Executor CLI to run (codex, claude)")
	cmd.Flags().Duration("timeout", 0, "Per-call executor timeout (default: from config, 10m)")
}

// agentCmd builds a command that opens the vault and runs fn with a pipeline.
func agentCmd(a *app, use, short string, fn func(cmd *cobra.Command, p *pipeline.Pipeline, slug, desc string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, _ := cmd.Flags().GetString("description")
			e, err := a.open()
			if err != nil {
				return err
			}
			p, cleanup, err := newPipeline(cmd, a, e)
			if err != nil {
				return err
			}
			defer cleanup()
			return fn(cmd, p, args[0], desc)
		},
	}
	addAgentFlags(cmd)
	return cmd
}

func newResearchCmd(a *app) *cobra.Command {
	return agentCmd(a, "research <slug>", "Run the research agent and save ai/research/<slug>-research.md",
		func(cmd *cobra.Command, p *pipeline.Pipeline, slug, desc string) error {
			if _, err := p.Research(cmd.Context(), slug, desc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Check("Research saved to "+vault.OutputRel(vault.KindResearch, slug)))
			return nil
		})
}

func newPlanCmd(a *app) *cobra.Command {
	return agentCmd(a, "plan <slug>", "Run the implementation-plan agent and save ai/plans/<slug>-plan.md",
		func(cmd *cobra.Command, p *pipeline.Pipeline, slug, desc string) error {
			if _, err := p.ImplPlan(cmd.Context(), slug, desc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Check("Plan saved to "+vault.OutputRel(vault.KindImplPlan, slug)))
			return nil
		})
}

func newPipelineCmd(a *app) *cobra.Command {
	return agentCmd(a, "pipeline <slug>", "Run research, then the implementation plan",
		func(cmd *cobra.Command, p *pipeline.Pipeline, slug, desc string) error {
			out := cmd.OutOrStdout()
			res, err := p.Run(cmd.Context(), slug, desc)
			if res.ResearchPath != "" {
				fmt.Fprintln(out, ui.Check("Research saved to "+vault.OutputRel(vault.KindResearch, slug)))
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Check("Plan saved to "+vault.OutputRel(vault.KindImplPlan, slug)))
			return nil
		})
}

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent executor runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			e, err := a.open()
			if err != nil {
				return err
			}
			ledger, err := runlog.Open(e.vault.Root)
			if err != nil {
				return err
			}
			defer ledger.Close()

			runs, err := ledger.List(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, ui.Dim.Render("No runs recorded"))
				return nil
			}
			for _, r := range runs {
				fmt.Fprintln(out, formatRun(r))
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func formatRun(r runlog.Run) string {
	var status string
	switch r.Status {
	case runlog.StatusSucceeded:
		status = ui.Success.Render(fmt.Sprintf("%-9s", r.Status))
	case runlog.StatusFailed:
		status = ui.Error.Render(fmt.Sprintf("%-9s", r.Status))
	default:
		status = ui.Warning.Render(fmt.Sprintf("%-9s", r.Status))
	}
	line := fmt.Sprintf("%s %s %-9s %-7s %s",
		ui.Dim.Render(r.StartedAt.Local().Format("2006-01-02 15:04")),
		status, r.Kind, r.Executor, ui.Bold.Render(r.TaskSlug))
	if d := r.Duration(); d > 0 {
		line += ui.Dim.Render(" " + d.Round(time.Second).String())
	}
	if r.Error != "" {
		line += "\n    " + ui.Error.Render(firstLine(r.Error))
	}
	return line
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func runWatch(cmd *cobra.Command, e *env) error {
	w := inbox.New(e.vault.InboxDir(), e.flow, e.cfg, e.logger.WithPrefix("inbox"))
	out := cmd.OutOrStdout()
	w.OnProcessed = func(path string, res taskflow.Outcome, err error) {
		switch {
		case err != nil:
			fmt.Fprintln(out, ui.Cross(fmt.Sprintf("%s: %v", path, err)))
		case res.Skipped:
			fmt.Fprintln(out, ui.Dim.Render(fmt.Sprintf("Skipped %s: %s", path, res.Reason)))
		default:
			printCreated(cmd, res.Result)
		}
	}
	fmt.Fprintln(out, ui.Dim.Render("Watching "+vault.Rel(vault.AIDir, vault.InboxDir)+"/ (Ctrl+C to stop)"))
	return w.Run(cmd.Context())
}
