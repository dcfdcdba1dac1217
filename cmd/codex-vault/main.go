// codex-vault manages a markdown task vault and runs agent CLIs against it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bborn/codex-vault/internal/config"
	"github.com/bborn/codex-vault/internal/hooks"
	"github.com/bborn/codex-vault/internal/notes"
	"github.com/bborn/codex-vault/internal/taskflow"
	"github.com/bborn/codex-vault/internal/ui"
	"github.com/bborn/codex-vault/internal/vault"
)

var version = "dev"

// app holds the global flags shared by every command.
type app struct {
	root    string
	verbose bool
	logger  *log.Logger
}

// env is an opened vault with its configuration and collaborators.
type env struct {
	vault  *vault.Vault
	cfg    config.Config
	store  *notes.Store
	hooks  *hooks.Runner
	flow   *taskflow.Flow
	logger *log.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, ui.Error.Render("Error: "+err.Error()))
		if h := hint(err); h != "" {
			fmt.Fprintln(os.Stderr, ui.Dim.Render(h))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "codex-vault",
		Short:         "Markdown task vault for agent CLIs",
		Long:          "Create backlog notes, assemble agent prompts and store research and implementation plans in an ai/ vault.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.WarnLevel
			if a.verbose {
				level = log.DebugLevel
			}
			a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
				Prefix: "codex-vault",
				Level:  level,
			})
			if a.root == "" {
				a.root, _ = os.Getwd()
			}
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&a.root, "root", "", "Vault root directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newInitCmd(a),
		newInfoCmd(a),
		newTaskCmd(a),
		newDetectCmd(a),
		newResearchCmd(a),
		newPlanCmd(a),
		newPipelineCmd(a),
		newRunsCmd(a),
		newWatchCmd(a),
	)
	return rootCmd
}

// open loads the vault at the root flag. Manifest problems are logged and
// defaults are used.
func (a *app) open() (*env, error) {
	v, err := vault.Open(a.root)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(a.root)
	if err != nil {
		a.logger.Warn("Could not read vault config, using defaults", "error", err)
	}
	for _, w := range cfg.Warnings {
		a.logger.Warn(w, "source", cfg.Source)
	}

	store := notes.NewStore(v)
	h := hooks.New(v.Root, v.HooksDir(), a.logger.WithPrefix("hooks"))
	flow := taskflow.New(store, ui.NewPrompter(a.logger.WithPrefix("ui")),
		taskflow.WithHooks(h),
		taskflow.WithLogger(a.logger.WithPrefix("taskflow")),
	)
	return &env{
		vault:  v,
		cfg:    cfg,
		store:  store,
		hooks:  h,
		flow:   flow,
		logger: a.logger,
	}, nil
}

func newInitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the ai/ vault layout in the root directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			written, err := vault.Init(a.root, force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(written) == 0 {
				fmt.Fprintln(out, ui.Dim.Render("Vault already complete, nothing written"))
				return nil
			}
			for _, p := range written {
				fmt.Fprintln(out, ui.Check(p))
			}
			fmt.Fprintf(out, "\nVault ready in %s\n", a.root)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Copy missing template files into an existing ai/ directory")
	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the vault layout, configuration and available executors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			v := vault.New(a.root)
			cfg, err := config.Load(a.root)
			if err != nil {
				a.logger.Warn("Could not read vault config, using defaults", "error", err)
			}

			fmt.Fprintln(out, ui.Title.Render("codex-vault "+version))
			fmt.Fprintf(out, "%s %s\n", ui.Bold.Render("Root:"), v.Root)
			if v.Recognized() {
				fmt.Fprintf(out, "%s %s\n", ui.Bold.Render("Vault:"), ui.Success.Render("recognized"))
			} else {
				fmt.Fprintf(out, "%s %s\n", ui.Bold.Render("Vault:"), ui.Warning.Render("not initialized (run codex-vault init)"))
			}

			source := cfg.Source
			if source == "" {
				source = "defaults"
			}
			fmt.Fprintf(out, "\n%s %s\n", ui.Bold.Render("Config:"), source)
			fmt.Fprintf(out, "  autoDetectTasks:  %s\n", cfg.AutoDetectTasks)
			fmt.Fprintf(out, "  taskCreationMode: %s\n", cfg.TaskCreationMode)
			fmt.Fprintf(out, "  executor:         %s\n", cfg.Executor)
			fmt.Fprintf(out, "  executorTimeout:  %s\n", cfg.ExecutorTimeout)
			for _, w := range cfg.Warnings {
				fmt.Fprintln(out, "  "+ui.Warning.Render(w))
			}

			fmt.Fprintf(out, "\n%s\n", ui.Bold.Render("Layout:"))
			for _, p := range vault.Layout() {
				fmt.Fprintln(out, "  "+p)
			}

			fmt.Fprintf(out, "\n%s\n", ui.Bold.Render("Executors:"))
			reg := newRegistry(a)
			for _, name := range reg.Names() {
				state := ui.Dim.Render("not found")
				if reg.Get(name).IsAvailable() {
					state = ui.Success.Render("available")
				}
				fmt.Fprintf(out, "  %-8s %s\n", name, state)
			}
			return nil
		},
	}
}

func newDetectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <text>",
		Short: "Create a task from text if it looks like one and auto-detect allows it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := joinArgs(args)
			e, err := a.open()
			if err != nil {
				if isNotVault(err) {
					fmt.Fprintln(cmd.OutOrStdout(), ui.Dim.Render("Skipped: "+taskflow.ReasonNotVault))
					return nil
				}
				return err
			}

			out, err := e.flow.MaybeCreateFromText(cmd.Context(), text, e.cfg)
			if err != nil {
				return err
			}
			if out.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Dim.Render("Skipped: "+out.Reason))
				return nil
			}
			printCreated(cmd, out.Result)
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch ai/inbox/ and turn dropped text files into tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.open()
			if err != nil {
				return err
			}
			return runWatch(cmd, e)
		},
	}
}
