package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/dcshock/hookpipe/config"
	"github.com/dcshock/hookpipe/pipeline"
	"github.com/dcshock/hookpipe/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	settingsFile string
	pipelines    string
	logLevel     string
}

func rootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:   "runpipe",
		Short: "runpipe runs step pipelines defined in YAML",
		Long: `runpipe executes linear pipelines of named steps.

Each run folds its input through the steps, stops at the first failure,
then hands the final state to the pipeline's error handler and hooks.
Settings come from --config, a .env file and RUNPIPE_* variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.settingsFile, "config", "", "settings file (YAML)")
	root.PersistentFlags().StringVar(&g.pipelines, "pipelines", "", "pipeline definitions file (overrides settings)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (overrides settings)")

	root.AddCommand(runCmd(&g))
	root.AddCommand(listCmd(&g))
	root.AddCommand(lintCmd(&g))
	root.AddCommand(historyCmd(&g))
	return root
}

// ─── run ──────────────────────────────────────────────────────────────────────

func runCmd(g *globalFlags) *cobra.Command {
	var (
		input string
		sets  []string
	)
	cmd := &cobra.Command{
		Use:   "run <pipeline>",
		Short: "Execute a pipeline once and print its outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseInput(input)
			if err != nil {
				return err
			}
			opts, err := parseSets(sets)
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				reg, err := a.loadPipelines()
				if err != nil {
					return err
				}
				st, err := reg.Run(ctx, args[0], value, opts)
				if st == nil {
					return err
				}
				if werr := writeOutcome(cmd, st); werr != nil {
					return werr
				}
				if err != nil {
					return err
				}
				if !st.Valid() {
					return fmt.Errorf("pipeline %q failed: %w", args[0], st.Err())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "initial value as JSON (e.g. 3, \"text\", [1,2])")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "run option key=value (repeatable)")
	return cmd
}

// outcome is the JSON printed by run.
type outcome struct {
	RunID string      `json:"run_id"`
	OK    bool        `json:"ok"`
	Value interface{} `json:"value,omitempty"`
	Error string      `json:"error,omitempty"`
	Steps []string    `json:"steps"`
}

func writeOutcome(cmd *cobra.Command, st *pipeline.State) error {
	o := outcome{RunID: st.RunID(), OK: st.Valid(), Steps: st.StepNames()}
	if st.Valid() {
		o.Value = st.Value()
	} else {
		o.Error = st.Err().Error()
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	return enc.Encode(o)
}

func parseInput(s string) (interface{}, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("--input: %w", err)
	}
	return v, nil
}

// parseSets turns key=value flags into options. Values that parse as JSON
// keep their JSON type; anything else is a string.
func parseSets(sets []string) (pipeline.Options, error) {
	kv := make(map[string]interface{}, len(sets))
	for _, s := range sets {
		key, raw, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return pipeline.Options{}, fmt.Errorf("--set %q: want key=value", s)
		}
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		kv[key] = v
	}
	return pipeline.NewOptions(kv), nil
}

// ─── list ─────────────────────────────────────────────────────────────────────

func listCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the pipelines in the definitions file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(_ context.Context, a *app) error {
				reg, err := a.loadPipelines()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PIPELINE\tSTEPS\tSYNC HOOKS\tASYNC HOOKS")
				for _, name := range reg.Names() {
					p, _ := reg.Lookup(name)
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, stepNames(p.Steps), hookNames(p.SyncHooks), hookNames(p.AsyncHooks))
				}
				return tw.Flush()
			})
		},
	}
}

func stepNames(steps []pipeline.Step) string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return orDash(strings.Join(names, " → "))
}

func hookNames(hooks []pipeline.Hook) string {
	names := make([]string, len(hooks))
	for i, h := range hooks {
		names[i] = h.Name
	}
	return orDash(strings.Join(names, ","))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ─── lint ─────────────────────────────────────────────────────────────────────

func lintCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [pipelines.yaml]",
		Short: "Validate a definitions file without running it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				g.pipelines = args[0]
			}
			return withApp(cmd, g, func(_ context.Context, a *app) error {
				reg, err := a.loadPipelines()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK: %s is valid (%d pipelines)\n", a.settings.Pipelines, len(reg.Names()))
				return nil
			})
		},
	}
}

// ─── history ──────────────────────────────────────────────────────────────────

func historyCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [pipeline]",
		Short: "Show recorded runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				if a.store == nil {
					return errors.New("history needs a store: set store.dsn or RUNPIPE_STORE_DSN")
				}
				opts := store.ListOptions{Limit: limit}
				if len(args) == 1 {
					opts.Pipeline = args[0]
				}
				runs, err := a.store.ListRuns(ctx, opts)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tPIPELINE\tSTATUS\tSTARTED\tDURATION\tERROR")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\t%s\n",
						r.ID, r.Pipeline, r.Status, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Duration(), orDash(r.Error))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	return cmd
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// withApp loads settings, builds the app, runs fn under a signal-aware
// context and always closes the app.
func withApp(cmd *cobra.Command, g *globalFlags, fn func(context.Context, *app) error) (err error) {
	settings, err := config.LoadSettings(g.settingsFile)
	if err != nil {
		return err
	}
	if g.pipelines != "" {
		settings.Pipelines = g.pipelines
	}
	if g.logLevel != "" {
		settings.Log.Level = g.logLevel
	}
	a, err := newApp(settings, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()
	defer func() {
		if cerr := a.close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
