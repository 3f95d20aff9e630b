package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/honogen/internal/batch"
	"github.com/mark3labs/honogen/internal/emitter"
	"github.com/mark3labs/honogen/internal/format"
	"github.com/mark3labs/honogen/internal/generate"
	"github.com/mark3labs/honogen/internal/spec"
)

// streams are where a command prints. Tests swap them for buffers.
type streams struct {
	out io.Writer
	err io.Writer
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate TypeScript for Hono from an OpenAPI document",
		Long: "Generate Zod schemas, createRoute declarations, handler stubs and typed clients " +
			"from an OpenAPI 3.x document. Options can be provided via flags, environment, config files, or defaults.",
		Example: strings.TrimSpace(`  honogen generate --input openapi.yaml --out ./src/api
  honogen generate -i openapi.yaml --targets zod-openapi,handlers,rpc --split
  honogen --config honogen.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg, streams{out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()})
		},
	}

	flags := cmd.Flags()
	flags.StringP("input", "i", "", "Path or URL to the OpenAPI document")
	registerGenerateFlags(flags)
	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg, err := resolveBaseConfig(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig, s streams) error {
	return runConfigs(ctx, cfg, []GenerateConfig{*cfg}, s)
}

// planTasks turns one resolved config into a task per target.
func planTasks(cfg *GenerateConfig) []generate.Task {
	stem := strings.TrimSuffix(filepath.Base(cfg.Input), filepath.Ext(cfg.Input))
	opts := cfg.emitterOptions()
	filters := cfg.buildOptions()

	var writer format.Writer
	if !cfg.DryRun {
		writer = format.OSWriter{Dir: cfg.Out}
	}
	tasks := make([]generate.Task, 0, len(cfg.Targets))
	for _, name := range cfg.Targets {
		target, _ := emitter.ParseTarget(name)
		tasks = append(tasks, generate.Task{
			ID:      stem + ":" + string(target),
			Input:   cfg.Input,
			Target:  target,
			Options: opts,
			Filters: filters,
			Writer:  writer,
		})
	}
	return tasks
}

// runConfigs executes every config's tasks in one batch. base carries the
// run-wide settings: logging, formatter, workers and validation strictness.
func runConfigs(ctx context.Context, base *GenerateConfig, configs []GenerateConfig, s streams) error {
	logger, closeLog, err := newLogger(s.err, base.Verbose, base.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	formatter, err := format.New(base.Formatter)
	if err != nil {
		return newUsageError(err.Error())
	}

	var (
		tasks   []generate.Task
		outDirs []string
		checked = map[string]struct{}{}
	)
	for i := range configs {
		cfg := &configs[i]
		if !cfg.DryRun {
			abs := absPath(cfg.Out)
			if _, ok := checked[abs]; !ok {
				checked[abs] = struct{}{}
				if err := format.CheckOutputDir(cfg.Out, cfg.Force); err != nil {
					return wrapOutputError(err, abs)
				}
			}
		}
		for _, t := range planTasks(cfg) {
			tasks = append(tasks, t)
			outDirs = append(outDirs, cfg.Out)
		}
	}

	report := batch.Run(ctx, tasks, batch.Options{
		Workers: base.Workers,
		Load:    batch.DocumentLoader(spec.WithLogger(logger), spec.WithStrictValidation(base.Strict)),
		Runner:  &generate.Runner{Formatter: formatter, Logger: logger},
		Logger:  logger,
	})

	printDryRuns(s.out, configs, outDirs, report)

	if !report.OK() {
		return failureError(report)
	}
	if !anyWrites(configs) {
		return nil
	}
	fmt.Fprintf(s.out, "Generated %s tasks (run %s)\n", report.Summary(), report.RunID)
	return nil
}

func anyWrites(configs []GenerateConfig) bool {
	for _, c := range configs {
		if !c.DryRun {
			return true
		}
	}
	return false
}

// printDryRuns prints one plan per dry-run output directory, in the order
// directories first appear.
func printDryRuns(w io.Writer, configs []GenerateConfig, outDirs []string, report batch.Report) {
	dry := map[string]bool{}
	for _, c := range configs {
		if c.DryRun {
			dry[c.Out] = true
		}
	}
	var order []string
	paths := map[string][]string{}
	for i, res := range report.Results {
		dir := outDirs[i]
		if !dry[dir] {
			continue
		}
		if _, seen := paths[dir]; !seen {
			order = append(order, dir)
			paths[dir] = nil
		}
		for _, p := range res.Planned {
			paths[dir] = append(paths[dir], p.RelPath)
		}
	}
	for _, dir := range order {
		rel := paths[dir]
		sort.Strings(rel)
		printPlan(w, absPath(dir), rel)
	}
}

func printPlan(w io.Writer, outDir string, relPaths []string) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", outDir, len(relPaths))
	for _, p := range relPaths {
		fmt.Fprintf(w, "- %s\n", p)
	}
}

// failureError lists every failed task, mapping structured spec errors into
// friendly messages.
func failureError(report batch.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "generate: %s tasks succeeded", report.Summary())
	for _, res := range report.Results {
		if res.Err == nil {
			continue
		}
		fmt.Fprintf(&b, "\n- %s: %s", res.TaskID, describeError(res.Err))
	}
	return newUsageError(b.String())
}

func describeError(err error) string {
	var se *spec.SpecError
	if !errors.As(err, &se) {
		return err.Error()
	}
	msg := fmt.Sprintf("spec: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\n  Location: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\n  Pointer: %s", msg, se.JSONPointer)
	}
	return msg
}

func wrapOutputError(err error, outDir string) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

func absPath(p string) string {
	if ap, err := filepath.Abs(p); err == nil {
		return ap
	}
	return p
}
