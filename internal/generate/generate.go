// Package generate runs one generation task: a document compiled for one
// target, formatted, then written.
package generate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/honogen/internal/diag"
	"github.com/mark3labs/honogen/internal/emitter"
	"github.com/mark3labs/honogen/internal/emitter/clients"
	"github.com/mark3labs/honogen/internal/emitter/components"
	"github.com/mark3labs/honogen/internal/emitter/routes"
	"github.com/mark3labs/honogen/internal/format"
	"github.com/mark3labs/honogen/internal/spec"
)

// State is a task's position in its lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateCompiling  State = "compiling"
	StateFormatting State = "formatting"
	StateWriting    State = "writing"
	StateDone       State = "done"
	StateError      State = "error"
)

// Task is one (document, target) pair.
type Task struct {
	ID      string
	Input   string
	Target  emitter.Target
	Options emitter.Options
	Filters []spec.BuildOption
	// Writer receives the output; nil compiles and formats only.
	Writer format.Writer
}

// Result is the outcome of a task. Files holds the formatted output even
// when nothing was written.
type Result struct {
	TaskID      string
	Target      emitter.Target
	State       State
	History     []State
	Files       emitter.Files
	Planned     []emitter.PlannedFile
	Diagnostics []diag.Diagnostic
	Err         error
}

// Runner carries the collaborators shared by every task.
type Runner struct {
	Formatter format.Formatter
	Logger    *slog.Logger
}

// Run executes task against doc, which it only reads. Stages run in order
// and the first failure moves the task to StateError; files are written
// only after every file compiled and formatted.
func (r *Runner) Run(ctx context.Context, doc *spec.Document, task Task) Result {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("task", task.ID, "target", string(task.Target))
	formatter := r.Formatter
	if formatter == nil {
		formatter = format.Passthrough{}
	}

	res := Result{TaskID: task.ID, Target: task.Target, State: StatePending, History: []State{StatePending}}
	move := func(s State) {
		res.State = s
		res.History = append(res.History, s)
		logger.DebugContext(ctx, "task state", "state", string(s))
	}
	fail := func(err error) Result {
		res.Err = err
		move(StateError)
		logger.ErrorContext(ctx, "task failed", "err", err)
		return res
	}

	move(StateCompiling)
	diags := &diag.Collector{}
	files, err := compile(ctx, doc, task, diags)
	res.Diagnostics = diags.Items()
	diag.Log(ctx, logger, res.Diagnostics)
	if err != nil {
		return fail(err)
	}

	move(StateFormatting)
	formatted := emitter.Files{}
	for _, rel := range files.Paths() {
		out, err := formatter.Format(ctx, rel, files[rel])
		if err != nil {
			return fail(fmt.Errorf("format %s: %w", rel, err))
		}
		formatted[rel] = out
	}
	res.Files = formatted
	res.Planned = emitter.Plan(formatted)

	move(StateWriting)
	if err := write(ctx, task.Writer, formatted); err != nil {
		return fail(err)
	}

	move(StateDone)
	logger.InfoContext(ctx, "task done", "files", len(formatted))
	return res
}

// write lands files as one set when the writer supports it, so a failure
// leaves none of the task's files behind.
func write(ctx context.Context, w format.Writer, files emitter.Files) error {
	if w == nil {
		return nil
	}
	if c, ok := w.(format.Committer); ok {
		return c.Commit(ctx, files)
	}
	for _, rel := range files.Paths() {
		if err := w.Write(ctx, rel, files[rel]); err != nil {
			return err
		}
	}
	return nil
}

func compile(ctx context.Context, doc *spec.Document, task Task, diags *diag.Collector) (emitter.Files, error) {
	if doc == nil {
		return nil, emitter.MissingInput("no document loaded for %s", task.Input)
	}
	manifest, err := spec.BuildManifest(doc, task.Filters...)
	if err != nil {
		return nil, err
	}
	u := emitter.NewUnit(doc, manifest, task.Options, diags)
	return Emit(ctx, u, task.Target)
}

// Emit dispatches a compiled unit to the emitter for target.
func Emit(ctx context.Context, u *emitter.Unit, target emitter.Target) (emitter.Files, error) {
	switch target {
	case emitter.TargetZodOpenAPI:
		return components.Emit(ctx, u)
	case emitter.TargetHandlers:
		return routes.Emit(ctx, u)
	case emitter.TargetRPC:
		return clients.EmitRPC(ctx, u)
	case emitter.TargetTanstackQuery, emitter.TargetVueQuery, emitter.TargetSvelteQuery, emitter.TargetSWR:
		return clients.EmitQuery(ctx, u, target)
	}
	return nil, fmt.Errorf("unknown target %q", target)
}
