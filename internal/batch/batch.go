// Package batch fans generation tasks out over a bounded worker pool.
// Documents are parsed once per input and shared read-only; a failing task
// is recorded and never stops its siblings.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mark3labs/honogen/internal/generate"
	"github.com/mark3labs/honogen/internal/spec"
)

// LoadFunc parses the document behind an input path or URL.
type LoadFunc func(ctx context.Context, input string) (*spec.Document, error)

// DocumentLoader returns a LoadFunc backed by spec.Load.
func DocumentLoader(opts ...spec.Option) LoadFunc {
	return func(ctx context.Context, input string) (*spec.Document, error) {
		raw, err := spec.Load(ctx, input, opts...)
		if err != nil {
			return nil, err
		}
		return spec.NewDocument(raw)
	}
}

// Options configures a batch run.
type Options struct {
	// Workers bounds concurrent tasks; zero means runtime.GOMAXPROCS(0).
	Workers int
	Load    LoadFunc
	Runner  *generate.Runner
	Logger  *slog.Logger
}

// Failure is one failed task.
type Failure struct {
	TaskID  string
	Message string
}

// Report aggregates a run. Results are in task order.
type Report struct {
	RunID     string
	Total     int
	Succeeded int
	Failures  []Failure
	Results   []generate.Result
	Elapsed   time.Duration
}

// Summary renders "succeeded/total".
func (r Report) Summary() string { return fmt.Sprintf("%d/%d", r.Succeeded, r.Total) }

// OK reports whether every task succeeded.
func (r Report) OK() bool { return r.Succeeded == r.Total }

type loaded struct {
	doc *spec.Document
	err error
}

// docCache loads each input once, even when tasks ask concurrently.
type docCache struct {
	load  LoadFunc
	group singleflight.Group
	mu    sync.Mutex
	docs  map[string]loaded
}

func (c *docCache) get(ctx context.Context, input string) (*spec.Document, error) {
	c.mu.Lock()
	if l, ok := c.docs[input]; ok {
		c.mu.Unlock()
		return l.doc, l.err
	}
	c.mu.Unlock()

	v, _, _ := c.group.Do(input, func() (any, error) {
		doc, err := c.load(ctx, input)
		l := loaded{doc: doc, err: err}
		c.mu.Lock()
		c.docs[input] = l
		c.mu.Unlock()
		return l, nil
	})
	l := v.(loaded)
	return l.doc, l.err
}

// Run executes every task and waits for all of them.
func Run(ctx context.Context, tasks []generate.Task, opts Options) Report {
	started := time.Now()
	report := Report{RunID: uuid.NewString(), Total: len(tasks), Results: make([]generate.Result, len(tasks))}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", report.RunID)
	runner := opts.Runner
	if runner == nil {
		runner = &generate.Runner{}
	}
	scoped := *runner
	scoped.Logger = logger
	load := opts.Load
	if load == nil {
		load = DocumentLoader(spec.WithLogger(logger))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	cache := &docCache{load: load, docs: map[string]loaded{}}
	logger.InfoContext(ctx, "batch started", "tasks", len(tasks), "workers", workers)

	var g errgroup.Group
	g.SetLimit(workers)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			doc, err := cache.get(ctx, task.Input)
			if err != nil {
				logger.ErrorContext(ctx, "load failed", "task", task.ID, "input", task.Input, "err", err)
				report.Results[i] = generate.Result{TaskID: task.ID, Target: task.Target, State: generate.StateError, Err: err}
				return nil
			}
			report.Results[i] = scoped.Run(ctx, doc, task)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range report.Results {
		if res.Err == nil && res.State == generate.StateDone {
			report.Succeeded++
			continue
		}
		msg := "task did not complete"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		report.Failures = append(report.Failures, Failure{TaskID: res.TaskID, Message: msg})
	}
	report.Elapsed = time.Since(started)
	logger.InfoContext(ctx, "batch finished", "summary", report.Summary(), "elapsed", report.Elapsed)
	return report
}
