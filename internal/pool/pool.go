// Package pool runs independent download tasks across a fixed number of workers.
package pool

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alanbriolat/vk-downloader"
)

const DefaultSize = 4

type Runner interface {
	Run(ctx context.Context, task vk_downloader.DownloadTask) error
}

type RunnerFunc func(ctx context.Context, task vk_downloader.DownloadTask) error

func (f RunnerFunc) Run(ctx context.Context, task vk_downloader.DownloadTask) error {
	return f(ctx, task)
}

// SubprocessRunner runs each task as a separate OS process, built by Command. A non-zero exit status is a failure.
type SubprocessRunner struct {
	Command func(ctx context.Context, task vk_downloader.DownloadTask) *exec.Cmd
	// Where the child's output goes; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

func (r *SubprocessRunner) Run(ctx context.Context, task vk_downloader.DownloadTask) error {
	cmd := r.Command(ctx, task)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("worker process failed: %w", err)
	}
	return nil
}

// An Outcome is the result of one task.
type Outcome struct {
	Task    vk_downloader.DownloadTask
	Err     error
	Elapsed time.Duration
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

type Report struct {
	// One Outcome per submitted task, in submission order.
	Outcomes []Outcome
}

func (r *Report) Succeeded() []Outcome {
	return r.filter(true)
}

func (r *Report) Failed() []Outcome {
	return r.filter(false)
}

// Err aggregates every task failure, or is nil if all tasks succeeded.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, o := range r.Failed() {
		result = multierror.Append(result, multierror.Prefix(o.Err, fmt.Sprintf("[%s]", o.Task.Filename)))
	}
	return result.ErrorOrNil()
}

func (r *Report) filter(ok bool) []Outcome {
	var outcomes []Outcome
	for _, o := range r.Outcomes {
		if o.OK() == ok {
			outcomes = append(outcomes, o)
		}
	}
	return outcomes
}

type Pool struct {
	size   int
	runner Runner
	log    *zap.SugaredLogger
}

// New creates a Pool of the given size; sizes below 1 are treated as 1.
func New(size int, runner Runner) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:   size,
		runner: runner,
		log:    zap.S().Named("pool"),
	}
}

func (p *Pool) Size() int {
	return p.size
}

// Run blocks until every task has finished. A failing task does not affect the others.
func (p *Pool) Run(ctx context.Context, tasks []vk_downloader.DownloadTask) *Report {
	report := &Report{Outcomes: make([]Outcome, len(tasks))}
	var g errgroup.Group
	g.SetLimit(p.size)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			log := p.log.With("task_id", task.ID, "file", task.Filename)
			log.Debug("task started")
			start := time.Now()
			err := p.runner.Run(ctx, task)
			outcome := Outcome{Task: task, Err: err, Elapsed: time.Since(start)}
			if err != nil {
				log.Errorw("task failed", "error", err)
			} else {
				log.Infow("task complete", "elapsed", outcome.Elapsed)
			}
			report.Outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()
	return report
}
