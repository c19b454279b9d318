package cli

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/core"
	"github.com/santiagomed/patchwork/pkg/logger"
)

// RunResult is what a finished pipeline run hands back.
type RunResult struct {
	Report *core.Report
	Err    error
}

type ExecutionRequest struct {
	Pipeline   *core.Pipeline
	Tree       *core.ProjectTree
	ResultChan chan RunResult
	CreatedAt  time.Time
}

// Engine runs pipelines on a background worker so the terminal UI stays
// responsive. A single worker serves all requests: runs never overlap.
type Engine struct {
	logger       logger.Logger
	requests     chan ExecutionRequest
	workerWG     sync.WaitGroup
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewEngine(l logger.Logger) *Engine {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Engine{
		logger:       l,
		requests:     make(chan ExecutionRequest, 8),
		shutdownChan: make(chan struct{}),
	}
}

// Start launches the worker. ctx is handed to every pipeline it runs, so
// cancelling it stops a run before its next step.
func (e *Engine) Start(ctx context.Context) {
	e.workerWG.Add(1)
	go e.worker(ctx)
}

func (e *Engine) worker(ctx context.Context) {
	defer e.workerWG.Done()
	for {
		select {
		case req := <-e.requests:
			e.logger.Debug("Picked up pipeline run, queued " + time.Since(req.CreatedAt).String() + " ago")
			report, err := req.Pipeline.Execute(ctx, req.Tree)
			req.ResultChan <- RunResult{Report: report, Err: err}
			close(req.ResultChan)
		case <-ctx.Done():
			e.drain(ctx.Err())
			return
		case <-e.shutdownChan:
			e.drain(errors.New("engine shut down"))
			return
		}
	}
}

// drain answers requests that will never run.
func (e *Engine) drain(err error) {
	for {
		select {
		case req := <-e.requests:
			req.ResultChan <- RunResult{Err: err}
			close(req.ResultChan)
		default:
			return
		}
	}
}

// AddRequest queues a run. The returned channel yields exactly one result.
func (e *Engine) AddRequest(p *core.Pipeline, tree *core.ProjectTree) chan RunResult {
	resultChan := make(chan RunResult, 1)
	e.requests <- ExecutionRequest{
		Pipeline:   p,
		Tree:       tree,
		ResultChan: resultChan,
		CreatedAt:  time.Now(),
	}
	return resultChan
}

func (e *Engine) Shutdown(timeout time.Duration) {
	e.shutdownOnce.Do(func() { close(e.shutdownChan) })

	done := make(chan struct{})
	go func() {
		e.workerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Engine shut down gracefully")
	case <-time.After(timeout):
		e.logger.Warn("Shutdown timed out, a pipeline may still be running")
	}
}
