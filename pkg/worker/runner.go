package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
)

// Worker is one background job. Run executes a single iteration and must
// return rather than loop; the runner owns the schedule.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

// PeriodicWorker runs a Worker once at start and then on a fixed interval
// until the context is cancelled.
type PeriodicWorker struct {
	worker   Worker
	interval time.Duration
	wg       sync.WaitGroup
}

func NewPeriodicWorker(w Worker, interval time.Duration) *PeriodicWorker {
	return &PeriodicWorker{worker: w, interval: interval}
}

func (pw *PeriodicWorker) Start(ctx context.Context) {
	pw.wg.Add(1)
	go pw.loop(ctx)
}

// Stop blocks until the worker goroutine exits or the timeout elapses.
func (pw *PeriodicWorker) Stop(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		pw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("worker stopped", zap.String("worker", pw.worker.Name()))
	case <-time.After(timeout):
		logger.Warn("worker stop timed out", zap.String("worker", pw.worker.Name()))
	}
}

func (pw *PeriodicWorker) loop(ctx context.Context) {
	defer pw.wg.Done()

	logger.Info("worker started",
		zap.String("worker", pw.worker.Name()),
		zap.Duration("interval", pw.interval),
	)

	pw.runOnce(ctx)

	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopping", zap.String("worker", pw.worker.Name()))
			return
		case <-ticker.C:
			pw.runOnce(ctx)
		}
	}
}

func (pw *PeriodicWorker) runOnce(ctx context.Context) {
	if err := pw.worker.Run(ctx); err != nil {
		// Background jobs never escalate; the next tick is expected to self-heal.
		logger.Error("worker run failed",
			zap.String("worker", pw.worker.Name()),
			zap.Error(err),
		)
	}
}

// Group manages a set of periodic workers with a shared lifecycle.
type Group struct {
	mu      sync.Mutex
	workers []*PeriodicWorker
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewGroup(ctx context.Context) *Group {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{ctx: ctx, cancel: cancel}
}

func (g *Group) Add(w Worker, interval time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.workers = append(g.workers, NewPeriodicWorker(w, interval))
}

func (g *Group) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, w := range g.workers {
		w.Start(g.ctx)
	}
	logger.Info("worker group started", zap.Int("workers", len(g.workers)))
}

// Stop cancels the shared context and waits for every worker.
func (g *Group) Stop(timeout time.Duration) {
	g.cancel()

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, w := range g.workers {
		w.Stop(timeout)
	}
	logger.Info("worker group stopped")
}
