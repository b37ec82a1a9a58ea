package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/novelbind/internal/config"
	"github.com/dgallion1/novelbind/internal/translate"
)

// Orchestrator manages queued runs for server mode: a bounded queue, a
// small worker pool, and TTL cleanup of finished runs. Within one run,
// processing stays strictly sequential; parallelism exists only across
// independent runs.
type Orchestrator struct {
	runs   *RunStore
	queue  chan *Run
	driver *Driver
	log    *slog.Logger
	cfg    config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline; call Start to launch workers.
func NewOrchestrator(cfg config.Config, tr translate.Translator, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		runs:   NewRunStore(cfg.RunTTL),
		queue:  make(chan *Run, cfg.MaxQueueSize),
		driver: NewDriver(tr, cfg, log),
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case run, ok := <-o.queue:
					if !ok {
						return
					}
					if err := o.driver.Process(workerCtx, run); err != nil {
						o.log.Error("run failed", "run_id", run.ID, "error", err)
					}
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.runs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new run for processing.
func (o *Orchestrator) Submit(run *Run) error {
	o.runs.Put(run)
	select {
	case o.queue <- run:
		return nil
	default:
		run.Fail(fmt.Errorf("run queue is full (%d)", o.cfg.MaxQueueSize))
		return fmt.Errorf("run queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetRun returns a run by ID.
func (o *Orchestrator) GetRun(id string) *Run {
	return o.runs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
