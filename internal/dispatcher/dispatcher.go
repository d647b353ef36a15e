// Package dispatcher delivers enrichment jobs to the queue from a worker
// pool, decoupling queue latency from the request path.
package dispatcher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
	"github.com/linkhoard/linkhoard/internal/metrics"
	"github.com/linkhoard/linkhoard/internal/queue"
)

// Config controls pool size and buffering.
type Config struct {
	Workers     int
	Depth       int
	SendTimeout time.Duration
}

// Dispatcher fans enrichment jobs out to a pool of senders. Enqueue never
// blocks: when the buffer is full the job is dropped, logged, and counted,
// which keeps the request path fast at the cost of an unenriched record.
type Dispatcher struct {
	cfg   Config
	queue queue.Queue
	jobs  chan bookmarks.EnrichmentJob
	log   *zap.Logger
}

// New creates a Dispatcher.
func New(cfg Config, q queue.Queue, log *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Depth <= 0 {
		cfg.Depth = 64
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		cfg:   cfg,
		queue: q,
		jobs:  make(chan bookmarks.EnrichmentJob, cfg.Depth),
		log:   log,
	}
}

// Run starts the worker pool and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-d.jobs:
					d.send(job)
				}
			}
		}()
	}
	<-ctx.Done()
	wg.Wait()
}

// Enqueue hands a job to the pool without blocking the caller.
func (d *Dispatcher) Enqueue(job bookmarks.EnrichmentJob) {
	select {
	case d.jobs <- job:
	default:
		metrics.ObserveEnqueueFailure()
		d.log.Warn("enrichment job dropped, dispatch buffer full",
			zap.Int64("bookmark_id", job.BookmarkID),
			zap.String("url", job.URL))
	}
}

func (d *Dispatcher) send(job bookmarks.EnrichmentJob) {
	payload, err := json.Marshal(job)
	if err != nil {
		metrics.ObserveEnqueueFailure()
		d.log.Error("marshal enrichment job",
			zap.Int64("bookmark_id", job.BookmarkID),
			zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()
	if err := d.queue.Send(ctx, payload); err != nil {
		metrics.ObserveEnqueueFailure()
		d.log.Warn("enrichment enqueue failed, record stays unenriched",
			zap.Int64("bookmark_id", job.BookmarkID),
			zap.String("url", job.URL),
			zap.Error(err))
	}
}
