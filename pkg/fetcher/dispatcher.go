package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for batch dispatch.
var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_batches_total",
		Help: "Total dispatched batches by terminal status",
	}, []string{"status"})

	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanout_batch_size",
		Help:    "Number of URLs per batch",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanout_batch_duration_seconds",
		Help:    "Batch duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

// FetchAll fans out one fetch task per URL and waits for all of them to reach
// a terminal state. Outcomes are written into a pre-sized slice indexed by
// input position, so the result order always matches the input order no
// matter in which order tasks complete.
//
// Individual fetch failures are contained in their Outcome and never abort
// sibling tasks. FetchAll itself returns an error only when the batch context
// expires before every task has finished; in-flight fetches are then
// abandoned through context cancellation.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]Outcome, error) {
	if len(urls) == 0 {
		return nil, ErrNoTargets
	}

	start := time.Now()
	batchSize.Observe(float64(len(urls)))

	f.logger.Info().
		Int("urls", len(urls)).
		Msg("Starting batch fetch")

	outcomes := make([]Outcome, len(urls))

	// Optional concurrency cap. The reference behavior is unbounded fan-out,
	// so a nil semaphore means one goroutine per URL.
	var sem chan struct{}
	if f.config.MaxConcurrency > 0 {
		sem = make(chan struct{}, f.config.MaxConcurrency)
	}

	var wg sync.WaitGroup
	for i, target := range urls {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()

			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					outcomes[i] = Outcome{URL: target, Err: ctx.Err()}
					return
				}
			}

			body, err := f.Fetch(ctx, target)
			outcomes[i] = Outcome{URL: target, Body: body, Err: err}
		}(i, target)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		batchesTotal.WithLabelValues("aborted").Inc()
		f.logger.Warn().
			Err(ctx.Err()).
			Int("urls", len(urls)).
			Dur("duration", time.Since(start)).
			Msg("Batch aborted before completion")
		return nil, fmt.Errorf("%w: %v", ErrBatchAborted, ctx.Err())
	}

	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
	}

	batchesTotal.WithLabelValues("completed").Inc()
	batchDuration.Observe(time.Since(start).Seconds())

	f.logger.Info().
		Int("urls", len(urls)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return outcomes, nil
}
