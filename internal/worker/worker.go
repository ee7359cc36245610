// Package worker consumes issue batches from the queue and drives the
// synchronization pipeline.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/xray-integrations/securityhub-sync/internal/pipeline"
	"github.com/xray-integrations/securityhub-sync/internal/queue"
	"github.com/xray-integrations/securityhub-sync/internal/runlog"
	"github.com/xray-integrations/securityhub-sync/internal/telemetry"
	"github.com/xray-integrations/securityhub-sync/internal/xray"
)

const receiveBatchSize = 10

// Worker polls the queue and runs one synchronization run per received
// batch. Messages are deleted only after a completed run, so a failed run
// is redelivered by the transport.
type Worker struct {
	queue    *queue.Client
	engine   *pipeline.Engine
	runs     *runlog.Store
	reporter *telemetry.Reporter
	pollWait time.Duration
}

func New(q *queue.Client, engine *pipeline.Engine, runs *runlog.Store, reporter *telemetry.Reporter, pollWait time.Duration) *Worker {
	return &Worker{
		queue:    q,
		engine:   engine,
		runs:     runs,
		reporter: reporter,
		pollWait: pollWait,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("[info] operation=worker message=polling started wait=%s", w.pollWait)

	for {
		select {
		case <-ctx.Done():
			log.Println("[info] operation=worker message=shutting down")
			return ctx.Err()
		default:
		}

		msgs, err := w.queue.Receive(ctx, receiveBatchSize, w.pollWait)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[error] operation=worker receive error=%v", err)
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		w.process(ctx, msgs)
	}
}

// process runs the pipeline over one received batch. There is no mid-run
// abort: the run either completes (possibly with partial path failure) or
// errors before any message is acknowledged.
func (w *Worker) process(ctx context.Context, msgs []queue.Message) {
	issues := make([]xray.Issue, 0, len(msgs))
	for _, m := range msgs {
		issues = append(issues, m.Issue)
	}

	rep, err := w.engine.Run(ctx, issues)
	if err != nil {
		// Leave the messages in flight; the transport redelivers them.
		log.Printf("[error] operation=worker run error=%v", err)
		w.record(ctx, "failed", &pipeline.Report{})
		return
	}

	for _, m := range msgs {
		if err := w.queue.Delete(ctx, m.ReceiptHandle); err != nil {
			log.Printf("[warn] operation=worker delete error=%v", err)
		}
	}

	w.record(ctx, "completed", rep)
	w.reporter.Report(ctx, rep)
}

func (w *Worker) record(ctx context.Context, status string, rep *pipeline.Report) {
	if err := w.runs.Record(ctx, status, rep); err != nil {
		log.Printf("[warn] operation=worker runlog error=%v", err)
	}
}
