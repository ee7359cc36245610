package worker

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/xray-integrations/securityhub-sync/internal/pipeline"
	"github.com/xray-integrations/securityhub-sync/internal/spillover"
)

// Replayer re-attempts import of spilled findings. A blob is removed only
// when every finding in it was accepted; otherwise it stays for the next
// pass.
type Replayer struct {
	spill      *spillover.Store
	aggregator pipeline.Aggregator
	ledger     pipeline.Ledger
}

func NewReplayer(spill *spillover.Store, aggregator pipeline.Aggregator, ledger pipeline.Ledger) *Replayer {
	return &Replayer{spill: spill, aggregator: aggregator, ledger: ledger}
}

// ReplayOnce walks every pending spillover blob and retries its findings.
func (r *Replayer) ReplayOnce(ctx context.Context) {
	keys, err := r.spill.List(ctx)
	if err != nil {
		log.Printf("[error] operation=replay list error=%v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	log.Printf("[info] operation=replay blobs=%d", len(keys))

	for _, key := range keys {
		r.replayBlob(ctx, key)
	}
}

func (r *Replayer) replayBlob(ctx context.Context, key string) {
	fs, err := r.spill.Load(ctx, key)
	if err != nil {
		log.Printf("[error] operation=replay key=%s load error=%v", key, err)
		return
	}
	if len(fs) == 0 {
		r.drop(ctx, key)
		return
	}

	res, err := r.aggregator.BatchImport(ctx, fs)
	if err != nil {
		log.Printf("[warn] operation=replay key=%s import error=%v", key, err)
		return
	}

	for _, id := range res.Accepted {
		if err := r.ledger.Put(ctx, id); err != nil {
			log.Printf("[warn] operation=replay ledger id=%q error=%v", id, err)
		}
	}

	if len(res.Rejected) > 0 {
		log.Printf("[warn] operation=replay key=%s rejected=%d (blob kept)", key, len(res.Rejected))
		return
	}

	r.drop(ctx, key)
	log.Printf("[info] operation=replay key=%s imported=%d", key, len(res.Accepted))
}

func (r *Replayer) drop(ctx context.Context, key string) {
	if err := r.spill.Delete(ctx, key); err != nil {
		log.Printf("[warn] operation=replay delete key=%s error=%v", key, err)
	}
}

// Schedule registers the replay job on the given cron schedule and starts
// the scheduler.
func (r *Replayer) Schedule(ctx context.Context, schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		r.ReplayOnce(ctx)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[info] operation=replay message=scheduled schedule=%q", schedule)
	c.Start()
	return c, nil
}
