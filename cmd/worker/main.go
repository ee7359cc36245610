package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/redis/go-redis/v9"

	"github.com/xray-integrations/securityhub-sync/config"
	"github.com/xray-integrations/securityhub-sync/internal/findings"
	"github.com/xray-integrations/securityhub-sync/internal/hub"
	"github.com/xray-integrations/securityhub-sync/internal/ledger"
	"github.com/xray-integrations/securityhub-sync/internal/pipeline"
	"github.com/xray-integrations/securityhub-sync/internal/queue"
	"github.com/xray-integrations/securityhub-sync/internal/runlog"
	"github.com/xray-integrations/securityhub-sync/internal/spillover"
	"github.com/xray-integrations/securityhub-sync/internal/telemetry"
	"github.com/xray-integrations/securityhub-sync/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if cfg.AWS.QueueURL == "" {
		log.Fatal("SQS_QUEUE_URL is required")
	}
	if cfg.AWS.AccountID == "" {
		log.Fatal("ACCOUNT_ID is required")
	}
	if cfg.AWS.SpilloverBucket == "" {
		log.Fatal("SPILLOVER_BUCKET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	aws, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.AWS.Region))
	if err != nil {
		log.Fatalf("aws config load: %v", err)
	}

	// Optional redis read-through cache in front of the ledger.
	var cache *ledger.Cache
	if cfg.Ledger.RedisAddr != "" {
		cache = ledger.NewCache(redis.NewClient(&redis.Options{Addr: cfg.Ledger.RedisAddr}))
	}

	store := ledger.NewStore(aws, cfg.Ledger.Table)
	resolver := ledger.NewResolver(store, cache)
	aggregator := hub.New(aws, cfg.Pipeline.HubBatchLimit)
	spill := spillover.New(aws, cfg.AWS.SpilloverBucket)

	tc := findings.NewContext(cfg.AWS.AccountID, cfg.AWS.Region, cfg.AWS.ProductArn)
	engine := pipeline.New(resolver, aggregator, store, spill, cfg.Ledger.WriteScope, tc)

	// Optional postgres run history.
	pool, err := runlog.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("runlog connect: %v", err)
	}
	runs := runlog.NewStore(pool)
	if err := runs.EnsureSchema(ctx); err != nil {
		log.Fatalf("runlog schema: %v", err)
	}
	if pool != nil {
		defer pool.Close()
	}

	reporter := telemetry.NewReporter(cfg.Telemetry.CallHomeURL)

	q := queue.New(aws, cfg.AWS.QueueURL)
	w := worker.New(q, engine, runs, reporter, time.Duration(cfg.Pipeline.PollWaitSecs)*time.Second)

	if cfg.Pipeline.ReplaySchedule != "" {
		replayer := worker.NewReplayer(spill, aggregator, store)
		c, err := replayer.Schedule(ctx, cfg.Pipeline.ReplaySchedule)
		if err != nil {
			log.Fatalf("replay schedule: %v", err)
		}
		defer c.Stop()
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("worker: %v", err)
	}
}
