package main

import (
	"context"
	"log"

	awscfg "github.com/aws/aws-sdk-go-v2/config"

	"github.com/xray-integrations/securityhub-sync/config"
	"github.com/xray-integrations/securityhub-sync/internal/api"
	"github.com/xray-integrations/securityhub-sync/internal/queue"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if cfg.AWS.QueueURL == "" {
		log.Fatal("SQS_QUEUE_URL is required")
	}

	ctx := context.Background()
	aws, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.AWS.Region))
	if err != nil {
		log.Fatalf("aws config load: %v", err)
	}

	var secrets api.SecretProvider
	if cfg.Auth.Enabled {
		secrets = api.NewSecretsManagerProvider(aws, cfg.Auth.SecretID)
	}

	r := api.BuildRouter(api.RouterDeps{
		ServiceName: "xray-securityhub-sync",
		Version:     version,
		Sender:      queue.New(aws, cfg.AWS.QueueURL),
		Secrets:     secrets,
		AuthEnabled: cfg.Auth.Enabled,
		ChunkSize:   cfg.Pipeline.ChunkSize,
	})

	log.Printf("[info] operation=api message=listening port=%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
