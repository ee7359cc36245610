package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretProvider returns the expected webhook auth token.
type SecretProvider interface {
	Token(ctx context.Context) (string, error)
}

// SecretsManagerProvider reads the token from AWS Secrets Manager, caching
// it briefly so a burst of webhook deliveries does not hammer the API.
type SecretsManagerProvider struct {
	sm       *secretsmanager.Client
	secretID string

	mu        sync.Mutex
	cached    string
	expiresAt time.Time
}

const secretCacheTTL = 5 * time.Minute

func NewSecretsManagerProvider(cfg aws.Config, secretID string) *SecretsManagerProvider {
	return &SecretsManagerProvider{
		sm:       secretsmanager.NewFromConfig(cfg),
		secretID: secretID,
	}
}

func (p *SecretsManagerProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" && time.Now().Before(p.expiresAt) {
		return p.cached, nil
	}

	out, err := p.sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretID),
	})
	if err != nil {
		return "", fmt.Errorf("get secret value: %w", err)
	}

	p.cached = aws.ToString(out.SecretString)
	p.expiresAt = time.Now().Add(secretCacheTTL)
	return p.cached, nil
}
