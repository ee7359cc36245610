// Package hub wraps the AWS Security Hub batch APIs behind the narrow
// import/update contract the sync pipeline needs.
package hub

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	"golang.org/x/time/rate"

	"github.com/xray-integrations/securityhub-sync/internal/batch"
	"github.com/xray-integrations/securityhub-sync/internal/findings"
)

// defaultBatchLimit is the Security Hub service cap on findings per call.
const defaultBatchLimit = 100

// Rejection is one finding the aggregator refused, correlated by ID.
type Rejection struct {
	ID     string `json:"Id"`
	Reason string `json:"Reason"`
}

// BatchResult is the per-finding outcome of one import or update pass.
type BatchResult struct {
	Accepted []string    `json:"Accepted"`
	Rejected []Rejection `json:"Rejected"`
}

// Merge folds another result into this one.
func (r *BatchResult) Merge(other BatchResult) {
	r.Accepted = append(r.Accepted, other.Accepted...)
	r.Rejected = append(r.Rejected, other.Rejected...)
}

// Client submits findings to Security Hub, pre-chunking inputs to the
// service limit and rate-limiting outbound calls.
type Client struct {
	hub        *securityhub.Client
	limiter    *rate.Limiter
	batchLimit int
}

func New(cfg aws.Config, batchLimit int) *Client {
	if batchLimit < 1 {
		batchLimit = defaultBatchLimit
	}
	return &Client{
		hub: securityhub.NewFromConfig(cfg),
		// Security Hub throttles BatchImportFindings aggressively; stay
		// under the default TPS quota.
		limiter:    rate.NewLimiter(8, 8),
		batchLimit: batchLimit,
	}
}

// BatchImport submits findings in service-limit chunks. Per-finding
// rejections are collected in the result; a transport-level failure aborts
// the path and returns the outcomes gathered so far alongside the error.
func (c *Client) BatchImport(ctx context.Context, fs []findings.Finding) (BatchResult, error) {
	var result BatchResult

	for _, chunk := range batch.Chunk(fs, c.batchLimit) {
		if err := c.limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("rate limiter: %w", err)
		}

		out, err := c.hub.BatchImportFindings(ctx, &securityhub.BatchImportFindingsInput{
			Findings: toAwsFindings(chunk),
		})
		if err != nil {
			return result, fmt.Errorf("batch import findings: %w", err)
		}

		result.Merge(correlateImport(chunk, out))
	}

	return result, nil
}

// BatchUpdate refreshes severity labels on previously-imported findings.
// Updates are grouped by label so findings sharing a severity ride one call.
func (c *Client) BatchUpdate(ctx context.Context, ups []findings.SeverityUpdate) (BatchResult, error) {
	var result BatchResult

	for _, group := range groupByLabel(ups) {
		for _, chunk := range batch.Chunk(group, c.batchLimit) {
			if err := c.limiter.Wait(ctx); err != nil {
				return result, fmt.Errorf("rate limiter: %w", err)
			}

			out, err := c.hub.BatchUpdateFindings(ctx, updateInput(chunk))
			if err != nil {
				return result, fmt.Errorf("batch update findings: %w", err)
			}

			result.Merge(correlateUpdate(out))
		}
	}

	return result, nil
}
