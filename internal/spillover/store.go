// Package spillover persists findings the aggregator rejected to S3 so they
// are never silently lost, and feeds them back to the replay job.
package spillover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/xray-integrations/securityhub-sync/internal/findings"
)

const keyPrefix = "failed-findings/"

// Store writes rejected findings to the spillover bucket under
// timestamp-derived keys.
type Store struct {
	s3     *s3.Client
	bucket string
	now    func() time.Time
}

func New(cfg aws.Config, bucket string) *Store {
	return &Store{
		s3:     s3.NewFromConfig(cfg),
		bucket: bucket,
		now:    time.Now,
	}
}

// Key derives the object name for a blob written now.
func (s *Store) Key() string {
	return fmt.Sprintf("%s%s.json", keyPrefix, s.now().UTC().Format("20060102T150405.000000000Z"))
}

// Put persists one batch of rejected findings as a JSON blob.
func (s *Store) Put(ctx context.Context, fs []findings.Finding) error {
	if len(fs) == 0 {
		return nil
	}

	body, err := json.Marshal(fs)
	if err != nil {
		return fmt.Errorf("marshal spillover blob: %w", err)
	}

	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key()),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put spillover blob: %w", err)
	}
	return nil
}

// List returns the keys of every pending spillover blob.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list spillover blobs: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}

// Load reads one spillover blob back into findings.
func (s *Store) Load(ctx context.Context, key string) ([]findings.Finding, error) {
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get spillover blob %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read spillover blob %s: %w", key, err)
	}

	var fs []findings.Finding
	if err := json.Unmarshal(body, &fs); err != nil {
		return nil, fmt.Errorf("decode spillover blob %s: %w", key, err)
	}
	return fs, nil
}

// Delete removes a blob after a successful replay.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete spillover blob %s: %w", key, err)
	}
	return nil
}
