// Package queue carries issue chunks between the ingest API and the sync
// worker over an SQS FIFO queue. The transport is at-least-once: downstream
// must tolerate duplicate chunk delivery.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/xray-integrations/securityhub-sync/internal/batch"
	"github.com/xray-integrations/securityhub-sync/internal/xray"
)

const (
	messageGroup = "XrayPayload"

	// SQS caps SendMessageBatch at 10 entries per call, independent of the
	// configured chunk size.
	maxBatchEntries = 10
)

// Client wraps the SQS FIFO queue used to hand issue batches to the worker.
type Client struct {
	sqs      *sqs.Client
	queueURL string
}

func New(cfg aws.Config, queueURL string) *Client {
	return &Client{
		sqs:      sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}
}

// SendChunk delivers one chunk, one message per issue, splitting the entries
// across as many batched sends as the service cap requires. Order within the
// chunk is preserved by the FIFO message group.
func (c *Client) SendChunk(ctx context.Context, issues []xray.Issue) error {
	batches, err := entryBatches(issues)
	if err != nil {
		return err
	}

	for _, entries := range batches {
		out, err := c.sqs.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(c.queueURL),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("send message batch: %w", err)
		}
		if len(out.Failed) > 0 {
			return fmt.Errorf("send message batch: %d of %d entries failed", len(out.Failed), len(entries))
		}
	}

	return nil
}

// entryBatches builds one entry per issue and splits them at the service's
// per-call entry cap.
func entryBatches(issues []xray.Issue) ([][]types.SendMessageBatchRequestEntry, error) {
	entries := make([]types.SendMessageBatchRequestEntry, 0, len(issues))
	for _, issue := range issues {
		body, err := json.Marshal(issue)
		if err != nil {
			return nil, fmt.Errorf("marshal issue: %w", err)
		}
		entries = append(entries, types.SendMessageBatchRequestEntry{
			Id:                     aws.String(uuid.NewString()),
			MessageBody:            aws.String(string(body)),
			MessageGroupId:         aws.String(messageGroup),
			MessageDeduplicationId: aws.String(uuid.NewString()),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"MessageType": {
					DataType:    aws.String("String"),
					StringValue: aws.String("Issue received from JFrog Xray"),
				},
			},
		})
	}

	return batch.Chunk(entries, maxBatchEntries), nil
}

// Message is one received issue plus the handle needed to delete it after a
// completed run.
type Message struct {
	ReceiptHandle string
	Issue         xray.Issue
}

// Receive long-polls for up to max messages.
func (c *Client) Receive(ctx context.Context, max int32, wait time.Duration) ([]Message, error) {
	out, err := c.sqs.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: max,
		WaitTimeSeconds:     int32(wait / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		var issue xray.Issue
		if err := json.Unmarshal([]byte(aws.ToString(m.Body)), &issue); err != nil {
			// An undecodable body can never become a finding. Log and skip
			// it so one bad message does not stall its siblings; redelivery
			// eventually parks it on the DLQ.
			log.Printf("[warn] operation=receive error=decode message body: %v", err)
			continue
		}
		msgs = append(msgs, Message{
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Issue:         issue,
		})
	}

	return msgs, nil
}

// Delete acknowledges a processed message.
func (c *Client) Delete(ctx context.Context, receiptHandle string) error {
	_, err := c.sqs.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
