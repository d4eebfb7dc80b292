package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/dokuflow/document-pipeline/internal/models"
	"github.com/dokuflow/document-pipeline/pkg/logger"
)

// SQSConfig configures the SQS-backed queue.
type SQSConfig struct {
	QueueURL string
	// VisibilityTimeout must cover the longest possible processing pass,
	// otherwise a slow job is redelivered while still in flight.
	VisibilityTimeout time.Duration
	// WaitTime is the long-poll window. Default 20s.
	WaitTime time.Duration
}

// SQSQueue implements Queue on top of Amazon SQS.
type SQSQueue struct {
	client *sqs.Client
	cfg    SQSConfig
	logger logger.Logger
}

func NewSQSQueue(client *sqs.Client, cfg SQSConfig, log logger.Logger) *SQSQueue {
	if cfg.WaitTime == 0 {
		cfg.WaitTime = 20 * time.Second
	}
	if cfg.VisibilityTimeout == 0 {
		cfg.VisibilityTimeout = 15 * time.Minute
	}
	return &SQSQueue{client: client, cfg: cfg, logger: log}
}

func (q *SQSQueue) Receive(ctx context.Context, max int) ([]models.ProcessingJob, error) {
	if max < 1 {
		max = 1
	}
	if max > 10 {
		max = 10
	}

	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.cfg.QueueURL),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     int32(q.cfg.WaitTime / time.Second),
		VisibilityTimeout:   int32(q.cfg.VisibilityTimeout / time.Second),
		AttributeNames: []types.QueueAttributeName{
			types.QueueAttributeName(types.MessageSystemAttributeNameApproximateReceiveCount),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	jobs := make([]models.ProcessingJob, 0, len(out.Messages))
	for _, msg := range out.Messages {
		job, err := decodeJob(msg)
		if err != nil {
			// A body that cannot be decoded will never become
			// processable; acknowledge it so it does not loop.
			q.logger.Error("Dropping undecodable queue message",
				logger.String("message_id", aws.ToString(msg.MessageId)),
				logger.Error(err),
			)
			if delErr := q.Delete(ctx, aws.ToString(msg.ReceiptHandle)); delErr != nil {
				q.logger.Warn("Failed to delete undecodable message", logger.Error(delErr))
			}
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func decodeJob(msg types.Message) (models.ProcessingJob, error) {
	var job models.ProcessingJob
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &job); err != nil {
		return job, fmt.Errorf("invalid job body: %w", err)
	}
	// The storage key is the minimum viable identity: missing attributes
	// (document id, tenant, vertical) are backfilled from it downstream.
	if job.StorageKey == "" {
		return job, fmt.Errorf("job missing storage key")
	}

	job.ReceiptHandle = aws.ToString(msg.ReceiptHandle)
	if raw, ok := msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			job.DeliveryAttempt = n
		}
	}
	if job.JobID == "" {
		job.JobID = aws.ToString(msg.MessageId)
	}
	return job, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.cfg.QueueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (q *SQSQueue) Send(ctx context.Context, job models.ProcessingJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.cfg.QueueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"vertical": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(job.Vertical)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (q *SQSQueue) Stats(ctx context.Context) (Depth, error) {
	out, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl: aws.String(q.cfg.QueueURL),
		AttributeNames: []types.QueueAttributeName{
			types.QueueAttributeNameApproximateNumberOfMessages,
			types.QueueAttributeNameApproximateNumberOfMessagesNotVisible,
			types.QueueAttributeNameApproximateNumberOfMessagesDelayed,
		},
	})
	if err != nil {
		return Depth{}, fmt.Errorf("failed to get queue attributes: %w", err)
	}

	atoi := func(name types.QueueAttributeName) int {
		n, _ := strconv.Atoi(out.Attributes[string(name)])
		return n
	}
	return Depth{
		Available: atoi(types.QueueAttributeNameApproximateNumberOfMessages),
		InFlight:  atoi(types.QueueAttributeNameApproximateNumberOfMessagesNotVisible),
		Delayed:   atoi(types.QueueAttributeNameApproximateNumberOfMessagesDelayed),
	}, nil
}
