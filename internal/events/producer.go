// Package events publishes accepted notifications to an SQS queue for
// downstream consumers (analytics, audit). The feed is optional; the
// development backend runs without it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/fprax/notify/internal/wire"
)

// Config holds SQS configuration.
type Config struct {
	Region   string
	QueueURL string
}

// Event is the payload enqueued per accepted notification.
type Event struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	Type           string    `json:"type"`
	Priority       string    `json:"priority"`
	Delivered      bool      `json:"delivered"` // false when queued for offline delivery
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

// Producer sends notification events to SQS.
type Producer struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger
}

// NewProducer creates an SQS event producer.
func NewProducer(ctx context.Context, cfg Config, logger *zap.Logger) (*Producer, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("sqs event producer initialized",
		zap.String("queue_url", cfg.QueueURL),
	)

	return &Producer{
		client:   sqs.NewFromConfig(awsCfg),
		queueURL: cfg.QueueURL,
		logger:   logger,
	}, nil
}

// Publish enqueues one notification event. Returns the message ID.
func (p *Producer) Publish(ctx context.Context, userID string, n wire.Notification, delivered bool) (string, error) {
	ev := Event{
		NotificationID: n.ID,
		UserID:         userID,
		Type:           n.Type,
		Priority:       string(n.Priority),
		Delivered:      delivered,
		EnqueuedAt:     time.Now().UTC(),
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	result, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		p.logger.Error("failed to send event to sqs",
			zap.Error(err),
			zap.String("notification_id", n.ID),
		)
		return "", fmt.Errorf("sqs send failed: %w", err)
	}

	return *result.MessageId, nil
}

// Close closes the producer.
func (p *Producer) Close() {
	// AWS SDK v2 clients don't require explicit Close()
}
