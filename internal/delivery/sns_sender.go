package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"
)

// SNSSender mirrors notifications to an SNS topic that device push
// subscriptions fan out from.
type SNSSender struct {
	client   *sns.Client
	topicARN string
	logger   *zap.Logger
}

// SNSConfig holds SNS parameters.
type SNSConfig struct {
	Region   string
	TopicARN string
}

// pushPayload is the message published per notification.
type pushPayload struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Type           string `json:"type"`
	Priority       string `json:"priority"`
}

// NewSNSSender creates an SNS push sender.
func NewSNSSender(ctx context.Context, cfg SNSConfig, logger *zap.Logger) (*SNSSender, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &SNSSender{
		client:   sns.NewFromConfig(awsCfg),
		topicARN: cfg.TopicARN,
		logger:   logger,
	}, nil
}

// Send publishes the notification to the push topic with routing attributes.
func (s *SNSSender) Send(ctx context.Context, msg *Message) error {
	if msg.Channel != ChannelPush {
		return fmt.Errorf("SNS sender only supports push, got: %s", msg.Channel)
	}

	payload, err := json.Marshal(pushPayload{
		NotificationID: msg.Notification.ID,
		UserID:         msg.UserID,
		Title:          msg.Notification.Title,
		Body:           msg.Notification.Message,
		Type:           msg.Notification.Type,
		Priority:       string(msg.Notification.Priority),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"user_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.UserID),
			},
			"priority": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(msg.Notification.Priority)),
			},
		},
	}

	result, err := s.client.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}

	s.logger.Info("push published via SNS",
		zap.String("notification_id", msg.Notification.ID),
		zap.String("message_id", *result.MessageId),
	)
	return nil
}

// SupportsChannel checks if this sender supports the push channel.
func (s *SNSSender) SupportsChannel(channel string) bool {
	return channel == ChannelPush
}
