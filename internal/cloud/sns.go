package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"
)

// SNS limits subjects to 100 characters.
const maxSubjectLen = 100

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	GetTopicAttributes(ctx context.Context, params *sns.GetTopicAttributesInput, optFns ...func(*sns.Options)) (*sns.GetTopicAttributesOutput, error)
}

// SNSNotifier publishes run summaries to a topic.
type SNSNotifier struct {
	svc      SNSAPI
	topicArn string
	log      zerolog.Logger
}

func NewSNSNotifier(ctx context.Context, region, topicArn string, log zerolog.Logger) (*SNSNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewSNSNotifierWithClient(sns.NewFromConfig(cfg), topicArn, log), nil
}

func NewSNSNotifierWithClient(svc SNSAPI, topicArn string, log zerolog.Logger) *SNSNotifier {
	return &SNSNotifier{
		svc:      svc,
		topicArn: topicArn,
		log:      log.With().Str("component", "sns-notifier").Logger(),
	}
}

// Publish sends one message to the topic.
func (n *SNSNotifier) Publish(ctx context.Context, subject, message string) error {
	if r := []rune(subject); len(r) > maxSubjectLen {
		subject = string(r[:maxSubjectLen])
	}
	result, err := n.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	n.log.Info().Str("message_id", aws.ToString(result.MessageId)).Msg("run summary published")
	return nil
}

// Check verifies the topic exists and is visible with the current
// credentials.
func (n *SNSNotifier) Check(ctx context.Context) error {
	if _, err := n.svc.GetTopicAttributes(ctx, &sns.GetTopicAttributesInput{TopicArn: aws.String(n.topicArn)}); err != nil {
		return fmt.Errorf("topic %s: %w", n.topicArn, err)
	}
	return nil
}
