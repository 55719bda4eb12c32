package helpers

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSPublisher sends JSON messages to a single queue.
type SQSPublisher struct {
	client   *sqs.Client
	QueueURL string
}

func NewSQSPublisher(cfg aws.Config, endpoint, queueURL string) *SQSPublisher {
	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &SQSPublisher{client: client, QueueURL: queueURL}
}

// PublishJSON sends body as the message payload.
func (p *SQSPublisher) PublishJSON(ctx context.Context, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.QueueURL),
		MessageBody: aws.String(string(b)),
	})
	return err
}
