package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// CampaignJob asks the worker to deliver a stored campaign
type CampaignJob struct {
	CampaignID string `json:"campaign_id"`
}

// Publisher publishes campaign jobs to RabbitMQ
type Publisher struct {
	conn      *Connection
	queueName string
}

// NewPublisher creates a new publisher and declares its queue
func NewPublisher(conn *Connection, queueName string) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	if err := declareQueue(ch, queueName); err != nil {
		return nil, err
	}

	return &Publisher{
		conn:      conn,
		queueName: queueName,
	}, nil
}

// PublishCampaign enqueues a delivery job for campaignID
func (p *Publisher) PublishCampaign(ctx context.Context, campaignID string) error {
	body, err := json.Marshal(CampaignJob{CampaignID: campaignID})
	if err != nil {
		return fmt.Errorf("failed to marshal campaign job: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	err = ch.PublishWithContext(
		ctx,
		"",          // exchange (default)
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    campaignID,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish campaign job: %w", err)
	}

	return nil
}
