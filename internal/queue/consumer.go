package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// JobHandler processes a campaign job. Returning an error requeues the job.
type JobHandler func(ctx context.Context, job *CampaignJob) error

// Consumer consumes campaign jobs from a RabbitMQ queue
type Consumer struct {
	conn      *Connection
	queueName string
	handler   JobHandler
	cancel    context.CancelFunc
	doneChan  chan struct{}
}

// NewConsumer creates a new consumer and declares its queue
func NewConsumer(conn *Connection, queueName string, handler JobHandler) (*Consumer, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	if err := declareQueue(ch, queueName); err != nil {
		return nil, err
	}

	return &Consumer{
		conn:      conn,
		queueName: queueName,
		handler:   handler,
		doneChan:  make(chan struct{}),
	}, nil
}

// Start begins consuming; jobs are handled one at a time until ctx is
// canceled or Stop is called
func (c *Consumer) Start(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	// one campaign at a time
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual acknowledgement)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	ctx, c.cancel = context.WithCancel(ctx)

	go func() {
		defer close(c.doneChan)

		for {
			select {
			case <-ctx.Done():
				log.Println("[Queue] consumer stopping...")
				return
			case d, ok := <-msgs:
				if !ok {
					log.Println("[Queue] delivery channel closed")
					return
				}

				if err := c.processDelivery(ctx, d); err != nil {
					log.Printf("[Queue] job failed, requeueing: %v", err)
					d.Nack(false, !d.Redelivered)
				} else {
					d.Ack(false)
				}
			}
		}
	}()

	log.Printf("[Queue] consumer listening on %s", c.queueName)
	return nil
}

// Stop stops consuming and waits for the in-flight job to finish
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.doneChan
	}
	log.Println("[Queue] consumer stopped")
}

func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery) error {
	job, err := DecodeJob(d.Body)
	if err != nil {
		return err
	}

	if err := c.handler(ctx, job); err != nil {
		return fmt.Errorf("handler failed: %w", err)
	}
	return nil
}

// DecodeJob parses a job body
func DecodeJob(body []byte) (*CampaignJob, error) {
	var job CampaignJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal campaign job: %w", err)
	}
	if job.CampaignID == "" {
		return nil, errors.New("campaign job has no campaign_id")
	}
	return &job, nil
}
