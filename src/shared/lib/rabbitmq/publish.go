package rabbitmq

import (
	"context"
	"sync"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/rabbitmq/amqp091-go"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

var _ Publisher = &QueuePublisher{}
var _ Publisher = DisabledPublisher{}

//counterfeiter:generate . Publisher
type Publisher interface {
	Publish(ctx context.Context, msg amqp091.Publishing) error
}

func NewQueuePublisher(rabbitMQURL string, queueName string) (*QueuePublisher, error) {
	publisher := &QueuePublisher{
		rabbitMQURL: rabbitMQURL,
		queueName:   queueName,
		channel:     nil,
	}

	err := publisher.connectChannel()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to connect to RabbitMQ")
	}

	return publisher, nil
}

type QueuePublisher struct {
	rabbitMQURL string
	queueName   string

	channelLock sync.Mutex
	channel     *amqp091.Channel
}

// connectChannel expects channelLock to be held, except during construction
func (q *QueuePublisher) connectChannel() error {
	q.channel = nil

	conn, err := amqp091.Dial(q.rabbitMQURL)
	if err != nil {
		return errors.Wrap(err, "Failed to dial rabbitMQURL")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "Failed to create rabbit channel")
	}

	_, err = channel.QueueDeclare(
		q.queueName,
		true,
		false,
		false,
		false,
		nil,
	)

	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return errors.Wrap(err, "Failed to declare the queue")
	}

	q.channel = channel
	return nil
}

func (q *QueuePublisher) publishWithoutRetry(ctx context.Context, msg amqp091.Publishing) error {
	if q.channel == nil {
		return errors.Wrap(amqp091.ErrClosed, "No open rabbitMQ channel")
	}

	msg.ContentType = "application/json"
	msg.DeliveryMode = amqp091.Persistent

	return q.channel.PublishWithContext(
		ctx,
		"",
		q.queueName,
		true,
		false,
		msg,
	)
}

func (q *QueuePublisher) Publish(ctx context.Context, msg amqp091.Publishing) error {
	q.channelLock.Lock()
	defer q.channelLock.Unlock()

	err := q.publishWithoutRetry(ctx, msg)

	if err != nil {
		publishErr := errors.Wrap(err, "Failed to publish message to rabbitMQ channel")
		shouldReset := errors.Is(err, amqp091.ErrClosed)
		if !shouldReset {
			return publishErr
		}

		err = q.connectChannel()
		if err != nil {
			log.WithError(err).
				Error("Unable to reconnect to rabbitMQ channel")
			return publishErr
		}

		return q.publishWithoutRetry(ctx, msg)
	}

	return nil
}

// DisabledPublisher drops every message, for deployments without a queue
type DisabledPublisher struct{}

func (DisabledPublisher) Publish(_ context.Context, msg amqp091.Publishing) error {
	log.WithField("message_type", msg.Type).Debug("Job events are disabled, dropping message")
	return nil
}
