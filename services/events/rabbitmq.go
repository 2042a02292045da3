package eventsvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wordwise/backend/core"
)

const publishTimeout = 5 * time.Second

// RabbitMQPublisher publishes events to a durable topic exchange, using the event type as routing key.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	exchange string
	logger   core.Logger

	mu       sync.Mutex
	channel  *amqp.Channel
	chClosed chan *amqp.Error
}

var _ core.EventPublisher = (*RabbitMQPublisher)(nil)

func NewRabbitMQPublisher(conf *core.Config, logger core.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(conf.RabbitMQ.URL)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to RabbitMQ")
	}

	pub := &RabbitMQPublisher{conn: conn, exchange: conf.RabbitMQ.Exchange, logger: logger}
	if _, err = pub.getChannel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	logger.Info("connected to RabbitMQ", map[string]interface{}{"exchange": pub.exchange})
	return pub, nil
}

// getChannel returns the open channel, reopening it after a channel-level error.
func (pub *RabbitMQPublisher) getChannel() (*amqp.Channel, error) {
	pub.mu.Lock()
	defer pub.mu.Unlock()

	if pub.channel != nil {
		select {
		case <-pub.chClosed:
			pub.channel = nil
		default:
			return pub.channel, nil
		}
	}
	ch, err := pub.conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "opening channel")
	}
	err = ch.ExchangeDeclare(
		pub.exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = ch.Close()
		return nil, errors.Wrap(err, "declaring exchange")
	}
	pub.channel = ch
	pub.chClosed = ch.NotifyClose(make(chan *amqp.Error, 1))
	return ch, nil
}

func (pub *RabbitMQPublisher) Publish(ctx context.Context, evt core.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	ch, err := pub.getChannel()
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		publishCtx,
		pub.exchange, // exchange
		evt.Type,     // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    evt.OccurredAt,
			Type:         evt.Type,
		},
	)
	if err != nil {
		return errors.Wrapf(err, "publishing %s", evt.Type)
	}
	return nil
}

func (pub *RabbitMQPublisher) Close() error {
	pub.mu.Lock()
	defer pub.mu.Unlock()

	if pub.channel != nil {
		if err := pub.channel.Close(); err != nil && err != amqp.ErrClosed {
			pub.logger.Error("closing RabbitMQ channel", err)
		}
	}
	return pub.conn.Close()
}
