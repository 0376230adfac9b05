package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// DefaultQueue receives every domain event published by the service.
const DefaultQueue = "prediction_events"

// ErrChannelClosed is returned when the client has no usable channel.
var ErrChannelClosed = errors.New("RabbitMQ channel is not available")

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	mu      sync.Mutex // amqp channels are not safe for concurrent publishing
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// Event is a decoded domain event.
type Event struct {
	Type      string
	Payload   map[string]any
	Timestamp time.Time
}

// NewClient connects to RabbitMQ, opens a channel and declares the event queue.
func NewClient(cfg Config) (*Client, error) {
	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declare(ch, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.WithField("queue", queue).Info("RabbitMQ client connected")

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   queue,
	}, nil
}

func declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", queue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishEvent publishes payload as a persistent JSON message on the event
// queue. The routing key travels as the message type.
func (c *Client) PublishEvent(routingKey string, payload map[string]any) error {
	msg, err := encodeEvent(routingKey, payload, time.Now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return ErrChannelClosed
	}

	err = c.channel.Publish(
		"",      // exchange: default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	log.WithField("event", routingKey).Debug("event published")
	return nil
}

func encodeEvent(routingKey string, payload map[string]any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal %s event: %w", routingKey, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         routingKey,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
	}, nil
}

// DecodeEvent parses a delivery produced by PublishEvent.
func DecodeEvent(msg amqp.Delivery) (Event, error) {
	ev := Event{Type: msg.Type, Timestamp: msg.Timestamp}
	if err := json.Unmarshal(msg.Body, &ev.Payload); err != nil {
		return Event{}, fmt.Errorf("malformed event body: %w", err)
	}
	return ev, nil
}

// ConsumeEvents starts a goroutine that decodes every message on the event
// queue and passes it to handler. Malformed messages are dropped; handler
// errors requeue the message.
func (c *Client) ConsumeEvents(handler func(Event) error) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return ErrChannelClosed
	}

	msgs, err := ch.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.WithField("queue", c.queue).Info("waiting for events")

	go func() {
		for msg := range msgs {
			handleDelivery(msg, handler)
		}
		log.WithField("queue", c.queue).Info("event consumer stopped")
	}()

	return nil
}

// acknowledger is the subset of amqp.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(msg amqp.Delivery, handler func(Event) error) {
	settle(&msg, msg.DeliveryTag, func() (bool, error) {
		ev, err := DecodeEvent(msg)
		if err != nil {
			return false, err
		}
		return true, handler(ev)
	})
}

// settle runs process and acks on success. A failure nacks, requeueing only
// when process reports the message as retryable.
func settle(ack acknowledger, tag uint64, process func() (retry bool, err error)) {
	retry, err := process()
	if err == nil {
		if ackErr := ack.Ack(false); ackErr != nil {
			log.WithError(ackErr).WithField("tag", tag).Error("failed to ack message")
		}
		return
	}

	log.WithError(err).WithFields(log.Fields{"tag": tag, "requeue": retry}).Warn("failed to process message")
	if nackErr := ack.Nack(false, retry); nackErr != nil {
		log.WithError(nackErr).WithField("tag", tag).Error("failed to nack message")
	}
}

// LogEvent is a consumer handler that records each event in the service log.
func LogEvent(ev Event) error {
	log.WithFields(log.Fields{
		"event":   ev.Type,
		"payload": ev.Payload,
	}).Info("domain event received")
	return nil
}
