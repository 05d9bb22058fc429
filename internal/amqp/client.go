package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"expensepool/internal/log"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
}

// NewClient connects and declares the topic exchange change events are
// published to. Consumers declare their own queues.
func NewClient(url, exchangeName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// Routing keys are "pool.<id>". Events that name no pool use "pool._".
const (
	routingPrefix = "pool."
	routingAnyKey = "pool._"
	routingAll    = "pool.#"
)

var keyEscaper = strings.NewReplacer(".", "_", "*", "_", "#", "_")

// RoutingKey returns the key an event about poolID is published under.
func RoutingKey(poolID string) string {
	if poolID == "" {
		return routingAnyKey
	}
	return routingPrefix + keyEscaper.Replace(poolID)
}

// BindingKeys returns the keys a consumer interested in poolID binds: the
// pool's own key and the key of events that name no pool. An empty poolID
// binds every event.
func BindingKeys(poolID string) []string {
	if poolID == "" {
		return []string{routingAll}
	}
	return []string{RoutingKey(poolID), routingAnyKey}
}

// PublishPoolChange publishes a pool change event. Events are transient: a
// change nobody is watching is not kept.
func (c *Client) PublishPoolChange(ctx context.Context, msg *PoolChangeMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := RoutingKey(msg.PoolID)
	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		key,            // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Transient,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published pool change",
		log.FieldComponent, log.ComponentAMQP,
		log.FieldPoolID, msg.PoolID,
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldOperation, msg.Operation,
		"routing_key", key)

	return nil
}

// ConsumePoolChanges delivers change events about poolID to handler until
// ctx is done. Each call declares its own exclusive, auto-deleted queue, so
// every consumer sees every matching event and nothing is queued while no
// one is consuming.
func (c *Client) ConsumePoolChanges(ctx context.Context, poolID string, handler func(*PoolChangeMessage) error) error {
	q, err := c.channel.QueueDeclare(
		"",    // name, assigned by the server
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range BindingKeys(poolID) {
		if err := c.channel.QueueBind(q.Name, key, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", q.Name, key, err)
		}
	}

	msgs, err := c.channel.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack (we want manual ack)
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming pool changes",
		log.FieldComponent, log.ComponentAMQP,
		log.FieldPoolID, poolID,
		"queue", q.Name)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption",
				log.FieldComponent, log.ComponentAMQP, "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			switch dispatch(ctx, delivery.Body, handler) {
			case outcomeAck:
				delivery.Ack(false)
			case outcomeRequeue:
				delivery.Nack(false, true)
			default:
				delivery.Nack(false, false)
			}
		}
	}
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeDrop
)

// dispatch decodes one delivery body and runs handler on it. Undecodable
// messages are dropped; handler failures are requeued.
func dispatch(ctx context.Context, body []byte, handler func(*PoolChangeMessage) error) outcome {
	msg, err := PoolChangeMessageFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message",
			log.FieldComponent, log.ComponentAMQP, log.FieldError, err)
		return outcomeDrop
	}

	if err := handler(msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle pool change",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldError, err,
			log.FieldPoolID, msg.PoolID,
			log.FieldOperation, msg.Operation)
		return outcomeRequeue
	}

	slog.DebugContext(ctx, "Processed pool change",
		log.FieldComponent, log.ComponentAMQP,
		log.FieldPoolID, msg.PoolID,
		log.FieldOperation, msg.Operation)
	return outcomeAck
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
