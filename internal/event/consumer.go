package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Consumer interface {
	Start() error
	Close() error
}

// AccountHandler reacts to account lifecycle events from the auth side.
// Suspension and deletion both stop the actor's assignments from granting
// anything.
type AccountHandler interface {
	HandleActorSuspended(ctx context.Context, actorID string) error
}

type EventConsumer struct {
	conn           *amqp091.Connection
	channel        *amqp091.Channel
	queueName      string
	accountHandler AccountHandler
	enabled        bool
}

func NewEventConsumer(rabbitURI, accountExchange string, accountHandler AccountHandler) (*EventConsumer, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event consumption is disabled")
		return &EventConsumer{
			enabled: false,
		}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		accountExchange, // name
		"topic",         // type
		true,            // durable
		false,           // auto-deleted
		false,           // internal
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	queueName := "sheet-service-account-events"
	queue, err := channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, routingKey := range []string{EventUserSuspended, EventUserDeleted} {
		err = channel.QueueBind(
			queue.Name,      // queue name
			routingKey,      // routing key
			accountExchange, // exchange
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to bind queue: %w", err)
		}
	}

	return &EventConsumer{
		conn:           conn,
		channel:        channel,
		queueName:      queueName,
		accountHandler: accountHandler,
		enabled:        true,
	}, nil
}

func (c *EventConsumer) Start() error {
	if !c.enabled {
		return nil
	}

	messages, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for message := range messages {
			c.handleMessage(message)
		}
		log.Println("Account event channel closed")
	}()

	log.Println("Started consuming account events")
	return nil
}

func (c *EventConsumer) handleMessage(message amqp091.Delivery) {
	var data AccountEventData
	if err := json.Unmarshal(message.Body, &data); err != nil {
		log.Printf("Failed to parse account event: %v", err)
		message.Nack(false, false)
		return
	}

	if data.UserID == "" {
		log.Printf("Account event %s without userId, dropping", message.RoutingKey)
		message.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch message.RoutingKey {
	case EventUserSuspended, EventUserDeleted:
		if err := c.accountHandler.HandleActorSuspended(ctx, data.UserID); err != nil {
			log.Printf("Failed to handle %s for %s: %v", message.RoutingKey, data.UserID, err)
			message.Nack(false, true)
			return
		}
	default:
		log.Printf("Ignoring account event with routing key %s", message.RoutingKey)
	}

	message.Ack(false)
}

func (c *EventConsumer) Close() error {
	if !c.enabled {
		return nil
	}

	var firstErr error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
